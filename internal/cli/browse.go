package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/tui"
)

var browseInput string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the results table interactively",
	Long: `Browse opens an interactive table of the latest stored run (or of a
results CSV given with --input, or the configured output file when no run
is stored).

Keys:
  /      search by repository name
  s      cycle sort order
  f      filter by scan status
  c      copy the selected row as CSV
  esc    clear filters
  q      quit`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseInput, "input", "i", "",
		"results CSV to browse instead of the stored history")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !stdoutColors() {
		return &ValidationError{Message: "browse needs an interactive terminal; use 'sonarsweep report' instead"}
	}

	run, trend, err := loadBrowseData(browseInput)
	if err != nil {
		return err
	}
	return tui.Run(run, trend)
}

// loadBrowseData picks the run to browse: the given CSV, else the latest
// stored run with its history sparkline, else the configured output file.
func loadBrowseData(input string) (*models.Run, *aggregator.TrendSummary, error) {
	if input != "" {
		run, err := loadTableRun(input)
		return run, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	runs, err := recentRuns(store, cfg.LastRuns)
	if err != nil {
		return nil, nil, err
	}
	if len(runs) == 0 {
		logVerbose("no stored runs, browsing %s", cfg.Output)
		run, err := loadTableRun(cfg.Output)
		return run, nil, err
	}

	var trend *aggregator.TrendSummary
	if len(runs) > 1 {
		trend = aggregator.AnalyzeRuns(runs)
	}
	return runs[len(runs)-1], trend, nil
}
