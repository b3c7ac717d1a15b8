package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sonarsweep/internal/reporter"
	"github.com/ppiankov/sonarsweep/internal/storage"
)

var (
	showFormat      string
	showSummaryOnly bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest stored run",
	Long: `Show prints the most recent run stored with 'sonarsweep run --store',
including its trend against the run before it.

Example:
  sonarsweep show
  sonarsweep show --format json --summary-only`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "",
		"output format: text or json (default from config)")
	showCmd.Flags().BoolVar(&showSummaryOnly, "summary-only", false,
		"JSON output without per-repository rows")
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	run, err := store.GetLatestRun()
	if err != nil {
		if errors.Is(err, storage.ErrNoRuns) {
			fmt.Fprintln(cmd.OutOrStdout(), "No stored runs found. Run 'sonarsweep run --store' first.")
			return nil
		}
		return fmt.Errorf("failed to load latest run: %w", err)
	}

	format := showFormat
	if format == "" {
		format = cfg.Format
	}
	if format == "json" && showSummaryOnly {
		return reporter.NewJSONReporter(cmd.OutOrStdout(), true).GenerateSummaryOnly(run)
	}
	return generateOutput(cmd.OutOrStdout(), run, format, stdoutColors())
}
