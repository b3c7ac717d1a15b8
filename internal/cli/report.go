package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/render"
	"github.com/ppiankov/sonarsweep/internal/storage"
	"github.com/ppiankov/sonarsweep/internal/validator"
)

var (
	reportFormat string
	reportImages bool
)

var reportCmd = &cobra.Command{
	Use:   "report [results.csv]",
	Short: "Print a report from an existing results table",
	Long: `Report reads a results CSV written by 'sonarsweep run' (default: the
configured output file) and prints it as text or JSON. With --images the
report and summary charts are redrawn from the same table.

Example:
  sonarsweep report
  sonarsweep report old_results.csv --format json
  sonarsweep report --images`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "",
		"output format: text or json (default from config)")
	reportCmd.Flags().BoolVar(&reportImages, "images", false,
		"redraw the report and summary charts")
}

func runReport(cmd *cobra.Command, args []string) error {
	path := cfg.Output
	if len(args) == 1 {
		path = args[0]
	}
	format := reportFormat
	if format == "" {
		format = cfg.Format
	}

	run, err := loadTableRun(path)
	if err != nil {
		return err
	}
	logVerbose("loaded %d repositories from %s", run.Table.Len(), path)

	if err := generateOutput(cmd.OutOrStdout(), run, format, stdoutColors()); err != nil {
		return err
	}

	if reportImages {
		renderer := render.New(render.DefaultOptions(), newLogger())
		if err := renderer.RenderTable(run.Table, cfg.ReportImage, cfg.SummaryImage); err != nil {
			return fmt.Errorf("failed to render charts: %w", err)
		}
	}
	return nil
}

// loadTableRun reads a results CSV into a Run stamped with the file's
// modification time. A missing, malformed or implausible table is invalid
// input.
func loadTableRun(path string) (*models.Run, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("cannot read results table: %v", err)}
	}
	table, err := storage.ReadCSV(path)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid results table %s: %v", path, err)}
	}
	if err := validator.New().ValidateTable(path, table); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return &models.Run{
		Timestamp: info.ModTime(),
		Table:     table,
		Summary:   aggregator.Summarize(table),
	}, nil
}
