package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/reporter"
	"github.com/ppiankov/sonarsweep/internal/storage"
)

var (
	exportFormat string
	exportOutput string
	exportInput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a results table as CSV, JSON or Parquet",
	Long: `Export writes the latest stored run (or the results CSV given with
--input) in a format suited to spreadsheets, scripts or data tools.

Supported formats:
  csv      Canonical results table, identical to the file 'run' writes
  json     Table with summary and trend
  parquet  Typed columnar table for DuckDB, Spark or pandas (needs -o)

Example:
  sonarsweep export --format csv -o results.csv
  sonarsweep export --format json
  sonarsweep export --format parquet -o results.parquet --input sonar_analysis_results.csv`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv",
		"output format: csv, json, or parquet")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write output to file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "",
		"results CSV to export instead of the latest stored run")
}

func runExport(cmd *cobra.Command, args []string) error {
	switch exportFormat {
	case "csv", "json", "parquet":
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use csv, json, or parquet)", exportFormat)}
	}
	if exportFormat == "parquet" && exportOutput == "" {
		return &ValidationError{Message: "parquet export needs --output"}
	}

	run, err := exportSource(exportInput)
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored runs found. Run 'sonarsweep run --store' first or pass --input.")
		return nil
	}
	logVerbose("exporting %d repositories as %s", run.Table.Len(), exportFormat)

	if exportFormat == "parquet" {
		if err := storage.ExportParquet(exportOutput, run.Table); err != nil {
			return fmt.Errorf("failed to export parquet: %w", err)
		}
		return nil
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if exportFormat == "json" {
		return reporter.NewJSONReporter(w, true).Generate(run)
	}
	return storage.EncodeCSV(w, run.Table)
}

// exportSource loads the run to export. Returns nil without error when no
// input is given and nothing is stored.
func exportSource(input string) (*models.Run, error) {
	if input != "" {
		return loadTableRun(input)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	run, err := store.GetLatestRun()
	if errors.Is(err, storage.ErrNoRuns) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	return run, nil
}
