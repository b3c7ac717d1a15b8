package reporter

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
)

// Scan status labels shown in the table.
const (
	StatusOK       = "ok"
	StatusFallback = "fallback"
	StatusFailed   = "failed"
)

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
	colors bool
}

// NewTextReporter creates a new text reporter. Colors are applied only when
// useColors is set.
func NewTextReporter(writer io.Writer, useColors bool) *TextReporter {
	return &TextReporter{
		writer: writer,
		colors: useColors,
	}
}

// Generate prints the summary, the trend (when known) and the metric table.
func (r *TextReporter) Generate(run *models.Run) error {
	r.printHeader()
	r.printf("Timestamp: %s\n\n", formatTimestamp(run.Timestamp))

	r.printSummary(run)

	if run.Table.Len() > 0 {
		if err := r.printTable(run.Table); err != nil {
			return err
		}
	}

	if run.Trend != nil {
		r.printf("\n")
		r.printTrendInfo(run.Trend)
	}
	return nil
}

func (r *TextReporter) printHeader() {
	r.printf("╔════════════════════════════════════════════╗\n")
	r.printf("║        sonarsweep analysis report          ║\n")
	r.printf("╚════════════════════════════════════════════╝\n\n")
}

func (r *TextReporter) printSummary(run *models.Run) {
	s := run.Summary
	r.printf("Summary:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Repositories: %d (%d scanned)\n", s.Repositories, s.Scanned)
	r.printf("  Bugs: %d  Vulnerabilities: %d  Code smells: %d\n", s.TotalBugs, s.TotalVulns, s.TotalCodeSmells)
	r.printf("  Security hotspots: %d\n", s.TotalHotspots)
	r.printf("  Total defects: %d", s.TotalDefects())
	if run.Trend != nil {
		r.printf(" %s %.1f%% from previous run", aggregator.TrendIndicator(run.Trend.Direction), run.Trend.ChangePercent)
	}
	r.printf("\n")
	if s.CoverageSamples > 0 {
		r.printf("  Mean coverage: %.1f%% (%d repositories)\n", s.MeanCoverage, s.CoverageSamples)
	}
	if s.TotalTestsPassed+s.TotalTestsFailed > 0 {
		r.printf("  Tests: %d passed, %d failed\n", s.TotalTestsPassed, s.TotalTestsFailed)
	}
	r.printf("\n")
}

func (r *TextReporter) printTable(table *models.MetricTable) error {
	t := tablewriter.NewWriter(r.writer)
	defer func() { _ = t.Close() }()

	headers := append([]string{}, table.Columns...)
	headers = append(headers, "scan")
	t.Header(headers)

	t.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	red, yellow, green := fmt.Sprint, fmt.Sprint, fmt.Sprint
	if r.colors {
		red = color.New(color.FgRed).SprintFunc()
		yellow = color.New(color.FgYellow).SprintFunc()
		green = color.New(color.FgGreen).SprintFunc()
	}

	data := make([][]string, 0, table.Len())
	for i, rec := range table.Records {
		row := table.Row(i)
		switch ScanStatus(rec) {
		case StatusFailed:
			row = append(row, red(StatusFailed))
		case StatusFallback:
			row = append(row, yellow(StatusFallback))
		default:
			row = append(row, green(StatusOK))
		}
		data = append(data, row)
	}

	if err := t.Bulk(data); err != nil {
		return err
	}
	return t.Render()
}

// ScanStatus classifies the scan outcome of a record.
func ScanStatus(rec models.RepositoryRecord) string {
	switch {
	case !rec.ScanSucceeded:
		return StatusFailed
	case rec.UsedFallback:
		return StatusFallback
	default:
		return StatusOK
	}
}

func (r *TextReporter) printTrendInfo(trend *models.Trend) {
	r.printf("Trend Analysis:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Direction: %s %s\n", trend.Direction, aggregator.TrendIndicator(trend.Direction))
	r.printf("  Change: %d → %d defects (%.1f%%)\n",
		trend.PreviousDefects,
		trend.CurrentDefects,
		trend.ChangePercent)
	r.printf("  Compared With: %s\n", formatTimestamp(trend.ComparedWith))
}

// printf is a helper to write formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}

// formatTimestamp formats a timestamp for display
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
