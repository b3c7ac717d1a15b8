package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/reporter"
)

var tableColumns = []table.Column{
	{Title: "Repository", Width: 28},
	{Title: "Scan", Width: 9},
	{Title: "Bugs", Width: 6},
	{Title: "Vulns", Width: 6},
	{Title: "Smells", Width: 7},
	{Title: "Coverage", Width: 9},
	{Title: "Lines", Width: 8},
}

// buildRows converts repository records to table rows. Missing metrics
// render as "-".
func buildRows(records []models.RepositoryRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row{
			truncate(rec.Name, tableColumns[0].Width),
			reporter.ScanStatus(rec),
			cell(rec, models.MetricBugs),
			cell(rec, models.MetricVulnerabilities),
			cell(rec, models.MetricCodeSmells),
			coverageCell(rec),
			cell(rec, models.MetricNcloc),
		})
	}
	return rows
}

func cell(rec models.RepositoryRecord, col string) string {
	v, ok := rec.Get(col)
	if !ok || v.IsZero() {
		return "-"
	}
	return v.String()
}

func coverageCell(rec models.RepositoryRecord) string {
	cov, ok := aggregator.Coverage(rec)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", cov)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return s[:maxLen]
	}
	return s[:maxLen-len(ellipsis)] + ellipsis
}

// newTable creates a bubbles table with standard columns and styling.
func newTable(rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorAccent).
		Bold(false)
	t.SetStyles(s)

	return t
}
