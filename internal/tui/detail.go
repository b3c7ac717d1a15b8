package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/reporter"
)

// detailHeight is the fixed number of lines for the detail panel.
const detailHeight = 6

// metricsPerLine controls how the detail panel wraps metrics.
const metricsPerLine = 4

// renderDetail lists every metric the selected repository reports, in
// column order.
func renderDetail(rec *models.RepositoryRecord, columns []string, width int) string {
	if rec == nil {
		return styleDetailPanel.Width(width).Render("No repository selected")
	}

	var b strings.Builder

	status := reporter.ScanStatus(*rec)
	b.WriteString(fmt.Sprintf("%s  %s", rec.Name, statusStyle(status).Render(status)))
	if rec.AnalysisKey != "" {
		b.WriteString(fmt.Sprintf("  key: %s", rec.AnalysisKey))
	}
	if rec.Duration > 0 {
		b.WriteString(fmt.Sprintf("  took: %s", rec.Duration.Round(time.Millisecond)))
	}
	b.WriteString("\n")

	var parts []string
	for _, col := range columns {
		if col == models.ColumnRepo {
			continue
		}
		v, ok := rec.Get(col)
		if !ok || v.IsZero() {
			continue
		}
		parts = append(parts, styleMetricName.Render(col+":")+" "+v.String())
	}
	if len(parts) == 0 {
		b.WriteString("No metrics")
	}
	for i := 0; i < len(parts); i += metricsPerLine {
		end := i + metricsPerLine
		if end > len(parts) {
			end = len(parts)
		}
		b.WriteString(strings.Join(parts[i:end], "  "))
		if end < len(parts) {
			b.WriteString("\n")
		}
	}

	return styleDetailPanel.Width(width).Render(b.String())
}
