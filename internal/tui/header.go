package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
)

// headerHeight is the number of terminal lines the header occupies.
const headerHeight = 6

// renderHeader produces the header string from the run summary.
func renderHeader(run *models.Run, sparkline []int, width int) string {
	var b strings.Builder
	s := run.Summary

	// Line 1: title, timestamp and trend
	b.WriteString(fmt.Sprintf("sonarsweep  %s", run.Timestamp.Format("2006-01-02 15:04")))
	if run.Trend != nil {
		label := fmt.Sprintf("%s %+.1f%%", aggregator.TrendIndicator(run.Trend.Direction), run.Trend.ChangePercent)
		b.WriteString("  ")
		b.WriteString(trendStyle(run.Trend.Direction).Render(label))
	}
	b.WriteString("\n")

	// Line 2: repositories and defects
	b.WriteString(fmt.Sprintf("Repos: %d (%d scanned)  Defects: %d", s.Repositories, s.Scanned, s.TotalDefects()))
	b.WriteString("\n")

	// Line 3: breakdown
	b.WriteString(fmt.Sprintf("B:%d  V:%d  S:%d  H:%d", s.TotalBugs, s.TotalVulns, s.TotalCodeSmells, s.TotalHotspots))
	if s.CoverageSamples > 0 {
		b.WriteString(fmt.Sprintf("  Coverage: %.1f%%", s.MeanCoverage))
	}
	b.WriteString("\n")

	// Line 4: sparkline
	if len(sparkline) > 0 {
		b.WriteString("Trend: ")
		b.WriteString(renderSparkline(sparkline))
	}

	return styleHeader.Width(width).Render(b.String())
}

// renderSparkline converts an int slice to a unicode sparkline string.
func renderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		if hi == lo {
			b.WriteRune(bars[len(bars)/2])
		} else {
			idx := int(float64(v-lo) / float64(hi-lo) * float64(len(bars)-1))
			b.WriteRune(bars[idx])
		}
	}

	b.WriteString(fmt.Sprintf(" [%d→%d]", values[0], values[len(values)-1]))
	return b.String()
}
