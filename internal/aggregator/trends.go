package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/sonarsweep/internal/models"
)

// RepoTrend is the defect change of one repository between two runs.
type RepoTrend struct {
	Name            string  `json:"name"`
	PreviousDefects int     `json:"previous_defects"`
	CurrentDefects  int     `json:"current_defects"`
	Change          int     `json:"change"`
	ChangePercent   float64 `json:"change_percent"`
}

// TrendSummary describes defect movement across several stored runs.
type TrendSummary struct {
	RunsAnalyzed    int          `json:"runs_analyzed"`
	TimeRange       string       `json:"time_range"`
	DefectSparkline []int        `json:"defect_sparkline"`
	ByRepo          []*RepoTrend `json:"by_repo,omitempty"`
}

// CalculateTrend compares the defect total of current with previous.
// Returns nil when there is no previous run.
func CalculateTrend(current, previous *models.Run) *models.Trend {
	if current == nil || previous == nil {
		return nil
	}

	prev := previous.Summary.TotalDefects()
	curr := current.Summary.TotalDefects()
	change := curr - prev

	trend := &models.Trend{
		PreviousDefects: prev,
		CurrentDefects:  curr,
		ComparedWith:    previous.Timestamp,
	}
	if prev > 0 {
		trend.ChangePercent = float64(change) / float64(prev) * 100.0
	}

	switch {
	case change < 0:
		trend.Direction = models.TrendImproving
	case change > 0:
		trend.Direction = models.TrendDegrading
	default:
		trend.Direction = models.TrendStable
	}
	return trend
}

// AnalyzeRuns summarizes runs ordered oldest first.
func AnalyzeRuns(runs []*models.Run) *TrendSummary {
	if len(runs) == 0 {
		return nil
	}

	summary := &TrendSummary{RunsAnalyzed: len(runs)}
	if len(runs) > 1 {
		days := int(runs[len(runs)-1].Timestamp.Sub(runs[0].Timestamp).Hours() / 24)
		summary.TimeRange = fmt.Sprintf("Last %d days", days)
	} else {
		summary.TimeRange = "Single run"
	}

	summary.DefectSparkline = make([]int, len(runs))
	for i, run := range runs {
		summary.DefectSparkline[i] = run.Summary.TotalDefects()
	}

	if len(runs) >= 2 {
		summary.ByRepo = repoTrends(runs[0], runs[len(runs)-1])
	}
	return summary
}

// repoTrends compares every repository seen in either run, sorted by name.
func repoTrends(earliest, latest *models.Run) []*RepoTrend {
	before := defectsByRepo(earliest)
	after := defectsByRepo(latest)

	names := make(map[string]bool)
	for n := range before {
		names[n] = true
	}
	for n := range after {
		names[n] = true
	}

	out := make([]*RepoTrend, 0, len(names))
	for name := range names {
		prev, curr := before[name], after[name]
		change := curr - prev

		pct := 0.0
		if prev > 0 {
			pct = float64(change) / float64(prev) * 100.0
		} else if curr > 0 {
			// New repository or first defects
			pct = 100.0
		}

		out = append(out, &RepoTrend{
			Name:            name,
			PreviousDefects: prev,
			CurrentDefects:  curr,
			Change:          change,
			ChangePercent:   pct,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func defectsByRepo(run *models.Run) map[string]int {
	out := make(map[string]int)
	if run == nil || run.Table == nil {
		return out
	}
	for _, rec := range run.Table.Records {
		out[rec.Name] = intMetric(rec, models.MetricBugs) +
			intMetric(rec, models.MetricVulnerabilities) +
			intMetric(rec, models.MetricCodeSmells)
	}
	return out
}

// ComparisonReport renders a plain-text comparison of two runs.
func ComparisonReport(current, previous *models.Run) string {
	if previous == nil {
		return "No previous run to compare with"
	}

	trend := CalculateTrend(current, previous)

	var b strings.Builder
	fmt.Fprintf(&b, "Comparison: %s vs %s\n\n", formatDate(current.Timestamp), formatDate(previous.Timestamp))
	fmt.Fprintf(&b, "Overall: %d → %d defects (%.1f%% %s)\n",
		trend.PreviousDefects, trend.CurrentDefects, trend.ChangePercent, trend.Direction)

	changed := false
	for _, rt := range repoTrends(previous, current) {
		if rt.Change == 0 {
			continue
		}
		if !changed {
			b.WriteString("\n")
			changed = true
		}
		fmt.Fprintf(&b, "%s: %d → %d (%+d)\n", rt.Name, rt.PreviousDefects, rt.CurrentDefects, rt.Change)
	}
	return b.String()
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// TrendIndicator returns a visual indicator for a trend direction.
func TrendIndicator(direction string) string {
	switch direction {
	case models.TrendImproving:
		return "↓"
	case models.TrendDegrading:
		return "↑"
	case models.TrendStable:
		return "→"
	default:
		return "?"
	}
}
