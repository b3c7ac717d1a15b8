package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/storage"
)

var (
	historyLastN   int
	historyCompare bool
	historyFormat  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored runs and defect trends",
	Long: `Analyze the runs stored with 'sonarsweep run --store' and show how the
defect count moved over time.

This command displays:
- The last N runs with their totals
- A defect sparkline across those runs
- Per-repository defect change between the first and last of them

Example:
  sonarsweep history
  sonarsweep history --last 10
  sonarsweep history --compare
  sonarsweep history --format json`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLastN, "last", "n", 0,
		"number of runs to analyze (default from config)")
	historyCmd.Flags().BoolVarP(&historyCompare, "compare", "c", false,
		"compare the latest run with the previous one")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text",
		"output format: text or json")
}

type historyOutput struct {
	Runs  []historyRun             `json:"runs"`
	Trend *aggregator.TrendSummary `json:"trend,omitempty"`
}

type historyRun struct {
	Timestamp string              `json:"timestamp"`
	Summary   models.TableSummary `json:"summary"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	lastN := historyLastN
	if lastN <= 0 {
		lastN = cfg.LastRuns
	}
	if historyFormat != "text" && historyFormat != "json" {
		return &ValidationError{Message: fmt.Sprintf("invalid format: %s (must be text or json)", historyFormat)}
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	logVerbose("loading runs from: %s", store.GetStoragePath())

	out := cmd.OutOrStdout()

	if historyCompare {
		lastN = 2
	}
	runs, err := recentRuns(store, lastN)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No stored runs found.")
		fmt.Fprintln(out, "Run 'sonarsweep run --store' to record your first run.")
		return nil
	}

	if historyCompare {
		if len(runs) < 2 {
			fmt.Fprintln(out, "Need at least 2 runs for comparison.")
			return nil
		}
		fmt.Fprint(out, aggregator.ComparisonReport(runs[1], runs[0]))
		return nil
	}

	trend := aggregator.AnalyzeRuns(runs)
	if historyFormat == "json" {
		return writeHistoryJSON(out, runs, trend)
	}
	return writeHistoryText(out, runs, trend)
}

func writeHistoryJSON(w io.Writer, runs []*models.Run, trend *aggregator.TrendSummary) error {
	doc := historyOutput{Trend: trend}
	for _, run := range runs {
		doc.Runs = append(doc.Runs, historyRun{
			Timestamp: run.Timestamp.UTC().Format(time.RFC3339),
			Summary:   run.Summary,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func writeHistoryText(w io.Writer, runs []*models.Run, trend *aggregator.TrendSummary) error {
	fmt.Fprintf(w, "Runs analyzed: %d (%s)\n\n", trend.RunsAnalyzed, trend.TimeRange)

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		s := run.Summary
		cov := "-"
		if s.CoverageSamples > 0 {
			cov = fmt.Sprintf("%.1f%%", s.MeanCoverage)
		}
		rows = append(rows, []string{
			run.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d/%d", s.Scanned, s.Repositories),
			fmt.Sprintf("%d", s.TotalBugs),
			fmt.Sprintf("%d", s.TotalVulns),
			fmt.Sprintf("%d", s.TotalCodeSmells),
			fmt.Sprintf("%d", s.TotalDefects()),
			cov,
		})
	}
	if err := writeTable(w, []string{"Run", "Scanned", "Bugs", "Vulns", "Smells", "Defects", "Coverage"}, rows); err != nil {
		return err
	}

	if len(trend.DefectSparkline) > 1 {
		parts := make([]string, len(trend.DefectSparkline))
		for i, v := range trend.DefectSparkline {
			parts[i] = fmt.Sprintf("%d", v)
		}
		fmt.Fprintf(w, "\nDefects: %s\n", strings.Join(parts, " → "))
	}

	var changed [][]string
	for _, rt := range trend.ByRepo {
		if rt.Change == 0 {
			continue
		}
		changed = append(changed, []string{
			rt.Name,
			fmt.Sprintf("%d", rt.PreviousDefects),
			fmt.Sprintf("%d", rt.CurrentDefects),
			fmt.Sprintf("%+d", rt.Change),
			fmt.Sprintf("%+.1f%%", rt.ChangePercent),
		})
	}
	if len(changed) > 0 {
		fmt.Fprintln(w)
		return writeTable(w, []string{"Repository", "Before", "After", "Change", "%"}, changed)
	}
	return nil
}

// recentRuns returns the last n runs, oldest first. An empty history is not
// an error.
func recentRuns(h storage.History, n int) ([]*models.Run, error) {
	runs, err := h.GetLastNRuns(n)
	if err != nil && !errors.Is(err, storage.ErrNoRuns) {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	return runs, nil
}
