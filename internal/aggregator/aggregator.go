package aggregator

import (
	"time"

	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/scanner"
)

// Aggregator accumulates per-repository records in processing order.
type Aggregator struct {
	records []models.RepositoryRecord
}

// New creates a new aggregator
func New() *Aggregator {
	return &Aggregator{}
}

// Merge builds the record of one repository. The repo name comes first,
// then the server measures, then locally computed test metrics, which
// replace a measure of the same name.
func Merge(name string, scan scanner.Result, measures, tests map[string]models.Value) models.RepositoryRecord {
	metrics := make(map[string]models.Value, len(measures)+len(tests))
	for k, v := range measures {
		metrics[k] = v
	}
	for k, v := range tests {
		metrics[k] = v
	}
	delete(metrics, models.ColumnRepo)

	return models.RepositoryRecord{
		Name:          name,
		AnalysisKey:   scan.Key,
		Metrics:       metrics,
		ScanSucceeded: scan.Success,
		UsedFallback:  scan.UsedFallback,
		Duration:      scan.Duration,
	}
}

// Add appends a record.
func (a *Aggregator) Add(rec models.RepositoryRecord) {
	a.records = append(a.records, rec)
}

// Records returns a copy of the accumulated records.
func (a *Aggregator) Records() []models.RepositoryRecord {
	out := make([]models.RepositoryRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Len returns the number of accumulated records.
func (a *Aggregator) Len() int {
	return len(a.records)
}

// Table normalizes the accumulated records to the canonical column order.
func (a *Aggregator) Table() *models.MetricTable {
	return models.NewMetricTable(a.Records())
}

// Run wraps the table, its summary and the trend against previous into a
// history entry stamped with ts.
func (a *Aggregator) Run(ts time.Time, previous *models.Run) *models.Run {
	table := a.Table()
	run := &models.Run{
		Timestamp: ts,
		Table:     table,
		Summary:   Summarize(table),
	}
	run.Trend = CalculateTrend(run, previous)
	return run
}

// Summarize computes cross-repository totals. Non-numeric cells are skipped.
func Summarize(table *models.MetricTable) models.TableSummary {
	var s models.TableSummary
	if table == nil {
		return s
	}

	var coverageSum float64
	for _, rec := range table.Records {
		s.Repositories++
		if rec.ScanSucceeded {
			s.Scanned++
		}
		s.TotalBugs += intMetric(rec, models.MetricBugs)
		s.TotalVulns += intMetric(rec, models.MetricVulnerabilities)
		s.TotalCodeSmells += intMetric(rec, models.MetricCodeSmells)
		s.TotalHotspots += intMetric(rec, models.MetricSecurityHotspots)
		s.TotalTestsPassed += intMetric(rec, models.MetricTestPassed)
		s.TotalTestsFailed += intMetric(rec, models.MetricTestFailed)

		if cov, ok := Coverage(rec); ok {
			coverageSum += cov
			s.CoverageSamples++
		}
	}

	if s.CoverageSamples > 0 {
		s.MeanCoverage = coverageSum / float64(s.CoverageSamples)
	}
	return s
}

// Coverage returns the server coverage of a record, falling back to the
// locally measured test coverage.
func Coverage(rec models.RepositoryRecord) (float64, bool) {
	if v, ok := rec.Float(models.MetricCoverage); ok {
		return v, true
	}
	return rec.Float(models.MetricTestCoverage)
}

func intMetric(rec models.RepositoryRecord, name string) int {
	v, ok := rec.Float(name)
	if !ok {
		return 0
	}
	return int(v)
}
