package models

import "time"

// TableSummary holds cross-repository totals for one run.
type TableSummary struct {
	Repositories     int     `json:"repositories"`
	Scanned          int     `json:"scanned"`
	TotalBugs        int     `json:"total_bugs"`
	TotalVulns       int     `json:"total_vulnerabilities"`
	TotalCodeSmells  int     `json:"total_code_smells"`
	TotalHotspots    int     `json:"total_security_hotspots"`
	MeanCoverage     float64 `json:"mean_coverage"`
	CoverageSamples  int     `json:"coverage_samples"`
	TotalTestsPassed int     `json:"total_tests_passed"`
	TotalTestsFailed int     `json:"total_tests_failed"`
}

// TotalDefects is the sum of bugs, vulnerabilities and code smells.
func (s TableSummary) TotalDefects() int {
	return s.TotalBugs + s.TotalVulns + s.TotalCodeSmells
}

// Trend directions.
const (
	TrendImproving = "improving"
	TrendDegrading = "degrading"
	TrendStable    = "stable"
)

// Trend compares the defect total of a run with the previous stored run.
type Trend struct {
	Direction       string    `json:"direction"`
	PreviousDefects int       `json:"previous_defects"`
	CurrentDefects  int       `json:"current_defects"`
	ChangePercent   float64   `json:"change_percent"`
	ComparedWith    time.Time `json:"compared_with"`
}

// Run is one persisted execution of the pipeline.
type Run struct {
	Timestamp time.Time    `json:"timestamp"`
	Table     *MetricTable `json:"table"`
	Summary   TableSummary `json:"summary"`
	Trend     *Trend       `json:"trend,omitempty"`
}
