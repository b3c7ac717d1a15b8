package models

import "time"

// RepositoryRecord is the merged outcome of processing one repository.
// It is built once by the aggregator and not modified afterwards.
type RepositoryRecord struct {
	Name          string           `json:"name"`
	AnalysisKey   string           `json:"analysis_key,omitempty"`
	Metrics       map[string]Value `json:"metrics"`
	ScanSucceeded bool             `json:"scan_succeeded"`
	UsedFallback  bool             `json:"used_fallback,omitempty"`
	Duration      time.Duration    `json:"duration"`
}

// Get returns the value of a column. The repo column always resolves to
// the record name.
func (r RepositoryRecord) Get(column string) (Value, bool) {
	if column == ColumnRepo {
		return String(r.Name), true
	}
	v, ok := r.Metrics[column]
	return v, ok
}

// Float returns the numeric reading of a metric.
func (r RepositoryRecord) Float(column string) (float64, bool) {
	v, ok := r.Get(column)
	if !ok {
		return 0, false
	}
	return v.Float()
}
