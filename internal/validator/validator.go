// Package validator checks a results table before it is reported, exported
// or compared against history.
package validator

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sonarsweep/internal/models"
)

// MaxRepoLength bounds repository names read back from a table.
const MaxRepoLength = 255

// ValidationError lists every problem found in one table.
type ValidationError struct {
	Source string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid results table %s:\n  - %s", e.Source, strings.Join(e.Errors, "\n  - "))
}

// valueRange is the accepted interval of a numeric column. Counts have no
// upper bound.
type valueRange struct {
	min, max float64
	bounded  bool
}

var (
	counts  = valueRange{min: 0}
	percent = valueRange{min: 0, max: 100, bounded: true}
	rating  = valueRange{min: 1, max: 5, bounded: true}
)

var columnRanges = map[string]valueRange{
	models.MetricBugs:                   counts,
	models.MetricVulnerabilities:        counts,
	models.MetricCodeSmells:             counts,
	models.MetricNcloc:                  counts,
	models.MetricComplexity:             counts,
	models.MetricSecurityHotspots:       counts,
	models.MetricTestPassed:             counts,
	models.MetricTestFailed:             counts,
	models.MetricCoverage:               percent,
	models.MetricTestCoverage:           percent,
	models.MetricDuplicatedLinesDensity: percent,
	models.MetricReliabilityRating:      rating,
	models.MetricSecurityRating:         rating,
	models.MetricSqaleRating:            rating,
}

// Validator validates metric tables
type Validator struct{}

// New creates a new validator
func New() *Validator {
	return &Validator{}
}

// ValidateTable checks repository names and every non-empty cell. Empty
// cells are valid: they stand for metrics the repository did not report.
func (v *Validator) ValidateTable(source string, table *models.MetricTable) error {
	if table == nil {
		return &ValidationError{Source: source, Errors: []string{"table is missing"}}
	}

	var errors []string
	seen := make(map[string]bool, table.Len())

	for i, rec := range table.Records {
		row := i + 1
		name := strings.TrimSpace(rec.Name)
		switch {
		case name == "":
			errors = append(errors, fmt.Sprintf("row %d: missing repository name", row))
		case len(name) > MaxRepoLength:
			errors = append(errors, fmt.Sprintf("row %d: repository name exceeds %d characters", row, MaxRepoLength))
		case seen[name]:
			errors = append(errors, fmt.Sprintf("row %d: duplicate repository '%s'", row, name))
		}
		seen[name] = true

		for _, col := range table.Columns {
			if col == models.ColumnRepo {
				continue
			}
			v, _ := rec.Get(col)
			if msg := checkCell(col, v); msg != "" {
				errors = append(errors, fmt.Sprintf("row %d (%s): %s", row, name, msg))
			}
		}
	}

	if len(errors) > 0 {
		return &ValidationError{Source: source, Errors: errors}
	}
	return nil
}

func checkCell(col string, v models.Value) string {
	if v.IsZero() {
		return ""
	}
	r, ok := columnRanges[col]
	if !ok {
		return ""
	}

	f, ok := v.Float()
	if !ok {
		return fmt.Sprintf("column '%s' is not numeric: '%s'", col, v.String())
	}
	if f < r.min {
		return fmt.Sprintf("column '%s' below %g: %s", col, r.min, v.String())
	}
	if r.bounded && f > r.max {
		return fmt.Sprintf("column '%s' above %g: %s", col, r.max, v.String())
	}
	return ""
}
