package tui

import (
	"sort"
	"strings"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/reporter"
)

// filterState holds current active filters.
type filterState struct {
	Status     string
	SearchText string
}

// sortField enumerates the orderings the table cycles through.
type sortField int

const (
	sortByName sortField = iota
	sortByDefects
	sortByBugs
	sortByVulnerabilities
	sortByCodeSmells
	sortByCoverage
	sortByNcloc
)

// sortFieldCount is the total number of sort orders.
const sortFieldCount = 7

// statusChoices are the scan states offered by the status filter.
var statusChoices = []string{reporter.StatusOK, reporter.StatusFallback, reporter.StatusFailed}

// applyFilters returns records matching all active filters.
func applyFilters(records []models.RepositoryRecord, f filterState) []models.RepositoryRecord {
	result := make([]models.RepositoryRecord, 0, len(records))
	searchLower := strings.ToLower(f.SearchText)

	for _, rec := range records {
		if f.Status != "" && reporter.ScanStatus(rec) != f.Status {
			continue
		}
		if searchLower != "" && !matchesSearch(rec, searchLower) {
			continue
		}
		result = append(result, rec)
	}
	return result
}

func matchesSearch(rec models.RepositoryRecord, searchLower string) bool {
	return strings.Contains(strings.ToLower(rec.Name), searchLower) ||
		strings.Contains(strings.ToLower(rec.AnalysisKey), searchLower)
}

// defects is the per-repository bugs + vulnerabilities + code smells.
func defects(rec models.RepositoryRecord) int {
	total := 0
	for _, col := range []string{models.MetricBugs, models.MetricVulnerabilities, models.MetricCodeSmells} {
		if v, ok := rec.Float(col); ok {
			total += int(v)
		}
	}
	return total
}

// metricDesc orders by a metric, highest first. Missing values sort last.
func metricDesc(a, b models.RepositoryRecord, col string) bool {
	av, aok := a.Float(col)
	bv, bok := b.Float(col)
	if aok != bok {
		return aok
	}
	return av > bv
}

// sortRecords sorts records in place by the given field. Coverage sorts
// lowest first so the weakest repositories come to the top.
func sortRecords(records []models.RepositoryRecord, field sortField) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		switch field {
		case sortByName:
			return a.Name < b.Name
		case sortByDefects:
			return defects(a) > defects(b)
		case sortByBugs:
			return metricDesc(a, b, models.MetricBugs)
		case sortByVulnerabilities:
			return metricDesc(a, b, models.MetricVulnerabilities)
		case sortByCodeSmells:
			return metricDesc(a, b, models.MetricCodeSmells)
		case sortByCoverage:
			ac, aok := aggregator.Coverage(a)
			bc, bok := aggregator.Coverage(b)
			if aok != bok {
				return aok
			}
			return ac < bc
		case sortByNcloc:
			return metricDesc(a, b, models.MetricNcloc)
		default:
			return false
		}
	})
}

// sortFieldName returns a human-readable name for the sort field.
func sortFieldName(f sortField) string {
	switch f {
	case sortByName:
		return "name"
	case sortByDefects:
		return "defects"
	case sortByBugs:
		return "bugs"
	case sortByVulnerabilities:
		return "vulnerabilities"
	case sortByCodeSmells:
		return "code smells"
	case sortByCoverage:
		return "coverage"
	case sortByNcloc:
		return "lines"
	default:
		return "unknown"
	}
}
