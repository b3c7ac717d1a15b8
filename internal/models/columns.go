package models

// Metric and column names. Names shared with the measures API use the
// server's metric keys verbatim.
const (
	ColumnRepo                   = "repo"
	MetricBugs                   = "bugs"
	MetricVulnerabilities        = "vulnerabilities"
	MetricCodeSmells             = "code_smells"
	MetricCoverage               = "coverage"
	MetricTestCoverage           = "test_coverage"
	MetricNcloc                  = "ncloc"
	MetricComplexity             = "complexity"
	MetricDuplicatedLinesDensity = "duplicated_lines_density"
	MetricSecurityHotspots       = "security_hotspots"
	MetricReliabilityRating      = "reliability_rating"
	MetricSecurityRating         = "security_rating"
	MetricSqaleRating            = "sqale_rating"
	MetricTestPassed             = "test_passed"
	MetricTestFailed             = "test_failed"
)

// CanonicalColumns is the fixed column order of the persisted table.
var CanonicalColumns = []string{
	ColumnRepo,
	MetricBugs,
	MetricVulnerabilities,
	MetricCodeSmells,
	MetricCoverage,
	MetricTestCoverage,
	MetricNcloc,
	MetricComplexity,
	MetricDuplicatedLinesDensity,
	MetricSecurityHotspots,
	MetricReliabilityRating,
	MetricSecurityRating,
	MetricSqaleRating,
	MetricTestPassed,
	MetricTestFailed,
}

// MeasureMetrics is the list of metrics requested from the measures API.
var MeasureMetrics = []string{
	MetricBugs,
	MetricCodeSmells,
	MetricVulnerabilities,
	MetricCoverage,
	MetricDuplicatedLinesDensity,
	MetricNcloc,
	MetricComplexity,
	MetricSecurityHotspots,
	MetricReliabilityRating,
	MetricSecurityRating,
	MetricSqaleRating,
}

// IsCanonicalColumn reports whether name is part of the persisted table.
func IsCanonicalColumn(name string) bool {
	for _, c := range CanonicalColumns {
		if c == name {
			return true
		}
	}
	return false
}
