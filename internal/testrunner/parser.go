package testrunner

import (
	"regexp"
	"strconv"

	"github.com/ppiankov/sonarsweep/internal/models"
)

// OutputParser turns raw test runner console output into metrics.
// Implementations are best-effort: unrecognised output yields an empty map.
type OutputParser interface {
	Parse(output string) map[string]models.Value
}

// OutputParserFunc adapts a function to OutputParser.
type OutputParserFunc func(output string) map[string]models.Value

// Parse implements OutputParser.
func (f OutputParserFunc) Parse(output string) map[string]models.Value {
	return f(output)
}

var (
	jestSummary  = regexp.MustCompile(`(?m)^Tests:\s+(.*?)\s*$`)
	jestPassed   = regexp.MustCompile(`(\d+)\s+passed`)
	jestFailed   = regexp.MustCompile(`(\d+)\s+failed`)
	jestCoverage = regexp.MustCompile(`(?m)^\s*All files\s*\|\s*([\d.]+)`)
	ansiEscape   = regexp.MustCompile("\x1b\\[[0-9;]*m")
)

// JestParser reads the "Tests:" summary line and the "All files" row of
// the text coverage table printed by Jest.
type JestParser struct{}

// Parse implements OutputParser.
func (JestParser) Parse(output string) map[string]models.Value {
	metrics := make(map[string]models.Value)
	output = ansiEscape.ReplaceAllString(output, "")

	if m := jestSummary.FindAllStringSubmatch(output, -1); len(m) > 0 {
		// Watch mode and multi-project runs can print several summaries;
		// the last one is the final tally.
		line := m[len(m)-1][1]
		if n, ok := firstInt(jestPassed, line); ok {
			metrics[models.MetricTestPassed] = models.Int(n)
		}
		if n, ok := firstInt(jestFailed, line); ok {
			metrics[models.MetricTestFailed] = models.Int(n)
		}
	}

	if m := jestCoverage.FindStringSubmatch(output); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			metrics[models.MetricTestCoverage] = models.Number(f)
		}
	}

	return metrics
}

func firstInt(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
