// Package coverage reads LCOV line-coverage reports.
package coverage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/sonarsweep/internal/logging"
)

// DefaultReportPath is where JavaScript test runners write LCOV output,
// relative to the repository root.
const DefaultReportPath = "coverage/lcov.info"

const (
	prefixLinesFound = "LF:"
	prefixLinesHit   = "LH:"
)

// Summary holds the aggregate line counters of a report.
type Summary struct {
	LinesFound int `json:"lines_found"`
	LinesHit   int `json:"lines_hit"`
}

// Percent returns hit/found as a percentage rounded to two decimals,
// or 0 when no lines were found.
func (s Summary) Percent() float64 {
	if s.LinesFound == 0 {
		return 0
	}
	return math.Round(float64(s.LinesHit)/float64(s.LinesFound)*100*100) / 100
}

// Parse sums the LF and LH counters of every record in an LCOV stream.
func Parse(r io.Reader) (Summary, error) {
	var s Summary

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, prefixLinesFound):
			n, err := parseCounter(line, prefixLinesFound)
			if err != nil {
				return Summary{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			s.LinesFound += n
		case strings.HasPrefix(line, prefixLinesHit):
			n, err := parseCounter(line, prefixLinesHit)
			if err != nil {
				return Summary{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			s.LinesHit += n
		}
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, fmt.Errorf("read report: %w", err)
	}

	return s, nil
}

func parseCounter(line, prefix string) (int, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s counter %q", strings.TrimSuffix(prefix, ":"), raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative %s counter %d", strings.TrimSuffix(prefix, ":"), n)
	}
	return n, nil
}

// ParseFile parses the report at path.
func ParseFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// FromFile returns the coverage percentage of the report at path.
// A missing file, an empty report or a parse failure all yield 0;
// failures are logged and never returned.
func FromFile(path string, log *logging.Logger) float64 {
	s, err := ParseFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debugf("no coverage report at %s", path)
		} else {
			log.Warnf("failed to read coverage report %s: %v", path, err)
		}
		return 0
	}
	return s.Percent()
}
