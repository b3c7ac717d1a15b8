// Package testrunner runs a repository's own test command and reports
// pass/fail counts and local coverage.
package testrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/sonarsweep/internal/coverage"
	"github.com/ppiankov/sonarsweep/internal/discovery"
	"github.com/ppiankov/sonarsweep/internal/logging"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/runner"
)

// DefaultCommand runs the manifest's test script with coverage enabled and
// without watch mode.
var DefaultCommand = []string{"npm", "test", "--", "--coverage", "--watchAll=false"}

// Manifest is the subset of package.json the runner cares about.
type Manifest struct {
	Name    string            `json:"name"`
	Scripts map[string]string `json:"scripts"`
}

// HasTestScript reports whether the manifest declares a test script.
func (m *Manifest) HasTestScript() bool {
	if m == nil {
		return false
	}
	return strings.TrimSpace(m.Scripts["test"]) != ""
}

// ReadManifest parses a package.json file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// Options configures test runs.
type Options struct {
	Command []string
	Timeout time.Duration
	Parser  OutputParser
}

// Result is the outcome of running tests in one repository.
type Result struct {
	Ran      bool                    `json:"ran"`
	Success  bool                    `json:"success"`
	Metrics  map[string]models.Value `json:"metrics"`
	Duration time.Duration           `json:"duration"`
	Error    string                  `json:"error,omitempty"`
}

// Runner executes test commands.
type Runner struct {
	runner *runner.Runner
	opts   Options
	log    *logging.Logger
}

// New creates a test Runner.
func New(r *runner.Runner, opts Options, log *logging.Logger) *Runner {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.Parser == nil {
		opts.Parser = JestParser{}
	}
	return &Runner{
		runner: r,
		opts:   opts,
		log:    log,
	}
}

// Binary returns the test command executable.
func (r *Runner) Binary() string {
	return r.opts.Command[0]
}

// Run executes the test command when the repository manifest declares a
// test script, then reads local coverage. It never fails: problems are
// logged and produce a Result with fewer metrics.
func (r *Runner) Run(ctx context.Context, repo discovery.Repository, coverageReport string) Result {
	result := Result{Metrics: make(map[string]models.Value)}

	if !repo.HasManifest() {
		r.log.Verbosef("no %s in %s, skipping tests", discovery.ManifestFile, repo.Name)
		r.addCoverage(&result, coverageReport)
		return result
	}

	manifest, err := ReadManifest(repo.ManifestPath)
	if err != nil {
		r.log.Warnf("failed to read manifest for %s: %v", repo.Name, err)
		r.addCoverage(&result, coverageReport)
		return result
	}
	if !manifest.HasTestScript() {
		r.log.Verbosef("%s declares no test script, skipping tests", repo.Name)
		r.addCoverage(&result, coverageReport)
		return result
	}

	r.log.Infof("running tests for %s", repo.Name)
	res := r.runner.Run(ctx, runner.Command{
		Dir:     repo.Path,
		Binary:  r.opts.Command[0],
		Args:    r.opts.Command[1:],
		Timeout: r.opts.Timeout,
	})

	result.Ran = true
	result.Success = res.Success
	result.Duration = res.Duration
	if !res.Success {
		result.Error = res.Error
		r.log.Warnf("tests failed for %s: %s", repo.Name, res.Error)
	}

	for k, v := range r.opts.Parser.Parse(string(res.Output)) {
		result.Metrics[k] = v
	}
	if _, ok := result.Metrics[models.MetricTestPassed]; !ok {
		result.Metrics[models.MetricTestPassed] = models.Int(0)
	}
	if _, ok := result.Metrics[models.MetricTestFailed]; !ok {
		result.Metrics[models.MetricTestFailed] = models.Int(0)
	}

	// The report may only exist after the test run produced it.
	r.addCoverage(&result, coverageReport)
	return result
}

// addCoverage sets test_coverage from the LCOV report. A missing report
// yields 0 after a test run unless the console output already carried a
// percentage. Repositories whose tests never ran get no value at all.
func (r *Runner) addCoverage(result *Result, report string) {
	if report == "" {
		return
	}
	if _, err := os.Stat(report); err != nil {
		if !result.Ran {
			return
		}
		if _, ok := result.Metrics[models.MetricTestCoverage]; ok {
			return
		}
	}
	result.Metrics[models.MetricTestCoverage] = models.Number(coverage.FromFile(report, r.log))
}
