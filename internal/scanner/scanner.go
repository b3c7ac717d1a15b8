// Package scanner drives the static-analysis scanner CLI against a
// single repository.
package scanner

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/sonarsweep/internal/discovery"
	"github.com/ppiankov/sonarsweep/internal/logging"
	"github.com/ppiankov/sonarsweep/internal/runner"
)

// DefaultBinary is the scanner executable looked up on PATH.
const DefaultBinary = "sonar-scanner"

// Options configures scanner invocations.
type Options struct {
	Binary       string
	HostURL      string
	Token        string
	Organization string
	Sources      string
	Encoding     string

	Exclusions     []string
	Inclusions     []string
	Tests          []string
	TestInclusions []string

	// DisableFallback turns off the retry with the reduced parameter set.
	DisableFallback bool
	Verbose         bool
	Timeout         time.Duration
}

// Result is the outcome of scanning one repository.
type Result struct {
	Repo         string        `json:"repo"`
	Key          string        `json:"key,omitempty"`
	Success      bool          `json:"success"`
	UsedFallback bool          `json:"used_fallback,omitempty"`
	Attempts     int           `json:"attempts"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

// Invoker runs the scanner through a runner.Runner.
type Invoker struct {
	runner *runner.Runner
	opts   Options
	log    *logging.Logger
}

// New creates an Invoker.
func New(r *runner.Runner, opts Options, log *logging.Logger) *Invoker {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Sources == "" {
		opts.Sources = "."
	}
	if opts.Encoding == "" {
		opts.Encoding = "UTF-8"
	}
	return &Invoker{
		runner: r,
		opts:   opts,
		log:    log,
	}
}

// Binary returns the scanner executable name.
func (i *Invoker) Binary() string {
	return i.opts.Binary
}

// BuildParams assembles the primary parameter set for repo.
func (i *Invoker) BuildParams(repo discovery.Repository) Params {
	p := Params{
		PropProjectKey:     AnalysisKey(repo.Name),
		PropSources:        i.opts.Sources,
		PropHostURL:        i.opts.HostURL,
		PropSourceEncoding: i.opts.Encoding,
	}
	if i.opts.Organization != "" {
		p[PropOrganization] = i.opts.Organization
	}
	if i.opts.Token != "" {
		p[PropLogin] = i.opts.Token
	}
	if len(i.opts.Exclusions) > 0 {
		p[PropExclusions] = strings.Join(i.opts.Exclusions, ",")
	}
	if len(i.opts.Inclusions) > 0 {
		p[PropInclusions] = strings.Join(i.opts.Inclusions, ",")
	}
	if len(i.opts.Tests) > 0 {
		p[PropTests] = strings.Join(i.opts.Tests, ",")
	}
	if len(i.opts.TestInclusions) > 0 {
		p[PropTestInclusions] = strings.Join(i.opts.TestInclusions, ",")
	}
	if repo.HasCoverageReport() {
		if rel, err := filepath.Rel(repo.Path, repo.CoverageReport); err == nil {
			p[PropLcovReports] = filepath.ToSlash(rel)
		}
	}
	if i.opts.Verbose {
		p[PropVerbose] = "true"
	}
	return p
}

// Scan runs the scanner in the repository directory. A failed run is
// retried exactly once with the fallback parameter set unless fallback is
// disabled. Key is only set when a run exits with status zero.
func (i *Invoker) Scan(ctx context.Context, repo discovery.Repository) Result {
	i.log.Infof("analyzing repository: %s", repo.Name)

	params := i.BuildParams(repo)
	result := Result{Repo: repo.Name}
	start := time.Now()

	res := i.attempt(ctx, repo, params)
	result.Attempts = 1

	if !res.Success && !i.opts.DisableFallback {
		i.log.Warnf("scan of %s failed (%s), retrying with fallback parameters", repo.Name, res.Error)
		if !params.HasDirectoryRules() {
			i.log.Verbosef("fallback parameters for %s match the primary set", repo.Name)
		}
		res = i.attempt(ctx, repo, params.Fallback())
		result.Attempts = 2
		result.UsedFallback = true
	}

	result.Duration = time.Since(start)

	if !res.Success {
		result.Error = res.Error
		i.log.Errorf("failed to analyze %s: %s", repo.Name, res.Error)
		return result
	}

	result.Success = true
	result.Key = params[PropProjectKey]
	i.log.Infof("analysis completed for %s (%s)", repo.Name, result.Duration.Round(time.Millisecond))
	return result
}

func (i *Invoker) attempt(ctx context.Context, repo discovery.Repository, params Params) runner.Result {
	i.log.Debugf("%s %s", i.opts.Binary, strings.Join(params.Redacted(), " "))

	res := i.runner.Run(ctx, runner.Command{
		Dir:     repo.Path,
		Binary:  i.opts.Binary,
		Args:    params.Args(),
		Timeout: i.opts.Timeout,
	})

	if len(res.Output) > 0 {
		i.log.Debugf("scanner output for %s:\n%s", repo.Name, strings.TrimRight(string(res.Output), "\n"))
	}
	return res
}
