package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/config"
	"github.com/ppiankov/sonarsweep/internal/discovery"
	"github.com/ppiankov/sonarsweep/internal/logging"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/policy"
	"github.com/ppiankov/sonarsweep/internal/render"
	"github.com/ppiankov/sonarsweep/internal/reporter"
	"github.com/ppiankov/sonarsweep/internal/runner"
	"github.com/ppiankov/sonarsweep/internal/scanner"
	"github.com/ppiankov/sonarsweep/internal/sonar"
	"github.com/ppiankov/sonarsweep/internal/storage"
	"github.com/ppiankov/sonarsweep/internal/testrunner"
	"github.com/ppiankov/sonarsweep/internal/validator"
)

// PipelineConfig holds the per-invocation switches of the run command.
// Everything else comes from config.Config.
type PipelineConfig struct {
	Parquet      string
	Store        bool
	PolicyPath   string
	SkipTests    bool
	SkipExisting bool
	NoRender     bool
	DryRun       bool
}

// Deps are the side-effecting collaborators of the pipeline, replaced in
// tests.
type Deps struct {
	Exec     runner.ExecFunc
	LookPath discovery.LookPathFunc
	Sleep    sonar.SleepFunc
	Now      func() time.Time
	Stdout   io.Writer
	Colors   bool
	Log      *logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Exec == nil {
		d.Exec = runner.SystemExec
	}
	if d.Sleep == nil {
		d.Sleep = sonar.Sleep
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	return d
}

// RunPipeline analyzes every repository under c.ReposDir sequentially:
// scan → tests → measures → row, then writes the CSV and optional Parquet
// export, stores the run, prints the report, renders the charts and
// evaluates the quality gate.
func RunPipeline(ctx context.Context, c *config.Config, pcfg PipelineConfig, deps Deps) error {
	deps = deps.withDefaults()
	log := deps.Log

	// Step 1: Discover
	disc := discovery.New(deps.LookPath, c.CoverageReport)
	plan, err := disc.Discover(c.ReposDir)
	if err != nil {
		if !errors.Is(err, discovery.ErrRootNotFound) {
			return fmt.Errorf("failed to list repositories: %w", err)
		}
		log.Errorf("repositories directory not found: %s", c.ReposDir)
	}
	for _, name := range plan.Ignored {
		log.Verbosef("ignoring %s (listed in %s)", name, discovery.IgnoreFile)
	}

	if len(plan.Repositories) == 0 {
		log.Infof("no repositories found in %s", c.ReposDir)
		return nil
	}
	log.Infof("found %d repositories in %s", len(plan.Repositories), c.ReposDir)

	r := runner.New(deps.Exec)
	inv := scanner.New(r, scannerOptions(c), log)
	tests := testrunner.New(r, testrunner.Options{
		Command: c.TestCommandArgs(),
		Timeout: c.TestTimeout,
	}, log)

	if pcfg.DryRun {
		printDryRun(deps.Stdout, plan, inv, disc, pcfg.SkipTests, c.TestCommand)
		return nil
	}

	client := sonar.New(c.SonarURL, c.SonarToken, sonar.Options{
		Delay:   c.PollDelay,
		Timeout: c.RequestTimeout,
		Sleep:   deps.Sleep,
	}, log)
	if client == nil {
		log.Warnf("no sonar token configured, measures will not be fetched")
	}

	// Step 2: Analyze each repository
	agg := aggregator.New()
	for _, repo := range plan.Repositories {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("interrupted after %d repositories: %w", agg.Len(), err)
		}
		agg.Add(analyzeRepository(ctx, repo, pcfg, disc, inv, tests, client, log))
	}

	// Step 3: Trend against the last stored run
	var store *storage.LocalStorage
	var previous *models.Run
	if pcfg.Store {
		store, err = openStore(c)
		if err != nil {
			return err
		}
		if prev, err := store.GetLatestRun(); err == nil {
			log.Verbosef("found previous run from %s", prev.Timestamp.Format(time.RFC3339))
			previous = prev
		} else {
			log.Debugf("no previous run found: %v", err)
		}
	}
	run := agg.Run(deps.Now(), previous)

	var tableErr *validator.ValidationError
	if err := validator.New().ValidateTable(c.Output, run.Table); errors.As(err, &tableErr) {
		for _, msg := range tableErr.Errors {
			log.Warnf("suspicious measure: %s", msg)
		}
	}

	// Step 4: Persist the table
	if err := storage.WriteCSV(c.Output, run.Table); err != nil {
		if !errors.Is(err, storage.ErrEmptyTable) {
			return fmt.Errorf("failed to write results: %w", err)
		}
		log.Infof("no results to write")
	} else {
		log.Infof("results saved to %s", c.Output)
	}

	if pcfg.Parquet != "" {
		if err := storage.ExportParquet(pcfg.Parquet, run.Table); err != nil {
			return fmt.Errorf("failed to export parquet: %w", err)
		}
		log.Infof("parquet export written to %s", pcfg.Parquet)
	}

	if store != nil {
		if err := store.EnsureDirectoryExists(); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
		if err := store.SaveRun(run); err != nil {
			return fmt.Errorf("failed to store run: %w", err)
		}
		log.Verbosef("stored run in %s", store.GetStoragePath())
	}

	// Step 5: Report
	if err := generateOutput(deps.Stdout, run, c.Format, deps.Colors); err != nil {
		return fmt.Errorf("failed to generate output: %w", err)
	}

	// Step 6: Charts. Rendering problems never fail the run.
	if !pcfg.NoRender {
		renderer := render.New(render.DefaultOptions(), log)
		if err := renderer.Render(c.Output, c.ReportImage, c.SummaryImage); err != nil {
			log.Errorf("failed to render charts: %v", err)
		}
	}

	// Step 7: Quality gate
	return checkPolicy(run.Table, pcfg.PolicyPath, log)
}

func scannerOptions(c *config.Config) scanner.Options {
	return scanner.Options{
		Binary:          c.ScannerBinary,
		HostURL:         c.SonarURL,
		Token:           c.SonarToken,
		Organization:    c.SonarOrganization,
		Sources:         c.Sources,
		Exclusions:      c.Exclusions,
		Inclusions:      c.Inclusions,
		Tests:           c.Tests,
		TestInclusions:  c.TestInclusions,
		DisableFallback: c.DisableFallback,
		Verbose:         c.Debug,
		Timeout:         c.ScanTimeout,
	}
}

// analyzeRepository produces the record of one repository. Measures are
// only requested when the scan succeeded.
func analyzeRepository(ctx context.Context, repo discovery.Repository, pcfg PipelineConfig,
	disc *discovery.Discoverer, inv *scanner.Invoker, tests *testrunner.Runner,
	client *sonar.Client, log *logging.Logger) models.RepositoryRecord {

	var scan scanner.Result
	skipped := false
	if pcfg.SkipExisting && client != nil {
		key := scanner.AnalysisKey(repo.Name)
		exists, err := client.ComponentExists(ctx, key)
		switch {
		case err != nil:
			log.Warnf("cannot check %s on the server: %v", key, err)
		case exists:
			log.Infof("%s already analyzed, skipping scan", repo.Name)
			scan = scanner.Result{Repo: repo.Name, Key: key, Success: true}
			skipped = true
		}
	}
	if !skipped {
		scan = inv.Scan(ctx, repo)
	}

	var testMetrics map[string]models.Value
	if !pcfg.SkipTests {
		testMetrics = tests.Run(ctx, repo, disc.CoverageReportPath(repo)).Metrics
	}

	var measures map[string]models.Value
	if scan.Success {
		measures = client.Poll(ctx, scan.Key)
	}

	return aggregator.Merge(repo.Name, scan, measures, testMetrics)
}

func printDryRun(w io.Writer, plan *discovery.Plan, inv *scanner.Invoker, disc *discovery.Discoverer, skipTests bool, testCommand string) {
	fmt.Fprintf(w, "Dry run: would analyze %d repositories:\n\n", len(plan.Repositories))
	for _, repo := range plan.Repositories {
		params := inv.BuildParams(repo)
		fmt.Fprintf(w, "  %s\n", repo.Name)
		fmt.Fprintf(w, "    scan:  %s %s\n", inv.Binary(), strings.Join(params.Redacted(), " "))
		if !skipTests && repo.HasManifest() {
			fmt.Fprintf(w, "    tests: %s\n", testCommand)
		}
		fmt.Fprintf(w, "    coverage: %s\n", disc.CoverageReportPath(repo))
	}
}

// checkPolicy loads the policy (explicit path or the nearest policy file)
// and evaluates it.
func checkPolicy(table *models.MetricTable, explicit string, log *logging.Logger) error {
	path := explicit
	if path == "" {
		path = policy.FindPolicyFile()
	}
	if path == "" {
		return nil
	}
	log.Verbosef("found policy file: %s", path)

	pol, err := policy.LoadFromFile(path)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("failed to load policy: %v", err)}
	}
	if pol == nil {
		if explicit != "" {
			return &ValidationError{Message: fmt.Sprintf("policy file not found: %s", explicit)}
		}
		return nil
	}

	result := pol.Evaluate(table)
	if !result.Pass {
		for _, v := range result.Violations {
			log.Errorf("policy violation [%s]: %s", v.Rule, v.Message)
		}
		return &GateFailedError{Violations: len(result.Violations)}
	}
	log.Verbosef("policy check passed")
	return nil
}

// generateOutput writes the run in the requested format.
func generateOutput(w io.Writer, run *models.Run, format string, colors bool) error {
	switch format {
	case "text":
		return reporter.NewTextReporter(w, colors).Generate(run)
	case "json":
		return reporter.NewJSONReporter(w, true).Generate(run)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", format)}
	}
}

// openStore resolves the run history directory.
func openStore(c *config.Config) (*storage.LocalStorage, error) {
	path, err := c.GetStoragePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage path: %w", err)
	}
	return storage.NewLocal(path), nil
}

// commandContext returns the command context, which is unset when a
// command function is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// stdoutColors reports whether colored output suits stdout.
func stdoutColors() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
