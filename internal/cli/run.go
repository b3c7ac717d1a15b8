package cli

import (
	"os/exec"
	"time"

	"github.com/spf13/cobra"
)

var (
	runReposDir     string
	runOutput       string
	runReportImage  string
	runSummaryImage string
	runPollDelay    time.Duration
	runFormat       string
	runParquet      string
	runPolicy       string
	runStore        bool
	runNoRender     bool
	runSkipTests    bool
	runSkipExisting bool
	runDryRun       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan, test and collect measures for every repository",
	Long: `Run performs a full analysis cycle:

  1. Discover - list the repositories under --repos-dir
  2. Scan     - run sonar-scanner in each one, retrying once with fallback parameters
  3. Test     - run the test command and read the LCOV coverage report
  4. Measure  - wait --poll-delay, then fetch the measures of each scanned project
  5. Persist  - write the CSV table (and --parquet), store the run with --store
  6. Report   - print the table, draw the report and summary charts
  7. Gate     - evaluate .sonarsweep-policy.yaml when present

Repositories are processed one at a time. Use --dry-run to see the scanner
command lines without executing anything.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runReposDir, "repos-dir", "",
		"directory containing the repositories (default from config: repos)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "",
		"CSV results file (default from config: sonar_analysis_results.csv)")
	runCmd.Flags().StringVar(&runReportImage, "report-image", "",
		"report chart path (default from config: sonar_report.png)")
	runCmd.Flags().StringVar(&runSummaryImage, "summary-image", "",
		"summary chart path (default from config: sonar_summary.png)")
	runCmd.Flags().DurationVar(&runPollDelay, "poll-delay", -1,
		"wait between a scan and the measures query (default from config: 15s)")
	runCmd.Flags().StringVar(&runFormat, "format", "",
		"terminal output format: text or json (default from config)")
	runCmd.Flags().StringVar(&runParquet, "parquet", "",
		"also export the table as Parquet to this path")
	runCmd.Flags().StringVar(&runPolicy, "policy", "",
		"quality gate policy file (default: nearest .sonarsweep-policy.yaml)")
	runCmd.Flags().BoolVar(&runStore, "store", false,
		"persist the run for trend analysis")
	runCmd.Flags().BoolVar(&runNoRender, "no-render", false,
		"skip chart rendering")
	runCmd.Flags().BoolVar(&runSkipTests, "skip-tests", false,
		"do not run repository tests")
	runCmd.Flags().BoolVar(&runSkipExisting, "skip-existing", false,
		"skip the scan of projects the server already knows")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false,
		"show the analysis plan without executing anything")
}

func runRun(cmd *cobra.Command, args []string) error {
	c := *cfg
	if runReposDir != "" {
		c.ReposDir = runReposDir
	}
	if runOutput != "" {
		c.Output = runOutput
	}
	if runReportImage != "" {
		c.ReportImage = runReportImage
	}
	if runSummaryImage != "" {
		c.SummaryImage = runSummaryImage
	}
	if runPollDelay >= 0 {
		c.PollDelay = runPollDelay
	}
	if runFormat != "" {
		c.Format = runFormat
	}
	if err := c.Validate(); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	return RunPipeline(commandContext(cmd), &c, PipelineConfig{
		Parquet:      runParquet,
		Store:        runStore,
		PolicyPath:   runPolicy,
		SkipTests:    runSkipTests,
		SkipExisting: runSkipExisting,
		NoRender:     runNoRender,
		DryRun:       runDryRun,
	}, Deps{
		LookPath: exec.LookPath,
		Stdout:   cmd.OutOrStdout(),
		Colors:   stdoutColors(),
		Log:      newLogger(),
	})
}
