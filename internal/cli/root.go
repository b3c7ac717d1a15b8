package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sonarsweep/internal/config"
	"github.com/ppiankov/sonarsweep/internal/logging"
)

const (
	ExitOK           = 0 // Success, including "no repositories found"
	ExitGateFailed   = 1 // Quality gate violated
	ExitInvalidInput = 2 // Invalid flags, config or input files
	ExitRuntimeError = 3 // I/O, permissions, or runtime error
)

var (
	// Global config instance
	cfg *config.Config

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// buildVersion is set from main via SetVersion.
	buildVersion = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sonarsweep",
	Short: "sonarsweep - batch static analysis across a directory of repositories",
	Long: `sonarsweep runs sonar-scanner and each repository's own tests across every
repository checked out under one directory, pulls the quality measures from
the analysis server, and writes one CSV row per repository plus two charts.

Quick start:
  sonarsweep doctor
  sonarsweep run --repos-dir ./repos --store
  sonarsweep browse

Other commands:
  sonarsweep discover
  sonarsweep report sonar_analysis_results.csv
  sonarsweep history --compare
  sonarsweep export --format parquet -o results.parquet`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return &ValidationError{Message: fmt.Sprintf("failed to load config: %v", err)}
		}

		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
		}

		return nil
	},
}

// Execute runs the root command and exits with the mapped exit code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		logError("%v", err)
	}
	os.Exit(HandleError(err))
}

// SetVersion records the build version shown by the version command.
func SetVersion(v string) {
	buildVersion = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./sonarsweep.yaml or ~/sonarsweep.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose, includes scanner output)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sonarsweep %s\n", buildVersion)
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}

	var validationErr *ValidationError
	var gateErr *GateFailedError
	switch {
	case errors.As(err, &validationErr):
		return ExitInvalidInput
	case errors.As(err, &gateErr):
		return ExitGateFailed
	default:
		return ExitRuntimeError
	}
}

// ValidationError represents invalid flags, configuration or input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GateFailedError is returned when the quality gate policy is violated.
type GateFailedError struct {
	Violations int
}

func (e *GateFailedError) Error() string {
	return fmt.Sprintf("quality gate failed: %d violation(s)", e.Violations)
}

// newLogger builds the shared logger from the loaded config.
func newLogger() *logging.Logger {
	if cfg == nil {
		return logging.Stderr(false, false)
	}
	return logging.Stderr(cfg.Verbose, cfg.Debug)
}

// logVerbose prints a message if verbose mode is enabled
func logVerbose(format string, args ...interface{}) {
	newLogger().Verbosef(format, args...)
}

// logDebug prints a message if debug mode is enabled
func logDebug(format string, args ...interface{}) {
	newLogger().Debugf(format, args...)
}

// logError prints an error message
func logError(format string, args ...interface{}) {
	newLogger().Errorf(format, args...)
}
