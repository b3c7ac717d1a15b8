package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for sonarsweep
type Config struct {
	// Repositories and outputs
	ReposDir     string `mapstructure:"repos_dir"`
	Output       string `mapstructure:"output"`
	ReportImage  string `mapstructure:"report_image"`
	SummaryImage string `mapstructure:"summary_image"`

	// Analysis server (SONAR_URL, SONAR_TOKEN, SONAR_ORGANIZATION)
	SonarURL          string `mapstructure:"sonar_url"`
	SonarToken        string `mapstructure:"sonar_token"`
	SonarOrganization string `mapstructure:"sonar_organization"`

	// Wait between a finished scan and the measures query
	PollDelay      time.Duration `mapstructure:"poll_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Scanner invocation
	ScannerBinary   string        `mapstructure:"scanner_binary"`
	Sources         string        `mapstructure:"sources"`
	Exclusions      []string      `mapstructure:"exclusions"`
	Inclusions      []string      `mapstructure:"inclusions"`
	Tests           []string      `mapstructure:"tests"`
	TestInclusions  []string      `mapstructure:"test_inclusions"`
	DisableFallback bool          `mapstructure:"disable_fallback"`
	ScanTimeout     time.Duration `mapstructure:"scan_timeout"`

	// Test command and coverage report, relative to each repository
	TestCommand    string        `mapstructure:"test_command"`
	TestTimeout    time.Duration `mapstructure:"test_timeout"`
	CoverageReport string        `mapstructure:"coverage_report"`

	// Run history
	StorageDir string `mapstructure:"storage_dir"`
	LastRuns   int    `mapstructure:"last_runs"`

	// Output format (text, json)
	Format string `mapstructure:"format"`

	Verbose bool `mapstructure:"verbose"`
	Debug   bool `mapstructure:"debug"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		ReposDir:          "repos",
		Output:            "sonar_analysis_results.csv",
		ReportImage:       "sonar_report.png",
		SummaryImage:      "sonar_summary.png",
		SonarURL:          "http://localhost:9000",
		SonarOrganization: "drumondgit",
		PollDelay:         15 * time.Second,
		RequestTimeout:    30 * time.Second,
		ScannerBinary:     "sonar-scanner",
		Sources:           ".",
		Exclusions:        []string{"**/node_modules/**", "**/coverage/**"},
		ScanTimeout:       10 * time.Minute,
		TestCommand:       "npm test -- --coverage --watchAll=false",
		TestTimeout:       10 * time.Minute,
		CoverageReport:    "coverage/lcov.info",
		StorageDir:        ".sonarsweep",
		LastRuns:          7,
		Format:            "text",
	}
}

// Keys read from the conventional unprefixed variables in addition to
// SONARSWEEP_<KEY>.
var legacyEnv = map[string]string{
	"sonar_url":          "SONAR_URL",
	"sonar_token":        "SONAR_TOKEN",
	"sonar_organization": "SONAR_ORGANIZATION",
}

// configNames are the file names viper resolves for config name "sonarsweep".
var configNames = []string{"sonarsweep.yaml", "sonarsweep.yml"}

// configDirs returns the directories searched for a config file, in order.
func configDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		dirs = append(dirs, filepath.Join(xdgConfig, "sonarsweep"))
	}
	return dirs
}

// FindConfigFile returns the config file Load would read, or "" when
// defaults are used.
func FindConfigFile() string {
	for _, dir := range configDirs() {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (./sonarsweep.yaml, ~/sonarsweep.yaml, $XDG_CONFIG_HOME/sonarsweep)
// 3. Environment variables (SONARSWEEP_*, plus SONAR_URL/SONAR_TOKEN/SONAR_ORGANIZATION),
// with a .env file in the working directory loaded first
// 4. CLI flags (handled by caller)
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration from a specific file path
// If path is empty, it searches for config in standard locations
func LoadFromFile(configPath string) (*Config, error) {
	// Variables already set in the environment win over .env entries.
	_ = godotenv.Load()

	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("repos_dir", d.ReposDir)
	v.SetDefault("output", d.Output)
	v.SetDefault("report_image", d.ReportImage)
	v.SetDefault("summary_image", d.SummaryImage)
	v.SetDefault("sonar_url", d.SonarURL)
	v.SetDefault("sonar_token", "")
	v.SetDefault("sonar_organization", d.SonarOrganization)
	v.SetDefault("poll_delay", d.PollDelay)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("scanner_binary", d.ScannerBinary)
	v.SetDefault("sources", d.Sources)
	v.SetDefault("exclusions", d.Exclusions)
	v.SetDefault("inclusions", []string{})
	v.SetDefault("tests", []string{})
	v.SetDefault("test_inclusions", []string{})
	v.SetDefault("disable_fallback", false)
	v.SetDefault("scan_timeout", d.ScanTimeout)
	v.SetDefault("test_command", d.TestCommand)
	v.SetDefault("test_timeout", d.TestTimeout)
	v.SetDefault("coverage_report", d.CoverageReport)
	v.SetDefault("storage_dir", d.StorageDir)
	v.SetDefault("last_runs", d.LastRuns)
	v.SetDefault("format", d.Format)
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)

	v.SetConfigName("sonarsweep")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("SONARSWEEP")
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		if err := v.BindEnv(key, "SONARSWEEP_"+strings.ToUpper(key), name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Only return error if it's not a "file not found" error
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format: %s (must be text or json)", c.Format)
	}

	u, err := url.Parse(c.SonarURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid sonar_url: %q (must be an http(s) URL)", c.SonarURL)
	}

	if c.PollDelay < 0 {
		return fmt.Errorf("poll_delay cannot be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("scan_timeout must be positive")
	}
	if c.TestTimeout <= 0 {
		return fmt.Errorf("test_timeout must be positive")
	}

	if strings.TrimSpace(c.ScannerBinary) == "" {
		return fmt.Errorf("scanner_binary cannot be empty")
	}
	if len(c.TestCommandArgs()) == 0 {
		return fmt.Errorf("test_command cannot be empty")
	}

	if c.ReposDir == "" {
		return fmt.Errorf("repos_dir cannot be empty")
	}
	if c.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	if c.LastRuns <= 0 {
		return fmt.Errorf("last_runs must be positive")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}

	return nil
}

// TestCommandArgs splits test_command on whitespace.
func (c *Config) TestCommandArgs() []string {
	return strings.Fields(c.TestCommand)
}

// HasToken reports whether a server token is configured.
func (c *Config) HasToken() bool {
	return strings.TrimSpace(c.SonarToken) != ""
}

// GetStoragePath returns the absolute path to the storage directory
func (c *Config) GetStoragePath() (string, error) {
	if strings.HasPrefix(c.StorageDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, c.StorageDir[2:]), nil
	}

	absPath, err := filepath.Abs(c.StorageDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absPath, nil
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# sonarsweep configuration
# Save this file as ./sonarsweep.yaml or ~/sonarsweep.yaml

# Directory whose subdirectories are analyzed
repos_dir: repos

# Output files
output: sonar_analysis_results.csv
report_image: sonar_report.png
summary_image: sonar_summary.png

# Analysis server. SONAR_URL, SONAR_TOKEN and SONAR_ORGANIZATION
# (or SONARSWEEP_SONAR_*) override these; a .env file is read too.
sonar_url: http://localhost:9000
sonar_organization: drumondgit
# sonar_token: squ_your_token_here

# Wait after each scan before querying measures
poll_delay: 15s
request_timeout: 30s

# Scanner invocation
scanner_binary: sonar-scanner
sources: .
exclusions:
  - "**/node_modules/**"
  - "**/coverage/**"
# Directory-specific rules, dropped when the scan is retried
# inclusions: ["src/**"]
# tests: ["src"]
# test_inclusions: ["**/*.test.js"]
disable_fallback: false
scan_timeout: 10m

# Test command run in each repository that declares a test script
test_command: npm test -- --coverage --watchAll=false
test_timeout: 10m
coverage_report: coverage/lcov.info

# Run history
storage_dir: .sonarsweep
last_runs: 7

# Output format: text or json
format: text

verbose: false
debug: false
`
}
