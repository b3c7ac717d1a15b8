package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sonarsweep/internal/config"
	"github.com/ppiankov/sonarsweep/internal/discovery"
	"github.com/ppiankov/sonarsweep/internal/scanner"
	"github.com/ppiankov/sonarsweep/internal/sonar"
)

var (
	doctorFormat        string
	doctorCheckProjects bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment readiness and diagnose common problems",
	Long: `Doctor validates your sonarsweep setup end-to-end:

  1. Config file  - found and readable?
  2. Token        - SONAR_TOKEN configured?
  3. Server       - reachable and UP?
  4. Tools        - scanner and test command on PATH?
  5. Repositories - directory present and non-empty?
  6. Storage      - history directory writable?

With --check-projects every discovered repository is also looked up on the
server. Fix the issues it reports, then run 'sonarsweep run' with confidence.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text",
		"output format: text or json")
	doctorCmd.Flags().BoolVar(&doctorCheckProjects, "check-projects", false,
		"check which repositories already exist on the server")
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

type doctorResult struct {
	Checks  []doctorCheck `json:"checks"`
	Summary string        `json:"summary"`
}

const doctorTimeout = 5 * time.Second

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	client := sonar.New(cfg.SonarURL, cfg.SonarToken, sonar.Options{Timeout: doctorTimeout}, nil)

	var checks []doctorCheck
	checks = append(checks, checkConfig())
	checks = append(checks, checkToken())
	checks = append(checks, checkServer(ctx, client))
	checks = append(checks, checkTools(exec.LookPath)...)
	checks = append(checks, checkRepos())
	if doctorCheckProjects {
		checks = append(checks, checkProjects(ctx, client)...)
	}
	checks = append(checks, checkStorage())

	result := summarizeChecks(checks)

	if doctorFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	writeDoctorText(cmd.OutOrStdout(), result)
	return nil
}

func summarizeChecks(checks []doctorCheck) doctorResult {
	fails, warns := 0, 0
	for _, c := range checks {
		switch c.Status {
		case "fail":
			fails++
		case "warn":
			warns++
		}
	}

	summary := "all checks passed"
	if fails > 0 {
		summary = fmt.Sprintf("%d issue(s) found", fails)
	} else if warns > 0 {
		summary = fmt.Sprintf("ok with %d warning(s)", warns)
	}
	return doctorResult{Checks: checks, Summary: summary}
}

func writeDoctorText(w io.Writer, result doctorResult) {
	icons := map[string]string{
		"ok":   "✓",
		"warn": "△",
		"fail": "✗",
	}

	for _, c := range result.Checks {
		icon := icons[c.Status]
		if c.Detail != "" {
			fmt.Fprintf(w, "  %s %-20s %s\n", icon, c.Name, c.Detail)
		} else {
			fmt.Fprintf(w, "  %s %s\n", icon, c.Name)
		}
	}

	fmt.Fprintf(w, "\n%s\n", result.Summary)
}

func checkConfig() doctorCheck {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return doctorCheck{Name: "config", Status: "warn", Detail: "no config file found (using defaults)"}
	}
	if _, err := os.Stat(path); err != nil {
		return doctorCheck{Name: "config", Status: "fail", Detail: fmt.Sprintf("%s: %v", path, err)}
	}
	return doctorCheck{Name: "config", Status: "ok", Detail: path}
}

func checkToken() doctorCheck {
	if !cfg.HasToken() {
		return doctorCheck{
			Name:   "token",
			Status: "warn",
			Detail: "not configured. Set SONAR_TOKEN; measures will not be fetched",
		}
	}
	return doctorCheck{Name: "token", Status: "ok", Detail: "configured"}
}

func checkServer(ctx context.Context, client *sonar.Client) doctorCheck {
	if client == nil {
		return doctorCheck{Name: "server", Status: "warn", Detail: fmt.Sprintf("%s (not checked without a token)", cfg.SonarURL)}
	}

	status, err := client.ServerStatus(ctx)
	if err != nil {
		return doctorCheck{Name: "server", Status: "fail", Detail: fmt.Sprintf("%s unreachable (%v)", cfg.SonarURL, err)}
	}
	if !strings.HasPrefix(status, "UP") {
		return doctorCheck{Name: "server", Status: "warn", Detail: fmt.Sprintf("%s status %s", cfg.SonarURL, status)}
	}
	return doctorCheck{Name: "server", Status: "ok", Detail: fmt.Sprintf("%s %s", cfg.SonarURL, status)}
}

func checkTools(lookPath discovery.LookPathFunc) []doctorCheck {
	d := discovery.New(lookPath, cfg.CoverageReport)

	binaries := []string{cfg.ScannerBinary}
	if args := cfg.TestCommandArgs(); len(args) > 0 {
		binaries = append(binaries, args[0])
	}

	var checks []doctorCheck
	for i, tool := range d.CheckTools(binaries...) {
		c := doctorCheck{Name: tool.Binary, Status: "ok", Detail: tool.Path}
		if !tool.Available {
			// A missing scanner makes every scan fail; a missing test
			// runner only loses test metrics.
			c.Status = "warn"
			if i == 0 {
				c.Status = "fail"
			}
			c.Detail = "not found in PATH"
		}
		checks = append(checks, c)
	}
	return checks
}

func checkRepos() doctorCheck {
	plan, err := discovery.New(nil, cfg.CoverageReport).Discover(cfg.ReposDir)
	if err != nil {
		return doctorCheck{Name: "repositories", Status: "fail", Detail: fmt.Sprintf("%s: %v", cfg.ReposDir, err)}
	}
	if len(plan.Repositories) == 0 {
		return doctorCheck{Name: "repositories", Status: "warn", Detail: fmt.Sprintf("%s contains no repositories", cfg.ReposDir)}
	}
	return doctorCheck{
		Name:   "repositories",
		Status: "ok",
		Detail: fmt.Sprintf("%d in %s", len(plan.Repositories), cfg.ReposDir),
	}
}

// checkProjects looks up the analysis key of every repository.
func checkProjects(ctx context.Context, client *sonar.Client) []doctorCheck {
	if client == nil {
		return nil
	}
	plan, err := discovery.New(nil, cfg.CoverageReport).Discover(cfg.ReposDir)
	if err != nil {
		return nil
	}

	checks := make([]doctorCheck, 0, len(plan.Repositories))
	for _, repo := range plan.Repositories {
		key := scanner.AnalysisKey(repo.Name)
		c := doctorCheck{Name: "project " + key}
		exists, err := client.ComponentExists(ctx, key)
		switch {
		case err != nil:
			c.Status, c.Detail = "fail", err.Error()
		case exists:
			c.Status, c.Detail = "ok", "analyzed before"
		default:
			c.Status, c.Detail = "warn", "not on the server yet"
		}
		checks = append(checks, c)
	}
	return checks
}

func checkStorage() doctorCheck {
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		return doctorCheck{Name: "storage", Status: "fail", Detail: err.Error()}
	}

	info, err := os.Stat(storagePath)
	if err != nil {
		return doctorCheck{
			Name:   "storage",
			Status: "ok",
			Detail: fmt.Sprintf("%s (will be created on first --store)", storagePath),
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: fmt.Sprintf("%s exists but is not a directory", storagePath),
		}
	}

	tmpFile := filepath.Join(storagePath, ".doctor-check")
	if err := os.WriteFile(tmpFile, []byte("ok"), 0600); err != nil {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: fmt.Sprintf("%s not writable: %v", storagePath, err),
		}
	}
	_ = os.Remove(tmpFile)

	return doctorCheck{Name: "storage", Status: "ok", Detail: storagePath}
}
