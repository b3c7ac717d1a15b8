package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/sonarsweep/internal/discovery"
)

func fakeLookPath(available ...string) discovery.LookPathFunc {
	return func(file string) (string, error) {
		for _, a := range available {
			if a == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestDiscoverPlan(t *testing.T) {
	c := testConfig(t)
	withTestConfig(t, c)
	setupRepos(t, c.ReposDir)
	writeFile(t, filepath.Join(c.ReposDir, "vendor-fork", "index.js"), "")
	writeFile(t, filepath.Join(c.ReposDir, discovery.IgnoreFile), "vendor-*\n")

	plan, err := discoverPlan(c.ReposDir, fakeLookPath("sonar-scanner"))
	if err != nil {
		t.Fatalf("discoverPlan: %v", err)
	}

	if len(plan.Repositories) != 2 {
		t.Fatalf("repositories = %d, want 2", len(plan.Repositories))
	}
	if plan.Repositories[0].Name != "alpha" || !plan.Repositories[0].HasManifest() {
		t.Errorf("alpha = %+v", plan.Repositories[0])
	}
	if len(plan.Ignored) != 1 || plan.Ignored[0] != "vendor-fork" {
		t.Errorf("ignored = %v", plan.Ignored)
	}
	if len(plan.Tools) != 2 {
		t.Fatalf("tools = %v", plan.Tools)
	}
	if !plan.Tools[0].Available || plan.Tools[1].Available {
		t.Errorf("expected scanner available and npm missing, got %+v", plan.Tools)
	}
}

func TestDiscoverPlanMissingRoot(t *testing.T) {
	withTestConfig(t, testConfig(t))

	var plan *discovery.Plan
	var err error
	captureStderr(t, func() {
		plan, err = discoverPlan(filepath.Join(t.TempDir(), "missing"), fakeLookPath())
	})
	if err != nil {
		t.Fatalf("missing root should not fail, got %v", err)
	}
	if len(plan.Repositories) != 0 {
		t.Errorf("expected no repositories, got %v", plan.Repositories)
	}
}

func TestPrintDiscoveryText(t *testing.T) {
	plan := &discovery.Plan{
		Root: "repos",
		Repositories: []discovery.Repository{
			{Name: "alpha", Path: "repos/alpha", ManifestPath: "repos/alpha/package.json", CoverageReport: "repos/alpha/coverage/lcov.info"},
			{Name: "beta", Path: "repos/beta"},
		},
		Ignored: []string{"vendor-fork"},
		Tools: []discovery.ToolStatus{
			{Binary: "sonar-scanner", Path: "/usr/bin/sonar-scanner", Available: true},
			{Binary: "npm"},
		},
	}

	var buf bytes.Buffer
	if err := printDiscoveryText(&buf, plan); err != nil {
		t.Fatalf("printDiscoveryText: %v", err)
	}

	out := buf.String()
	for _, frag := range []string{
		"Discovered 2 repositories in repos",
		"alpha",
		"package.json",
		"repos/alpha/coverage/lcov.info",
		"beta",
		"ignored: vendor-fork",
		"✓ sonar-scanner",
		"✗ npm",
		"not found in PATH",
	} {
		if !strings.Contains(out, frag) {
			t.Errorf("output missing %q\n%s", frag, out)
		}
	}
	if strings.Contains(out, "No repositories found") {
		t.Error("empty hint shown for a non-empty plan")
	}
}

func TestPrintDiscoveryTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printDiscoveryText(&buf, &discovery.Plan{Root: "repos"}); err != nil {
		t.Fatalf("printDiscoveryText: %v", err)
	}
	if !strings.Contains(buf.String(), "No repositories found") {
		t.Errorf("expected empty hint, got\n%s", buf.String())
	}
}

func TestRunDiscoverInvalidFormat(t *testing.T) {
	withTestConfig(t, testConfig(t))
	setFlag(t, &discoverFormat, "xml")

	cmd, _ := testCommand()
	err := runDiscover(cmd, nil)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRunDiscoverJSON(t *testing.T) {
	c := testConfig(t)
	withTestConfig(t, c)
	setupRepos(t, c.ReposDir)
	setFlag(t, &discoverFormat, "json")
	setFlag(t, &discoverReposDir, "")

	cmd, buf := testCommand()
	if err := runDiscover(cmd, nil); err != nil {
		t.Fatalf("runDiscover: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"name": "alpha"`) || !strings.Contains(out, `"name": "beta"`) {
		t.Errorf("unexpected JSON:\n%s", out)
	}
}
