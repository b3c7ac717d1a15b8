package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/sonarsweep/internal/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func baseTable() *models.MetricTable {
	return models.NewMetricTable([]models.RepositoryRecord{
		{
			Name:          "web",
			ScanSucceeded: true,
			Metrics: map[string]models.Value{
				models.MetricBugs:              models.String("2"),
				models.MetricVulnerabilities:   models.String("0"),
				models.MetricCodeSmells:        models.String("40"),
				models.MetricSecurityHotspots:  models.String("1"),
				models.MetricCoverage:          models.String("72.5"),
				models.MetricReliabilityRating: models.String("3.0"),
				models.MetricSecurityRating:    models.String("1.0"),
				models.MetricSqaleRating:       models.String("1.0"),
			},
		},
		{
			Name: "broken",
			Metrics: map[string]models.Value{
				models.MetricTestCoverage: models.Number(30),
			},
		},
	})
}

func TestEvaluateNilPolicy(t *testing.T) {
	var p *Policy
	if !p.Evaluate(baseTable()).Pass {
		t.Error("nil policy should pass")
	}
}

func TestEvaluateEmptyRules(t *testing.T) {
	p := &Policy{}
	if result := p.Evaluate(baseTable()); !result.Pass {
		t.Errorf("expected pass, got %v", result.Violations)
	}
}

func TestMaxBugs(t *testing.T) {
	pass := &Policy{Rules: Rules{MaxBugs: intPtr(2)}}
	if result := pass.Evaluate(baseTable()); !result.Pass {
		t.Errorf("expected pass, got violations: %v", result.Violations)
	}

	fail := &Policy{Rules: Rules{MaxBugs: intPtr(1)}}
	result := fail.Evaluate(baseTable())
	if result.Pass {
		t.Fatal("expected fail: 2 bugs exceeds limit 1")
	}
	if len(result.Violations) != 1 || result.Violations[0].Rule != "max_bugs" || result.Violations[0].Repo != "web" {
		t.Errorf("expected one max_bugs violation on web, got %v", result.Violations)
	}
}

func TestCountRules(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		rule  string
	}{
		{"vulnerabilities pass", Rules{MaxVulnerabilities: intPtr(0)}, ""},
		{"code smells", Rules{MaxCodeSmells: intPtr(10)}, "max_code_smells"},
		{"hotspots", Rules{MaxSecurityHotspots: intPtr(0)}, "max_security_hotspots"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			result := (&Policy{Rules: tt.rules}).Evaluate(baseTable())
			if tt.rule == "" {
				if !result.Pass {
					t.Fatalf("expected pass, got %v", result.Violations)
				}
				return
			}
			if result.Pass || result.Violations[0].Rule != tt.rule {
				t.Fatalf("expected %s violation, got %v", tt.rule, result.Violations)
			}
		})
	}
}

func TestMinCoverage(t *testing.T) {
	p := &Policy{Rules: Rules{MinCoverage: floatPtr(50)}}
	result := p.Evaluate(baseTable())
	if result.Pass {
		t.Fatal("expected fail: broken has 30% test coverage")
	}
	if len(result.Violations) != 1 || result.Violations[0].Repo != "broken" {
		t.Errorf("expected one violation on broken, got %v", result.Violations)
	}
}

func TestMinCoverageSkipsMissing(t *testing.T) {
	table := models.NewMetricTable([]models.RepositoryRecord{{Name: "bare", ScanSucceeded: true}})
	p := &Policy{Rules: Rules{MinCoverage: floatPtr(90)}}
	if result := p.Evaluate(table); !result.Pass {
		t.Errorf("missing coverage should not be checked, got %v", result.Violations)
	}
}

func TestMaxRating(t *testing.T) {
	p := &Policy{Rules: Rules{MaxRating: floatPtr(2)}}
	result := p.Evaluate(baseTable())
	if result.Pass {
		t.Fatal("expected fail: reliability rating 3 exceeds 2")
	}
	if len(result.Violations) != 1 || result.Violations[0].Rule != "max_rating" {
		t.Errorf("expected one max_rating violation, got %v", result.Violations)
	}
}

func TestRequireScanned(t *testing.T) {
	p := &Policy{Rules: Rules{RequireScanned: true}}
	result := p.Evaluate(baseTable())
	if result.Pass {
		t.Fatal("expected fail: broken was not scanned")
	}
	if result.Violations[0].Repo != "broken" || result.Violations[0].Rule != "require_scanned" {
		t.Errorf("unexpected violation: %v", result.Violations[0])
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `version: "1"
rules:
  max_bugs: 0
  min_coverage: 80
  max_rating: 2
  require_scanned: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Version != "1" {
		t.Errorf("Version = %q", p.Version)
	}
	if p.Rules.MaxBugs == nil || *p.Rules.MaxBugs != 0 {
		t.Errorf("MaxBugs = %v", p.Rules.MaxBugs)
	}
	if p.Rules.MinCoverage == nil || *p.Rules.MinCoverage != 80 {
		t.Errorf("MinCoverage = %v", p.Rules.MinCoverage)
	}
	if p.Rules.MaxRating == nil || *p.Rules.MaxRating != 2 {
		t.Errorf("MaxRating = %v", p.Rules.MaxRating)
	}
	if !p.Rules.RequireScanned {
		t.Error("RequireScanned should be true")
	}
	if p.Rules.MaxCodeSmells != nil {
		t.Error("unset rule should stay nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	p, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || p != nil {
		t.Fatalf("expected nil policy without error, got %v, %v", p, err)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("rules: [not, a, map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFindPolicyFileFrom(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, ".sonarsweep-policy.yml")
	if err := os.WriteFile(want, []byte("rules: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := FindPolicyFileFrom(nested); got != want {
		t.Fatalf("FindPolicyFileFrom = %q, want %q", got, want)
	}
}
