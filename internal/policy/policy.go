// Package policy evaluates a YAML quality gate against the metric table.
package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/sonarsweep/internal/aggregator"
	"github.com/ppiankov/sonarsweep/internal/models"
)

// FileNames are the policy files searched for, in order.
var FileNames = []string{".sonarsweep-policy.yaml", ".sonarsweep-policy.yml"}

// Policy defines the quality gate.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable gate rules. Count and rating limits
// apply to each repository separately.
type Rules struct {
	MaxBugs             *int     `yaml:"max_bugs,omitempty"`
	MaxVulnerabilities  *int     `yaml:"max_vulnerabilities,omitempty"`
	MaxCodeSmells       *int     `yaml:"max_code_smells,omitempty"`
	MaxSecurityHotspots *int     `yaml:"max_security_hotspots,omitempty"`
	MinCoverage         *float64 `yaml:"min_coverage,omitempty"`
	MaxRating           *float64 `yaml:"max_rating,omitempty"`
	RequireScanned      bool     `yaml:"require_scanned,omitempty"`
}

// Violation is a single gate failure.
type Violation struct {
	Repo    string `json:"repo"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a gate check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// LoadFromFile reads a policy file. A missing file yields a nil policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	return &p, nil
}

// FindPolicyFile searches the current directory and its parents.
func FindPolicyFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return FindPolicyFileFrom(dir)
}

// FindPolicyFileFrom searches dir and its parents up to the filesystem root.
func FindPolicyFileFrom(dir string) string {
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var countRules = []struct {
	rule   string
	metric string
	label  string
	limit  func(Rules) *int
}{
	{"max_bugs", models.MetricBugs, "bugs", func(r Rules) *int { return r.MaxBugs }},
	{"max_vulnerabilities", models.MetricVulnerabilities, "vulnerabilities", func(r Rules) *int { return r.MaxVulnerabilities }},
	{"max_code_smells", models.MetricCodeSmells, "code smells", func(r Rules) *int { return r.MaxCodeSmells }},
	{"max_security_hotspots", models.MetricSecurityHotspots, "security hotspots", func(r Rules) *int { return r.MaxSecurityHotspots }},
}

var ratingMetrics = []string{
	models.MetricReliabilityRating,
	models.MetricSecurityRating,
	models.MetricSqaleRating,
}

// Evaluate checks every repository of the table against the rules.
// Metrics a repository does not report are not checked.
func (p *Policy) Evaluate(table *models.MetricTable) *Result {
	if p == nil || table == nil {
		return &Result{Pass: true}
	}

	var violations []Violation
	add := func(repo, rule, format string, args ...interface{}) {
		violations = append(violations, Violation{Repo: repo, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	for _, rec := range table.Records {
		if p.Rules.RequireScanned && !rec.ScanSucceeded {
			add(rec.Name, "require_scanned", "%s: scan did not succeed", rec.Name)
		}

		for _, cr := range countRules {
			limit := cr.limit(p.Rules)
			if limit == nil {
				continue
			}
			v, ok := rec.Float(cr.metric)
			if ok && int(v) > *limit {
				add(rec.Name, cr.rule, "%s: %d %s exceeds limit %d", rec.Name, int(v), cr.label, *limit)
			}
		}

		if p.Rules.MinCoverage != nil {
			if cov, ok := aggregator.Coverage(rec); ok && cov < *p.Rules.MinCoverage {
				add(rec.Name, "min_coverage", "%s: coverage %.1f%% below minimum %.1f%%", rec.Name, cov, *p.Rules.MinCoverage)
			}
		}

		if p.Rules.MaxRating != nil {
			for _, metric := range ratingMetrics {
				v, ok := rec.Float(metric)
				if ok && v > *p.Rules.MaxRating {
					add(rec.Name, "max_rating", "%s: %s %.1f worse than %.1f", rec.Name, metric, v, *p.Rules.MaxRating)
				}
			}
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}
