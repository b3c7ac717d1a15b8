// Package discovery finds the repositories to analyze and the external
// tools needed to analyze them.
package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/ppiankov/sonarsweep/internal/coverage"
)

const (
	// IgnoreFile lists repositories to skip, in gitignore syntax, and lives
	// in the repositories root.
	IgnoreFile = ".sonarsweepignore"

	// ManifestFile describes the test commands a repository offers.
	ManifestFile = "package.json"
)

// ErrRootNotFound is returned when the repositories root does not exist.
var ErrRootNotFound = errors.New("repositories directory not found")

// LookPathFunc matches the signature of exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Discoverer lists repositories under a root directory and probes the
// local environment for the scanner and test runner binaries.
type Discoverer struct {
	lookPath     LookPathFunc
	coverageFile string
}

// New creates a Discoverer. coverageFile is the coverage report location
// relative to each repository; empty selects coverage.DefaultReportPath.
func New(lookPath LookPathFunc, coverageFile string) *Discoverer {
	if coverageFile == "" {
		coverageFile = coverage.DefaultReportPath
	}
	return &Discoverer{
		lookPath:     lookPath,
		coverageFile: coverageFile,
	}
}

// Repository is one analyzable directory under the root.
type Repository struct {
	Name           string `json:"name"`
	Path           string `json:"path"`
	ManifestPath   string `json:"manifest_path,omitempty"`
	CoverageReport string `json:"coverage_report,omitempty"`
}

// HasManifest reports whether the repository ships a test manifest.
func (r Repository) HasManifest() bool {
	return r.ManifestPath != ""
}

// HasCoverageReport reports whether a coverage report was found.
func (r Repository) HasCoverageReport() bool {
	return r.CoverageReport != ""
}

// ToolStatus tracks whether an external binary is on PATH.
type ToolStatus struct {
	Binary    string `json:"binary"`
	Path      string `json:"path,omitempty"`
	Available bool   `json:"available"`
}

// Plan is the complete result of a discovery pass.
type Plan struct {
	Root         string       `json:"root"`
	Repositories []Repository `json:"repositories"`
	Ignored      []string     `json:"ignored,omitempty"`
	Tools        []ToolStatus `json:"tools,omitempty"`
}

// Discover lists the immediate subdirectories of root in name order.
// Hidden directories and names matched by the ignore file are skipped.
func (d *Discoverer) Discover(root string) (*Plan, error) {
	plan := &Plan{Root: root}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return plan, ErrRootNotFound
		}
		return plan, err
	}
	if !info.IsDir() {
		return plan, ErrRootNotFound
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return plan, err
	}

	gi := loadIgnore(root)

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !dirExists(root, entry) {
			continue
		}
		if gi != nil && (gi.MatchesPath(name) || gi.MatchesPath(name+"/")) {
			plan.Ignored = append(plan.Ignored, name)
			continue
		}
		plan.Repositories = append(plan.Repositories, d.inspect(root, name))
	}

	// os.ReadDir already sorts by name; keep it explicit for callers that
	// depend on deterministic order.
	sort.Slice(plan.Repositories, func(i, j int) bool {
		return plan.Repositories[i].Name < plan.Repositories[j].Name
	})

	return plan, nil
}

// inspect records which optional inputs a repository provides.
func (d *Discoverer) inspect(root, name string) Repository {
	path := filepath.Join(root, name)
	repo := Repository{
		Name: name,
		Path: path,
	}

	if manifest := filepath.Join(path, ManifestFile); fileExists(manifest) {
		repo.ManifestPath = manifest
	}
	if report := filepath.Join(path, filepath.FromSlash(d.coverageFile)); fileExists(report) {
		repo.CoverageReport = report
	}

	return repo
}

// CheckTools resolves each binary on PATH.
func (d *Discoverer) CheckTools(binaries ...string) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(binaries))
	for _, b := range binaries {
		st := ToolStatus{Binary: b}
		if d.lookPath != nil {
			if path, err := d.lookPath(b); err == nil {
				st.Available = true
				st.Path = path
			}
		}
		statuses = append(statuses, st)
	}
	return statuses
}

// CoverageReportPath returns where the coverage report of repo is expected.
func (d *Discoverer) CoverageReportPath(repo Repository) string {
	return filepath.Join(repo.Path, filepath.FromSlash(d.coverageFile))
}

func loadIgnore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, IgnoreFile)
	if !fileExists(path) {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

// dirExists reports whether entry is a directory, following symlinks.
func dirExists(root string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, entry.Name()))
	return err == nil && info.IsDir()
}

// fileExists checks if a file exists (not a directory).
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
