package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sonarsweep/internal/discovery"
)

var (
	discoverFormat   string
	discoverReposDir string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the repositories and tools a run would use",
	Long: `Discover lists the repositories under the repositories directory, shows
which of them ship a test manifest and a coverage report, and checks that
the scanner and test binaries are on PATH.

This is a read-only operation: nothing is executed and no network calls are
made. Use 'sonarsweep run' to analyze the discovered repositories.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverFormat, "format", "text",
		"output format: text or json")
	discoverCmd.Flags().StringVar(&discoverReposDir, "repos-dir", "",
		"directory containing the repositories (default from config)")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if discoverFormat != "text" && discoverFormat != "json" {
		return &ValidationError{Message: fmt.Sprintf("invalid format: %s (must be text or json)", discoverFormat)}
	}

	root := cfg.ReposDir
	if discoverReposDir != "" {
		root = discoverReposDir
	}

	plan, err := discoverPlan(root, exec.LookPath)
	if err != nil {
		return err
	}

	if discoverFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	return printDiscoveryText(cmd.OutOrStdout(), plan)
}

// discoverPlan lists repositories under root and checks the scanner and
// test binaries. A missing root yields an empty plan.
func discoverPlan(root string, lookPath discovery.LookPathFunc) (*discovery.Plan, error) {
	d := discovery.New(lookPath, cfg.CoverageReport)
	plan, err := d.Discover(root)
	if err != nil && !errors.Is(err, discovery.ErrRootNotFound) {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	if err != nil {
		logError("repositories directory not found: %s", root)
	}

	tools := []string{cfg.ScannerBinary}
	if args := cfg.TestCommandArgs(); len(args) > 0 {
		tools = append(tools, args[0])
	}
	plan.Tools = d.CheckTools(tools...)
	return plan, nil
}

func printDiscoveryText(w io.Writer, plan *discovery.Plan) error {
	fmt.Fprintf(w, "Discovered %d repositories in %s\n\n", len(plan.Repositories), plan.Root)

	if len(plan.Repositories) > 0 {
		rows := make([][]string, 0, len(plan.Repositories))
		for _, repo := range plan.Repositories {
			manifest := "-"
			if repo.HasManifest() {
				manifest = discovery.ManifestFile
			}
			report := "-"
			if repo.HasCoverageReport() {
				report = repo.CoverageReport
			}
			rows = append(rows, []string{repo.Name, manifest, report})
		}
		if err := writeTable(w, []string{"Repository", "Manifest", "Coverage report"}, rows); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	for _, name := range plan.Ignored {
		fmt.Fprintf(w, "  ignored: %s\n", name)
	}
	if len(plan.Ignored) > 0 {
		fmt.Fprintln(w)
	}

	for _, tool := range plan.Tools {
		if tool.Available {
			fmt.Fprintf(w, "  ✓ %-14s %s\n", tool.Binary, tool.Path)
		} else {
			fmt.Fprintf(w, "  ✗ %-14s not found in PATH\n", tool.Binary)
		}
	}

	if len(plan.Repositories) == 0 {
		fmt.Fprintln(w, "\nNo repositories found. Clone repositories into the directory or pass --repos-dir.")
	}
	return nil
}
