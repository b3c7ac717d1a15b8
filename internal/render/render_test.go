package render

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/plot/vg"

	"github.com/ppiankov/sonarsweep/internal/logging"
	"github.com/ppiankov/sonarsweep/internal/models"
	"github.com/ppiankov/sonarsweep/internal/storage"
)

func fullTable() *models.MetricTable {
	rec := func(name, bugs, vulns, smells, ncloc, cx string) models.RepositoryRecord {
		return models.RepositoryRecord{Name: name, Metrics: map[string]models.Value{
			models.MetricBugs:                   models.String(bugs),
			models.MetricVulnerabilities:        models.String(vulns),
			models.MetricCodeSmells:             models.String(smells),
			models.MetricNcloc:                  models.String(ncloc),
			models.MetricComplexity:             models.String(cx),
			models.MetricReliabilityRating:      models.String("1.0"),
			models.MetricSecurityRating:         models.String("2.0"),
			models.MetricSqaleRating:            models.String("3.0"),
			models.MetricSecurityHotspots:       models.String("4"),
			models.MetricDuplicatedLinesDensity: models.String("2.5"),
		}}
	}
	return models.NewMetricTable([]models.RepositoryRecord{
		rec("web", "3", "1", "20", "1200", "150"),
		rec("api", "1", "0", "8", "800", "90"),
	})
}

func smallOptions() Options {
	return Options{
		ReportWidth:   4 * vg.Inch,
		ReportHeight:  3 * vg.Inch,
		SummaryWidth:  4 * vg.Inch,
		SummaryHeight: 2 * vg.Inch,
	}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected image at %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("%s is not a PNG: %v", path, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		t.Fatalf("%s has empty dimensions", path)
	}
}

func TestRenderWritesBothImages(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "results.csv")
	if err := storage.WriteCSV(csvPath, fullTable()); err != nil {
		t.Fatal(err)
	}

	report := filepath.Join(dir, "report.png")
	summary := filepath.Join(dir, "summary.png")

	r := New(smallOptions(), logging.Discard())
	if err := r.Render(csvPath, report, summary); err != nil {
		t.Fatalf("Render: %v", err)
	}
	assertPNG(t, report)
	assertPNG(t, summary)
}

func TestRenderOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.png")
	summary := filepath.Join(dir, "summary.png")
	for _, p := range []string{report, summary} {
		if err := os.WriteFile(p, []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	r := New(smallOptions(), logging.Discard())
	if err := r.RenderTable(fullTable(), report, summary); err != nil {
		t.Fatalf("RenderTable: %v", err)
	}
	assertPNG(t, report)
	assertPNG(t, summary)
}

func TestRenderMissingTable(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.png")

	r := New(smallOptions(), logging.Discard())
	if err := r.Render(filepath.Join(dir, "missing.csv"), report, filepath.Join(dir, "s.png")); err == nil {
		t.Fatal("expected error for missing table")
	}
	if _, err := os.Stat(report); !os.IsNotExist(err) {
		t.Fatal("no image should be written when the table cannot be read")
	}
}

func TestRenderPartialColumns(t *testing.T) {
	dir := t.TempDir()
	table := models.NewMetricTable([]models.RepositoryRecord{
		{Name: "only-bugs", Metrics: map[string]models.Value{models.MetricBugs: models.String("2")}},
	})

	r := New(smallOptions(), logging.Discard())
	report := filepath.Join(dir, "report.png")
	summary := filepath.Join(dir, "summary.png")
	if err := r.RenderTable(table, report, summary); err != nil {
		t.Fatalf("RenderTable: %v", err)
	}
	assertPNG(t, report)
	assertPNG(t, summary)

	plots, err := r.reportPlots(table)
	if err != nil {
		t.Fatal(err)
	}
	if plots[0][0].Title.Text != "Defects (no data)" {
		t.Fatalf("defects panel should be empty, got %q", plots[0][0].Title.Text)
	}
}

func TestWriteSummarySkipsWithoutDefectColumns(t *testing.T) {
	dir := t.TempDir()
	table := models.NewMetricTable([]models.RepositoryRecord{
		{Name: "a", Metrics: map[string]models.Value{models.MetricNcloc: models.String("10")}},
	})

	path := filepath.Join(dir, "summary.png")
	written, err := New(smallOptions(), logging.Discard()).WriteSummary(table, path)
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Fatal("summary should be skipped")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("no file expected")
	}
}

func TestComplexityPlotSkipsNonNumeric(t *testing.T) {
	table := models.NewMetricTable([]models.RepositoryRecord{
		{Name: "a", Metrics: map[string]models.Value{
			models.MetricNcloc:      models.String(""),
			models.MetricComplexity: models.String("3"),
		}},
	})
	p, err := complexityPlot("Complexity vs size", table)
	if err != nil {
		t.Fatal(err)
	}
	if p.Title.Text != "Complexity vs size (no data)" {
		t.Fatalf("expected placeholder, got %q", p.Title.Text)
	}
}

func TestSumAndMean(t *testing.T) {
	table := models.NewMetricTable([]models.RepositoryRecord{
		{Name: "a", Metrics: map[string]models.Value{models.MetricBugs: models.String("2"), models.MetricSqaleRating: models.String("1.0")}},
		{Name: "b", Metrics: map[string]models.Value{models.MetricBugs: models.Int(3), models.MetricSqaleRating: models.String("4.0")}},
		{Name: "c", Metrics: map[string]models.Value{models.MetricBugs: models.String("NaN")}},
		{Name: "d"},
	})

	if got := Sum(table, models.MetricBugs); got != 5 {
		t.Fatalf("Sum = %v", got)
	}
	mean, ok := Mean(table, models.MetricSqaleRating)
	if !ok || math.Abs(mean-2.5) > 1e-9 {
		t.Fatalf("Mean = %v, %v", mean, ok)
	}
	if _, ok := Mean(table, models.MetricCoverage); ok {
		t.Fatal("Mean of absent column should not be ok")
	}
}

func TestNewDefaults(t *testing.T) {
	r := New(Options{}, nil)
	if r.opts != DefaultOptions() {
		t.Fatalf("opts = %+v", r.opts)
	}
}
