package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/sonarsweep/internal/models"
)

func sampleRun(ts time.Time) *models.Run {
	table := models.NewMetricTable([]models.RepositoryRecord{
		{
			Name:          "web",
			ScanSucceeded: true,
			Metrics: map[string]models.Value{
				models.MetricBugs:       models.String("2"),
				models.MetricTestPassed: models.Int(14),
			},
		},
	})
	return &models.Run{
		Timestamp: ts,
		Table:     table,
		Summary:   models.TableSummary{Repositories: 1, Scanned: 1, TotalBugs: 2},
	}
}

func TestNewLocal(t *testing.T) {
	s := NewLocal("/tmp/test")
	if s.GetStoragePath() != "/tmp/test" {
		t.Errorf("expected /tmp/test, got %s", s.GetStoragePath())
	}
}

func TestEnsureDirectoryExists(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "sonarsweep")
	s := NewLocal(baseDir)

	if err := s.EnsureDirectoryExists(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(baseDir, "runs")); err != nil {
		t.Fatalf("expected runs directory to exist: %v", err)
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	ts := time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)
	if err := s.SaveRun(sampleRun(ts)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "runs", "2026-02-15T10-30-00-run.json")); err != nil {
		t.Fatalf("expected snapshot file: %v", err)
	}

	loaded, err := s.LoadRun(ts)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if loaded.Summary.TotalBugs != 2 {
		t.Errorf("expected 2 bugs, got %d", loaded.Summary.TotalBugs)
	}
	if loaded.Table.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", loaded.Table.Len())
	}
	rec := loaded.Table.Records[0]
	if rec.Name != "web" || rec.Metrics[models.MetricBugs].String() != "2" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if v := rec.Metrics[models.MetricTestPassed]; !v.IsNumber() || v.String() != "14" {
		t.Errorf("numeric metric should survive as a number, got %+v", v)
	}
}

func TestSaveRunNil(t *testing.T) {
	if err := NewLocal(t.TempDir()).SaveRun(nil); err == nil {
		t.Fatal("expected error for nil run")
	}
}

func TestLoadRunNotFound(t *testing.T) {
	s := NewLocal(t.TempDir())

	_, err := s.LoadRun(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestListRunsEmpty(t *testing.T) {
	s := NewLocal(t.TempDir())

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestListRunsSorted(t *testing.T) {
	s := NewLocal(t.TempDir())

	ts1 := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	ts2 := time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC)
	ts3 := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)

	for _, ts := range []time.Time{ts2, ts1, ts3} {
		if err := s.SaveRun(sampleRun(ts)); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if !runs[0].Equal(ts1) || !runs[2].Equal(ts3) {
		t.Errorf("runs should be sorted chronologically, got %v", runs)
	}
}

func TestGetLatestRun(t *testing.T) {
	s := NewLocal(t.TempDir())

	ts1 := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	ts2 := time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{ts1, ts2} {
		if err := s.SaveRun(sampleRun(ts)); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.GetLatestRun()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !latest.Timestamp.Equal(ts2) {
		t.Errorf("expected latest run at %v, got %v", ts2, latest.Timestamp)
	}
}

func TestGetLatestRunEmpty(t *testing.T) {
	_, err := NewLocal(t.TempDir()).GetLatestRun()
	if !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
}

func TestGetLastNRuns(t *testing.T) {
	s := NewLocal(t.TempDir())

	base := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := s.SaveRun(sampleRun(base.Add(time.Duration(i) * 24 * time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.GetLastNRuns(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if !runs[0].Timestamp.Equal(base.Add(48 * time.Hour)) {
		t.Errorf("expected oldest selected run first, got %v", runs[0].Timestamp)
	}

	runs, err = s.GetLastNRuns(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 5 {
		t.Fatalf("expected 5 runs, got %d", len(runs))
	}
}

func TestGetLastNRunsSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	ts := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	if err := s.SaveRun(sampleRun(ts)); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "runs", "2026-02-11T10-00-00-run.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	runs, err := s.GetLastNRuns(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected corrupt snapshot to be skipped, got %d runs", len(runs))
	}
}

func TestGetLastNRunsEmpty(t *testing.T) {
	if _, err := NewLocal(t.TempDir()).GetLastNRuns(3); err == nil {
		t.Fatal("expected error for empty storage")
	}
}

func TestListRunsIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)

	runsDir := filepath.Join(dir, "runs")
	if err := os.MkdirAll(filepath.Join(runsDir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runsDir, "notes.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runsDir, "bad-time-run.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestHistoryInterface(t *testing.T) {
	var _ History = NewLocal(t.TempDir())
}
