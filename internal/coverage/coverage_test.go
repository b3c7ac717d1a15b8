package coverage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/sonarsweep/internal/logging"
)

func TestParseSingleRecord(t *testing.T) {
	s, err := Parse(strings.NewReader("TN:\nSF:src/a.js\nLF:200\nLH:150\nend_of_record\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.LinesFound != 200 || s.LinesHit != 150 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Percent() != 75.0 {
		t.Errorf("expected 75.0, got %v", s.Percent())
	}
}

func TestParseSumsRecords(t *testing.T) {
	report := strings.Join([]string{
		"SF:a.js", "LF:10", "LH:5", "end_of_record",
		"SF:b.js", "LF:20", "LH:15", "end_of_record",
	}, "\n")

	s, err := Parse(strings.NewReader(report))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.LinesFound != 30 || s.LinesHit != 20 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Percent() != 66.67 {
		t.Errorf("expected 66.67, got %v", s.Percent())
	}
}

func TestPercentZeroFound(t *testing.T) {
	if p := (Summary{LinesFound: 0, LinesHit: 3}).Percent(); p != 0 {
		t.Errorf("expected 0, got %v", p)
	}
}

func TestParseMalformedCounter(t *testing.T) {
	_, err := Parse(strings.NewReader("LF:abc\n"))
	if err == nil {
		t.Fatal("expected error for malformed counter")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("expected line number in error, got %v", err)
	}
}

func TestParseIgnoresOtherLines(t *testing.T) {
	s, err := Parse(strings.NewReader("FNF:3\nFNH:1\nBRF:4\nBRH:2\nDA:1,1\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s != (Summary{}) {
		t.Errorf("expected empty summary, got %+v", s)
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lcov.info")
	if err := os.WriteFile(path, []byte("LF:200\nLH:150\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if p := FromFile(path, logging.Discard()); p != 75.0 {
		t.Errorf("expected 75.0, got %v", p)
	}
}

func TestFromFileMissing(t *testing.T) {
	p := FromFile(filepath.Join(t.TempDir(), "missing.info"), logging.Discard())
	if p != 0 {
		t.Errorf("expected 0 for missing file, got %v", p)
	}
}

func TestFromFileMalformedLogsAndReturnsZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lcov.info")
	if err := os.WriteFile(path, []byte("LF:x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	p := FromFile(path, logging.New(&buf, logging.Options{}))
	if p != 0 {
		t.Errorf("expected 0, got %v", p)
	}
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Errorf("expected warning to be logged, got %q", buf.String())
	}
}
