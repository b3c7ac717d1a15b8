package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/sonarsweep/internal/models"
)

const (
	runsDirName   = "runs"
	runFileSuffix = "-run.json"
	fileTimestamp = "2006-01-02T15-04-05"
)

// ErrNoRuns is returned when the history is empty.
var ErrNoRuns = errors.New("no runs found")

// LocalStorage implements History using the local filesystem
type LocalStorage struct {
	baseDir string
}

var _ History = (*LocalStorage)(nil)

// NewLocal creates a new local storage instance
func NewLocal(baseDir string) *LocalStorage {
	return &LocalStorage{
		baseDir: baseDir,
	}
}

// SaveRun writes the run as indented JSON to runs/<timestamp>-run.json.
func (s *LocalStorage) SaveRun(run *models.Run) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}
	if err := s.EnsureDirectoryExists(); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := os.WriteFile(s.runPath(run.Timestamp), data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// LoadRun loads the run stored for timestamp (second precision).
func (s *LocalStorage) LoadRun(timestamp time.Time) (*models.Run, error) {
	return s.loadRunFromFile(s.runPath(timestamp))
}

// GetLatestRun retrieves the most recent run
func (s *LocalStorage) GetLatestRun() (*models.Run, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(timestamps) == 0 {
		return nil, ErrNoRuns
	}
	return s.LoadRun(timestamps[len(timestamps)-1])
}

// GetLastNRuns retrieves the last n runs, oldest first. Unreadable
// snapshots are skipped.
func (s *LocalStorage) GetLastNRuns(n int) ([]*models.Run, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(timestamps) == 0 {
		return nil, ErrNoRuns
	}

	start := len(timestamps) - n
	if start < 0 || n <= 0 {
		start = 0
	}

	selected := timestamps[start:]
	runs := make([]*models.Run, 0, len(selected))
	for _, ts := range selected {
		run, err := s.LoadRun(ts)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// ListRuns returns all available run timestamps sorted chronologically
func (s *LocalStorage) ListRuns() ([]time.Time, error) {
	runsDir := filepath.Join(s.baseDir, runsDirName)

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []time.Time{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	timestamps := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), runFileSuffix) {
			continue
		}
		ts, err := time.Parse(fileTimestamp, strings.TrimSuffix(entry.Name(), runFileSuffix))
		if err != nil {
			continue
		}
		timestamps = append(timestamps, ts)
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i].Before(timestamps[j])
	})
	return timestamps, nil
}

func (s *LocalStorage) loadRunFromFile(path string) (*models.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

func (s *LocalStorage) runPath(ts time.Time) string {
	return filepath.Join(s.baseDir, runsDirName, ts.UTC().Format(fileTimestamp)+runFileSuffix)
}

// GetStoragePath returns the full path to the storage directory
func (s *LocalStorage) GetStoragePath() string {
	return s.baseDir
}

// EnsureDirectoryExists creates the runs directory if it doesn't exist
func (s *LocalStorage) EnsureDirectoryExists() error {
	return os.MkdirAll(filepath.Join(s.baseDir, runsDirName), 0755)
}
