// Package storage persists the metric table (CSV, Parquet) and keeps a
// local history of runs.
package storage

import (
	"time"

	"github.com/ppiankov/sonarsweep/internal/models"
)

// History defines the interface for persisting runs
type History interface {
	// SaveRun stores a complete run snapshot
	SaveRun(run *models.Run) error

	// LoadRun loads the run stored for a specific timestamp
	LoadRun(timestamp time.Time) (*models.Run, error)

	// GetLatestRun retrieves the most recent run
	GetLatestRun() (*models.Run, error)

	// GetLastNRuns retrieves the last N runs, oldest first
	GetLastNRuns(n int) ([]*models.Run, error)

	// ListRuns returns all available run timestamps
	ListRuns() ([]time.Time, error)
}
