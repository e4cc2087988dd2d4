// Package repository defines data access for run history. All database
// access goes through these interfaces so the HTTP layer and the runner
// can be tested without a database.
package repository

import (
	"context"
	"time"

	"github.com/jmylchreest/calcprobe/internal/models"
)

// RunRepository persists probe runs and their check results.
type RunRepository interface {
	// Create stores a run and its results in one transaction.
	Create(ctx context.Context, run *models.Run) error
	// GetByID retrieves a run with its results. It returns nil, nil when
	// the run does not exist.
	GetByID(ctx context.Context, id models.ULID) (*models.Run, error)
	// List returns up to limit runs, newest first, without results.
	List(ctx context.Context, limit int) ([]*models.Run, error)
	// Latest returns the newest run with its results, or nil, nil.
	Latest(ctx context.Context) (*models.Run, error)
	// DeleteOlderThan removes runs started before cutoff together with
	// their results and reports how many runs were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
