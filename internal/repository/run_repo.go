package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jmylchreest/calcprobe/internal/models"
)

// DefaultListLimit caps List when no positive limit is given.
const DefaultListLimit = 20

// runRepo implements RunRepository using GORM.
type runRepo struct {
	db *gorm.DB
}

// NewRunRepository creates a RunRepository.
func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepo{db: db}
}

// Create stores run and its results atomically.
func (r *runRepo) Create(ctx context.Context, run *models.Run) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// GetByID retrieves a run with results ordered by sequence.
func (r *runRepo) GetByID(ctx context.Context, id models.ULID) (*models.Run, error) {
	var run models.Run
	err := r.db.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting run by ID: %w", err)
	}
	return &run, nil
}

// List returns the newest runs first.
func (r *runRepo) List(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var runs []*models.Run
	err := r.db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Latest returns the newest run with its results.
func (r *runRepo) Latest(ctx context.Context) (*models.Run, error) {
	var run models.Run
	err := r.db.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("started_at DESC, id DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return &run, nil
}

// DeleteOlderThan removes old runs, deleting their results first since
// not every driver enforces ON DELETE CASCADE.
func (r *runRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&models.Run{}).Select("id").Where("started_at < ?", cutoff)

		if err := tx.Where("run_id IN (?)", old).Delete(&models.CheckResult{}).Error; err != nil {
			return fmt.Errorf("deleting check results: %w", err)
		}

		res := tx.Where("started_at < ?", cutoff).Delete(&models.Run{})
		if res.Error != nil {
			return fmt.Errorf("deleting runs: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}
