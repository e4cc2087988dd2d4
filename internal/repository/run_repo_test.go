package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/calcprobe/internal/models"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

func setupRunTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "history.db") + "?_pragma=foreign_keys(ON)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Run{}, &models.CheckResult{}))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newRun(started time.Time, verdict models.Verdict, statuses ...probe.Status) *models.Run {
	run := &models.Run{
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Second),
		FrontendURL: "http://localhost:3000",
		BackendURL:  "http://localhost:8001",
		Mode:        "full",
		Suites:      "backend,routes",
		Verdict:     verdict,
	}
	for i, st := range statuses {
		run.Results = append(run.Results, models.CheckResult{
			Seq:        i + 1,
			Suite:      "routes",
			Name:       fmt.Sprintf("Route: /r%d", i+1),
			Status:     st,
			Details:    "detail",
			DurationMs: 120,
			CheckedAt:  started,
		})
	}
	run.Total = len(statuses)
	return run
}

func TestRunRepo_CreateAndGet(t *testing.T) {
	repo := NewRunRepository(setupRunTestDB(t))
	ctx := context.Background()

	run := newRun(time.Now().UTC(), models.VerdictReady, probe.StatusPass, probe.StatusWarn, probe.StatusFail)
	require.NoError(t, repo.Create(ctx, run))
	require.False(t, run.ID.IsZero())

	found, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, run.FrontendURL, found.FrontendURL)
	assert.Equal(t, models.VerdictReady, found.Verdict)
	require.Len(t, found.Results, 3)
	for i, res := range found.Results {
		assert.Equal(t, i+1, res.Seq)
		assert.Equal(t, run.ID, res.RunID)
	}
	assert.Equal(t, probe.StatusFail, found.Results[2].Status)

	missing, err := repo.GetByID(ctx, models.NewULID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRunRepo_CreateRejectsInvalid(t *testing.T) {
	repo := NewRunRepository(setupRunTestDB(t))

	run := newRun(time.Now(), models.VerdictReady, "BOGUS")
	err := repo.Create(context.Background(), run)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	latest, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRunRepo_ListAndLatest(t *testing.T) {
	repo := NewRunRepository(setupRunTestDB(t))
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, repo.Create(ctx, newRun(base.Add(time.Duration(i)*time.Hour), models.VerdictMostlyReady, probe.StatusPass)))
	}

	runs, err := repo.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(4*time.Hour)))
	assert.True(t, runs[2].StartedAt.Equal(base.Add(2*time.Hour)))
	assert.Empty(t, runs[0].Results, "list does not preload results")

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, runs[0].ID, latest.ID)
	assert.Len(t, latest.Results, 1)
}

func TestRunRepo_DeleteOlderThan(t *testing.T) {
	db := setupRunTestDB(t)
	repo := NewRunRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	old := newRun(now.Add(-48*time.Hour), models.VerdictNotReady, probe.StatusFail, probe.StatusFail)
	recent := newRun(now.Add(-time.Hour), models.VerdictReady, probe.StatusPass)
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, recent))

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := repo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var orphaned int64
	require.NoError(t, db.Model(&models.CheckResult{}).Where("run_id = ?", old.ID).Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	kept, err := repo.GetByID(ctx, recent.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Len(t, kept.Results, 1)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestRunRepo_DatabaseErrors(t *testing.T) {
	errConn := errors.New("connection reset by peer")

	tests := []struct {
		name    string
		expect  func(mock sqlmock.Sqlmock)
		call    func(repo RunRepository) error
		wantMsg string
	}{
		{
			name: "list",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM "runs"`).WillReturnError(errConn)
			},
			call: func(repo RunRepository) error {
				_, err := repo.List(context.Background(), 10)
				return err
			},
			wantMsg: "listing runs",
		},
		{
			name: "latest",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM "runs"`).WillReturnError(errConn)
			},
			call: func(repo RunRepository) error {
				_, err := repo.Latest(context.Background())
				return err
			},
			wantMsg: "getting latest run",
		},
		{
			name: "get by id",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .* FROM "runs"`).WillReturnError(errConn)
			},
			call: func(repo RunRepository) error {
				_, err := repo.GetByID(context.Background(), models.NewULID())
				return err
			},
			wantMsg: "getting run by ID",
		},
		{
			name: "prune",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM "check_results"`).WillReturnError(errConn)
				mock.ExpectRollback()
			},
			call: func(repo RunRepository) error {
				_, err := repo.DeleteOlderThan(context.Background(), time.Now())
				return err
			},
			wantMsg: "deleting check results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			tt.expect(mock)

			err := tt.call(NewRunRepository(db))
			require.Error(t, err)
			assert.ErrorIs(t, err, errConn)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRunRepo_GetByIDNotFoundMock(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM "runs"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	run, err := NewRunRepository(db).GetByID(context.Background(), models.NewULID())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}
