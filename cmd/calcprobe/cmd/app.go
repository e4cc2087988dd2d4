package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/database"
	"github.com/jmylchreest/calcprobe/internal/publish"
	"github.com/jmylchreest/calcprobe/internal/report"
	"github.com/jmylchreest/calcprobe/internal/repository"
	"github.com/jmylchreest/calcprobe/internal/runner"
	"github.com/jmylchreest/calcprobe/internal/urlutil"
	"github.com/jmylchreest/calcprobe/internal/version"
)

// app holds the components shared by the run, watch, serve and history
// commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB
	runs   repository.RunRepository
	runner *runner.Runner
}

type appOptions struct {
	// console receives check lines. Nil runs silently.
	console *report.Console
	// history opens the database, and so persists runs, even when
	// history.enabled is false.
	history bool
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	logger := slog.Default()
	a := &app{cfg: cfg, logger: logger}

	client := runner.NewClient(cfg, logger)
	cat, err := catalog.LoadSource(ctx, urlutil.NewFetcher(client), cfg.Catalog.File)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	if cfg.History.Enabled || opts.history {
		db, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.db = db
		a.runs = repository.NewRunRepository(db.DB)
	}

	ropts := runner.Options{
		Config:    cfg,
		Catalog:   cat,
		Client:    client,
		Console:   opts.console,
		Runs:      a.runs,
		Publisher: publish.New(cfg.Publish, version.UserAgent(), logger),
		Logger:    logger,
	}
	a.runner = runner.New(ropts)

	return a, nil
}

// Close releases the database connection, if any.
func (a *app) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}
