// Package scheduler runs probe runs on a cron schedule for watch mode.
// A run that is still in progress when the next one is due causes that
// tick to be skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/calcprobe/internal/observability"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// RunFunc executes one scheduled run.
type RunFunc func(ctx context.Context) error

// Pruner removes history older than a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler triggers RunFunc on a cron schedule.
type Scheduler struct {
	mu sync.Mutex

	spec     string
	schedule cron.Schedule
	run      RunFunc
	logger   *slog.Logger

	pruner    Pruner
	retention time.Duration
	now       func() time.Time

	// busy is held for the duration of a run.
	busy    sync.Mutex
	runs    atomic.Int64
	skipped atomic.Int64

	// Running state
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// parser accepts standard 5-field expressions and descriptors such as
// "@hourly" or "@every 5m".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New creates a scheduler for spec.
func New(spec string, run RunFunc) (*Scheduler, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &Scheduler{
		spec:     spec,
		schedule: schedule,
		run:      run,
		logger:   slog.Default(),
		now:      time.Now,
	}, nil
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// WithRetention prunes history older than retention after every run.
// A zero retention or nil pruner disables pruning.
func (s *Scheduler) WithRetention(pruner Pruner, retention time.Duration) *Scheduler {
	s.pruner = pruner
	s.retention = retention
	return s
}

// Start begins scheduling. Runs receive a context derived from ctx that is
// canceled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	runCtx := s.ctx
	s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.tick(runCtx) }))
	s.cron.Start()

	s.logger.Info("scheduler started",
		slog.String("cron", s.spec),
		slog.Time("next_run", s.schedule.Next(s.now())))
	return nil
}

// Stop cancels any in-flight run and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.cron = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped",
		slog.Int64("runs", s.runs.Load()),
		slog.Int64("skipped", s.skipped.Load()))
}

// Run starts the scheduler, optionally triggers an immediate run, and
// blocks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context, immediate bool) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	if immediate {
		s.Trigger(ctx)
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Trigger runs immediately unless a run is already in progress. It
// reports whether the run happened.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	return s.tick(ctx)
}

// Next returns the next scheduled time after now.
func (s *Scheduler) Next() time.Time {
	return s.schedule.Next(s.now())
}

// Runs returns how many runs have completed.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// Skipped returns how many ticks were skipped because a run was in progress.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

func (s *Scheduler) tick(ctx context.Context) bool {
	if !s.busy.TryLock() {
		s.skipped.Add(1)
		s.logger.Warn("previous run still in progress, skipping")
		return false
	}
	defer s.busy.Unlock()

	start := time.Now()
	if err := s.run(ctx); err != nil {
		s.logger.Error("scheduled run failed", slog.Any("error", err))
	}
	s.runs.Add(1)
	s.logger.Debug("scheduled run complete",
		slog.Duration("duration", time.Since(start)),
		slog.Time("next_run", s.schedule.Next(s.now())))

	s.prune(ctx)
	return true
}

// prune deletes history older than the retention window.
func (s *Scheduler) prune(ctx context.Context) {
	if s.pruner == nil || s.retention <= 0 {
		return
	}
	cutoff := s.now().Add(-s.retention)
	logger := observability.WithOperation(s.logger, "prune_history")

	deleted, err := s.pruner.DeleteOlderThan(context.WithoutCancel(ctx), cutoff)
	if err != nil {
		observability.WithError(logger, err).Error("failed to prune run history")
		return
	}
	if deleted > 0 {
		logger.Info("pruned run history",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff))
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
