// Package runner executes check suites against a deployment and hands the
// results to the report writers, the run history and the publisher.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/models"
	"github.com/jmylchreest/calcprobe/internal/observability"
	"github.com/jmylchreest/calcprobe/internal/probe"
	"github.com/jmylchreest/calcprobe/internal/publish"
	"github.com/jmylchreest/calcprobe/internal/report"
	"github.com/jmylchreest/calcprobe/internal/repository"
	"github.com/jmylchreest/calcprobe/internal/suites"
	"github.com/jmylchreest/calcprobe/internal/version"
	"github.com/jmylchreest/calcprobe/pkg/httpclient"
)

// Options configures a Runner. Only Config and Catalog are required.
type Options struct {
	Config  *config.Config
	Catalog *catalog.Catalog

	// Client is shared by every run. When nil one is built from Config.
	Client *httpclient.Client

	// Console receives results as they are recorded plus the header and
	// summary. Nil runs silently.
	Console *report.Console

	// Runs persists finished runs when set.
	Runs repository.RunRepository

	// Publisher posts summaries when set.
	Publisher *publish.Publisher

	// Host reports the machine the checks run from. Defaults to gopsutil.
	Host HostFunc

	Logger *slog.Logger
}

// Runner executes runs. It is safe for concurrent use; each Run gets its
// own recorder.
type Runner struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	client    *httpclient.Client
	console   *report.Console
	runs      repository.RunRepository
	publisher *publish.Publisher
	host      HostFunc
	logger    *slog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = observability.WithComponent(logger, "runner")

	client := opts.Client
	if client == nil {
		client = NewClient(opts.Config, logger)
	}

	host := opts.Host
	if host == nil {
		host = HostSnapshot
	}

	return &Runner{
		cfg:       opts.Config,
		catalog:   opts.Catalog,
		client:    client,
		console:   opts.Console,
		runs:      opts.Runs,
		publisher: opts.Publisher,
		host:      host,
		logger:    logger,
	}
}

// NewClient builds the probe HTTP client for cfg. It has no circuit
// breaker: every check sends its own request and is judged on what that
// request returns.
func NewClient(cfg *config.Config, logger *slog.Logger) *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:             cfg.Probe.Timeout.Duration(),
		UserAgent:           version.UserAgent(),
		Logger:              logger,
		EnableDecompression: true,
		MaxResponseSize:     cfg.Probe.MaxBodySize.Bytes(),
	})
}

// Run executes the named suites, or the configured ones when names is
// empty. The returned error is only non-nil when the selection is
// invalid: check failures are part of the report, and persistence,
// report file and publish failures are logged.
func (r *Runner) Run(ctx context.Context, names []string) (*report.Report, error) {
	if len(names) == 0 {
		names = r.cfg.Probe.Suites
	}
	selected, err := suites.Select(names)
	if err != nil {
		return nil, err
	}

	runID := models.NewULID()
	logger := observability.WithRunID(r.logger, runID.String())
	ctx = observability.ContextWithRunID(ctx, runID.String())

	var sink probe.Sink
	if r.console != nil {
		sink = r.console
	}
	rec := probe.NewRecorder(sink)
	env := suites.NewEnv(r.cfg, r.catalog, r.client, rec, logger)

	var applicable []suites.Suite
	var suiteNames []string
	for _, s := range selected {
		if !s.Applies(env) {
			logger.Debug("suite does not apply to target mode",
				slog.String("suite", s.Name()),
				slog.String("mode", env.Mode))
			continue
		}
		applicable = append(applicable, s)
		suiteNames = append(suiteNames, s.Name())
	}

	host := r.host(ctx)
	rep := &report.Report{
		RunID:       runID.String(),
		StartedAt:   time.Now(),
		FrontendURL: r.cfg.Target.FrontendURL,
		Mode:        r.cfg.Target.Mode,
		Suites:      suiteNames,
		Hostname:    host.Hostname,
	}
	if !env.FrontendOnly() {
		rep.BackendURL = r.cfg.Target.BackendURL
	}

	logger.Info("starting run",
		slog.String("frontend_url", rep.FrontendURL),
		slog.String("mode", rep.Mode),
		slog.Any("suites", suiteNames))
	if r.console != nil {
		r.console.Header(rep)
	}

	for _, s := range applicable {
		if ctx.Err() != nil {
			rec.Record(s.Name(), suiteCheckName(s), probe.StatusSkip, "Run canceled", 0)
			continue
		}
		r.runSuite(ctx, s, env, logger)
	}

	rep.FinishedAt = time.Now()
	rep.Results = rec.Results()
	rep.Summary = report.Summarize(rep.Results, report.Thresholds{
		Ready:       r.cfg.Thresholds.Ready,
		MostlyReady: r.cfg.Thresholds.MostlyReady,
	})

	if r.console != nil {
		r.console.Summary(rep)
	}

	logger.Info("run finished",
		slog.Int("total", rep.Summary.Total),
		slog.Int("failed", rep.Summary.Failed),
		slog.Float64("success_rate", rep.Summary.SuccessRate),
		slog.String("verdict", string(rep.Summary.Verdict)),
		slog.Duration("duration", rep.Duration()))

	if err := report.WriteFiles(rep, r.cfg.Report); err != nil {
		observability.WithError(logger, err).Error("failed to write report files")
	}

	// Persistence and publishing outlive a canceled run context so an
	// interrupted run still leaves a record.
	finishCtx := context.WithoutCancel(ctx)
	if r.runs != nil {
		var err error
		done := observability.TimedOperationWithError(finishCtx, logger, "persist_run", &err)
		err = r.runs.Create(finishCtx, NewRunModel(runID, rep, host))
		done()
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(finishCtx, rep); err != nil {
			observability.WithError(logger, err).Warn("failed to publish summary")
		}
	}

	return rep, nil
}

// runSuite runs s, converting a panic into a FAIL so later suites still run.
func (r *Runner) runSuite(ctx context.Context, s suites.Suite, env *suites.Env, logger *slog.Logger) {
	logger = observability.WithSuite(logger, s.Name())
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("suite panicked",
				slog.Any("panic", p),
				slog.String("stack", string(debug.Stack())))
			env.Recorder.Record(s.Name(), suiteCheckName(s), probe.StatusFail,
				fmt.Sprintf("Suite aborted: %v", p), time.Since(start))
		}
	}()

	suiteEnv := *env
	suiteEnv.Logger = logger
	s.Run(ctx, &suiteEnv)
	logger.Debug("suite finished", slog.Duration("duration", time.Since(start)))
}

func suiteCheckName(s suites.Suite) string {
	return "Suite " + s.Name()
}

// NewRunModel converts a finished report into its persisted form.
func NewRunModel(id models.ULID, rep *report.Report, host Host) *models.Run {
	s := rep.Summary
	run := &models.Run{
		StartedAt:   rep.StartedAt,
		FinishedAt:  rep.FinishedAt,
		FrontendURL: rep.FrontendURL,
		BackendURL:  rep.BackendURL,
		Mode:        rep.Mode,
		Suites:      strings.Join(rep.Suites, ","),
		Total:       s.Total,
		Passed:      s.Passed,
		Failed:      s.Failed,
		Warnings:    s.Warnings,
		Info:        s.Info,
		Skipped:     s.Skipped,
		SuccessRate: s.SuccessRate,
		Verdict:     s.Verdict,
		Hostname:    host.Hostname,
		Platform:    host.Description(),
		Results:     models.NewCheckResults(rep.Results),
	}
	run.ID = id
	return run
}

// ReportFromRun rebuilds the report of a persisted run. The stored verdict
// is kept even if the thresholds have changed since.
func ReportFromRun(run *models.Run, t report.Thresholds) *report.Report {
	results := make([]probe.Result, 0, len(run.Results))
	for i := range run.Results {
		results = append(results, run.Results[i].Result())
	}

	rep := &report.Report{
		RunID:       run.ID.String(),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		FrontendURL: run.FrontendURL,
		BackendURL:  run.BackendURL,
		Mode:        run.Mode,
		Suites:      run.SuiteList(),
		Hostname:    run.Hostname,
		Results:     results,
		Summary:     report.Summarize(results, t),
	}
	if run.Verdict != "" {
		rep.Summary.Verdict = run.Verdict
	}
	return rep
}
