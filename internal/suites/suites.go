// Package suites implements the check suites run against a deployment.
// Each suite records its outcomes through the Env's recorder and never
// returns an error: every failure becomes a recorded result.
package suites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/probe"
	"github.com/jmylchreest/calcprobe/pkg/httpclient"
)

// ErrUnknownSuite is returned by Select for names that are not registered.
var ErrUnknownSuite = errors.New("unknown suite")

// Suite is one group of checks.
type Suite interface {
	// Name returns the identifier used by --suite, e.g. "technical_seo".
	Name() string

	// Applies reports whether the suite runs for env's target mode.
	Applies(env *Env) bool

	// Run executes the checks, recording every outcome.
	Run(ctx context.Context, env *Env)
}

// Env is everything a suite needs to talk to the target and record results.
type Env struct {
	Frontend   *probe.Target
	Backend    *probe.Target
	Catalog    *catalog.Catalog
	Thresholds config.ThresholdConfig
	Bands      probe.Bands
	Probe      config.ProbeConfig
	Mode       string
	// Origin is sent on CORS preflights.
	Origin   string
	Recorder *probe.Recorder
	Logger   *slog.Logger
}

// NewEnv builds an Env from configuration. client is shared by both targets.
func NewEnv(cfg *config.Config, cat *catalog.Catalog, client *httpclient.Client, rec *probe.Recorder, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Probe.Timeout.Duration()
	return &Env{
		Frontend:   probe.NewTarget(cfg.Target.FrontendURL, client, timeout),
		Backend:    probe.NewTarget(cfg.Target.BackendURL, client, timeout),
		Catalog:    cat,
		Thresholds: cfg.Thresholds,
		Bands:      BandsFrom(cfg.Thresholds),
		Probe:      cfg.Probe,
		Mode:       cfg.Target.Mode,
		Origin:     cfg.Target.CORSOrigin(),
		Recorder:   rec,
		Logger:     logger,
	}
}

// BandsFrom converts the configured load-time thresholds.
func BandsFrom(t config.ThresholdConfig) probe.Bands {
	return probe.Bands{
		Excellent:  t.Excellent.Duration(),
		Good:       t.Good.Duration(),
		Acceptable: t.Acceptable.Duration(),
	}
}

// FrontendOnly reports whether the backend is expected to be unreachable.
func (e *Env) FrontendOnly() bool {
	return e.Mode == config.ModeFrontendOnly
}

// baseSuite provides Name and Applies. An empty mode applies everywhere.
type baseSuite struct {
	name string
	mode string
}

func (b baseSuite) Name() string { return b.name }

func (b baseSuite) Applies(env *Env) bool {
	return b.mode == "" || b.mode == env.Mode
}

// Constructor creates a suite.
type Constructor func() Suite

// registry holds the suites in execution order.
var registry = []Constructor{
	NewBackend,
	NewIsolation,
	NewRoutes,
	NewSEO,
	NewPerformance,
	NewResponsive,
	NewDeployment,
	NewTechnicalSEO,
	NewContent,
}

// All returns every registered suite in execution order.
func All() []Suite {
	out := make([]Suite, 0, len(registry))
	for _, c := range registry {
		out = append(out, c())
	}
	return out
}

// Names returns the registered suite names in execution order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name()
	}
	return names
}

// Select returns the named suites in registry order. An empty selection
// means every suite. Unknown names are an error.
func Select(names []string) ([]Suite, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}

	known := Names()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !slices.Contains(known, n) {
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownSuite, n, strings.Join(known, ", "))
		}
		want[n] = true
	}

	var out []Suite
	for _, s := range all {
		if want[s.Name()] {
			out = append(out, s)
		}
	}
	return out, nil
}
