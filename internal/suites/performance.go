package suites

import (
	"context"
	"fmt"
	"strings"
	"time"

	units "github.com/docker/go-units"

	"github.com/jmylchreest/calcprobe/internal/htmlscan"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

// performanceSuite measures load times and page weight hints.
type performanceSuite struct{ baseSuite }

// NewPerformance creates the performance suite.
func NewPerformance() Suite {
	return &performanceSuite{baseSuite{name: "performance"}}
}

func (s *performanceSuite) Run(ctx context.Context, env *Env) {
	sc := env.Recorder.Scope(s.Name())
	timeout := probe.WithTimeout(env.Probe.PerformanceTimeout.Duration())

	var total time.Duration
	loaded := 0
	for _, route := range env.Catalog.PerformancePages {
		name := "Performance: " + route

		page := env.Frontend.Get(ctx, route, timeout)
		if !page.OK() {
			sc.Fail(name, page.Problem(), page.Elapsed)
			continue
		}

		loaded++
		total += page.Elapsed
		status, label := env.Bands.Rate(page.Elapsed, "Slow")
		sc.Log(name, status, label+" load time", page.Elapsed)

		optimization(env, sc, route, page)
	}

	if loaded == 0 {
		return
	}
	avg := total / time.Duration(loaded)
	status, label := env.Bands.Rate(avg, "Slow")
	sc.Log("Average Application Performance", status,
		fmt.Sprintf("%s average load time across %d pages", label, loaded), avg)
}

// optimization scores four delivery hints on an already fetched page.
func optimization(env *Env, sc probe.Scope, route string, page *probe.Page) {
	name := "Performance Optimization: " + route
	doc := htmlscan.Scan(page.Body)
	budget := env.Probe.MaxPageSize.Bytes()

	indicators := []struct {
		label string
		ok    bool
	}{
		{"lazy loading", doc.LazyLoading()},
		{"size " + units.HumanSize(float64(doc.Size())), int64(doc.Size()) < budget},
		{"caching headers", strings.Contains(strings.ToLower(page.Header.Get("Cache-Control")), "cache")},
		{"minified", doc.LooksMinified()},
	}

	score := 0
	var present []string
	for _, ind := range indicators {
		if ind.ok {
			score++
			present = append(present, ind.label)
		}
	}

	details := fmt.Sprintf("(%d/%d)", score, len(indicators))
	if len(present) > 0 {
		details += ": " + strings.Join(present, ", ")
	}

	switch probe.RateCount(score, 3, 2) {
	case probe.StatusPass:
		sc.Pass(name, "Good optimization indicators "+details, 0)
	case probe.StatusWarn:
		sc.Warn(name, "Some optimization indicators "+details, 0)
	default:
		sc.Fail(name, "Limited optimization indicators "+details, 0)
	}
}
