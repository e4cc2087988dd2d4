package suites

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/htmlscan"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

// routesSuite fetches every catalog route and checks it serves the SPA.
type routesSuite struct{ baseSuite }

// NewRoutes creates the route accessibility suite.
func NewRoutes() Suite {
	return &routesSuite{baseSuite{name: "routes"}}
}

type routeOutcome struct {
	status  probe.Status
	details string
	elapsed time.Duration
}

func (s *routesSuite) Run(ctx context.Context, env *Env) {
	sc := env.Recorder.Scope(s.Name())
	routes := env.Catalog.AllRoutes()
	outcomes := fetchRoutes(ctx, env, routes, evaluateRoute)

	byRoute := make(map[string]routeOutcome, len(routes))
	for i, r := range routes {
		byRoute[r] = outcomes[i]
	}

	total, accessible := 0, 0
	for _, cat := range env.Catalog.Categories {
		catAccessible := 0
		for _, route := range cat.Routes {
			o := byRoute[route]
			sc.Log("Route: "+route, o.status, o.details, o.elapsed)
			total++
			if o.status == probe.StatusPass {
				accessible++
				catAccessible++
			}
		}
		s.categorySummary(env, sc, cat, catAccessible)
	}

	status, pct := probe.RateRatio(accessible, total, env.Thresholds.OverallPass, env.Thresholds.OverallWarn)
	sc.Log("Overall Route Accessibility", status,
		fmt.Sprintf("%d/%d routes accessible (%.1f%%)", accessible, total, pct), 0)
}

func (s *routesSuite) categorySummary(env *Env, sc probe.Scope, cat catalog.Category, accessible int) {
	name := cat.Title() + " Category Summary"
	total := len(cat.Routes)

	status, pct := probe.RateRatio(accessible, total, 100, env.Thresholds.CategoryWarn)
	if status == probe.StatusPass {
		sc.Pass(name, fmt.Sprintf("All %d routes accessible", total), 0)
		return
	}
	sc.Log(name, status, fmt.Sprintf("%d/%d routes accessible (%.1f%%)", accessible, total, pct), 0)
}

// routeEvaluator judges one route.
type routeEvaluator func(ctx context.Context, env *Env, route string) routeOutcome

// fetchRoutes evaluates routes concurrently, bounded by probe.concurrency.
// The outcomes are returned in the order of routes. A panicking evaluation
// fails its own route only.
func fetchRoutes(ctx context.Context, env *Env, routes []string, eval routeEvaluator) []routeOutcome {
	outcomes := make([]routeOutcome, len(routes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(env.Probe.Concurrency, 1))
	for i, route := range routes {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					env.Logger.ErrorContext(ctx, "route check panicked",
						slog.String("route", route),
						slog.Any("panic", p),
						slog.String("stack", string(debug.Stack())))
					outcomes[i] = routeOutcome{
						status:  probe.StatusFail,
						details: fmt.Sprintf("Check aborted: %v", p),
					}
				}
			}()
			outcomes[i] = eval(gctx, env, route)
			return nil
		})
	}
	_ = g.Wait()

	env.Logger.DebugContext(ctx, "routes fetched",
		slog.Int("count", len(routes)),
		slog.Int("concurrency", env.Probe.Concurrency),
	)
	return outcomes
}

func evaluateRoute(ctx context.Context, env *Env, route string) routeOutcome {
	page := env.Frontend.Get(ctx, route)
	o := routeOutcome{elapsed: page.Elapsed}

	switch {
	case !page.Responded():
		o.status, o.details, o.elapsed = probe.StatusFail, page.Problem(), 0
	case !page.OK():
		o.status, o.details = probe.StatusFail, page.Problem()
	case htmlscan.Scan(page.Body).HasRoot:
		o.status, o.details = probe.StatusPass, "Route accessible"
	default:
		o.status, o.details = probe.StatusWarn, "Route accessible but may not be React app"
	}
	return o
}
