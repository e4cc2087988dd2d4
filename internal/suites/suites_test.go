package suites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/observability"
	"github.com/jmylchreest/calcprobe/internal/probe"
	"github.com/jmylchreest/calcprobe/internal/stubapp"
	"github.com/jmylchreest/calcprobe/pkg/httpclient"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Decode(v)
	require.NoError(t, err)
	return cfg
}

// newEnv builds an Env whose client closes its idle connections when the
// test ends.
func newEnv(t *testing.T, frontendURL, backendURL, mode string) (*Env, *probe.Recorder) {
	t.Helper()
	return newEnvWithTimeout(t, frontendURL, backendURL, mode, 5*time.Second)
}

// newEnvWithTimeout uses timeout for both the targets and the client's
// default, as the runner does.
func newEnvWithTimeout(t *testing.T, frontendURL, backendURL, mode string, timeout time.Duration) (*Env, *probe.Recorder) {
	t.Helper()

	cfg := defaultConfig(t)
	cfg.Target.FrontendURL = frontendURL
	cfg.Target.BackendURL = backendURL
	cfg.Target.Mode = mode
	cfg.Probe.Timeout = config.Duration(timeout)

	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)

	logger := observability.NewNopLogger()
	client := httpclient.New(httpclient.Config{
		Timeout:             timeout,
		UserAgent:           "calcprobe-test",
		Logger:              logger,
		EnableDecompression: true,
		BaseClient:          &http.Client{Transport: transport},
	})

	rec := probe.NewRecorder(nil)
	return NewEnv(cfg, catalog.Default(), client, rec, logger), rec
}

func newStub(t *testing.T) (*stubapp.App, *httptest.Server) {
	t.Helper()
	app := stubapp.New(stubapp.Options{Logger: observability.NewNopLogger()})
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return app, srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func runSuite(t *testing.T, s Suite, env *Env) {
	t.Helper()
	require.True(t, s.Applies(env), "suite %s does not apply in mode %s", s.Name(), env.Mode)
	s.Run(context.Background(), env)
}

// byName indexes results by check name.
func byName(results []probe.Result) map[string]probe.Result {
	out := make(map[string]probe.Result, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

func requireResult(t *testing.T, results []probe.Result, name string) probe.Result {
	t.Helper()
	r, ok := byName(results)[name]
	require.True(t, ok, "no result named %q", name)
	return r
}

func statuses(results []probe.Result) map[probe.Status]int {
	out := make(map[probe.Status]int)
	for _, r := range results {
		out[r.Status]++
	}
	return out
}

func TestSelect(t *testing.T) {
	t.Run("empty selects everything in order", func(t *testing.T) {
		selected, err := Select(nil)
		require.NoError(t, err)
		assert.Len(t, selected, len(registry))
		assert.Equal(t, "backend", selected[0].Name())
		assert.Equal(t, "content", selected[len(selected)-1].Name())
	})

	t.Run("subset keeps registry order", func(t *testing.T) {
		selected, err := Select([]string{"content", " routes ", "seo"})
		require.NoError(t, err)
		var names []string
		for _, s := range selected {
			names = append(names, s.Name())
		}
		assert.Equal(t, []string{"routes", "seo", "content"}, names)
	})

	t.Run("unknown suite", func(t *testing.T) {
		_, err := Select([]string{"routes", "load"})
		require.ErrorIs(t, err, ErrUnknownSuite)
		assert.Contains(t, err.Error(), `"load"`)
	})
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"backend", "isolation", "routes", "seo", "performance",
		"responsive", "deployment", "technical_seo", "content",
	}, Names())
}

func TestApplies(t *testing.T) {
	full := &Env{Mode: config.ModeFull}
	frontendOnly := &Env{Mode: config.ModeFrontendOnly}

	assert.True(t, NewBackend().Applies(full))
	assert.False(t, NewBackend().Applies(frontendOnly))
	assert.False(t, NewIsolation().Applies(full))
	assert.True(t, NewIsolation().Applies(frontendOnly))
	assert.True(t, NewRoutes().Applies(full))
	assert.True(t, NewRoutes().Applies(frontendOnly))
}

func TestHealthyDeployment(t *testing.T) {
	_, srv := newStub(t)
	env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)

	for _, s := range All() {
		if s.Applies(env) {
			s.Run(context.Background(), env)
		}
	}

	results := rec.Results()
	for _, r := range results {
		assert.NotEqual(t, probe.StatusFail, r.Status, "%s: %s", r.Name, r.Details)
		assert.NotEqual(t, probe.StatusWarn, r.Status, "%s: %s", r.Name, r.Details)
	}
	assert.Zero(t, statuses(results)[probe.StatusSkip])

	for i, r := range results {
		assert.Equal(t, i+1, r.Seq)
	}
}

func TestBackendSuite(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewBackend(), env)

		results := rec.Results()
		var names []string
		for _, r := range results {
			names = append(names, r.Name)
			assert.Equal(t, probe.StatusPass, r.Status, "%s: %s", r.Name, r.Details)
			assert.Equal(t, "backend", r.Suite)
		}
		assert.Equal(t, []string{
			"FastAPI Backend Connectivity",
			"Status Read",
			"Status Write",
			"CORS Configuration",
			"Database Connectivity",
		}, names)

		assert.Equal(t, "Allow-Origin: *", requireResult(t, results, "CORS Configuration").Details)
		assert.Equal(t, 2, app.Store().Len())
		for _, c := range app.Store().List() {
			assert.True(t, strings.HasPrefix(c.ClientName, "calcprobe-"))
		}
	})

	t.Run("backend down skips dependent checks", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{BackendDown: true})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewBackend(), env)

		results := rec.Results()
		require.Len(t, results, 2)
		assert.Equal(t, probe.StatusFail, results[0].Status)
		assert.Equal(t, "HTTP 503", results[0].Details)
		assert.Equal(t, probe.StatusSkip, results[1].Status)
		assert.Equal(t, "Backend Integration Tests", results[1].Name)
		assert.Equal(t, "Backend not available", results[1].Details)
	})

	t.Run("connection refused", func(t *testing.T) {
		env, rec := newEnv(t, deadURL(t), deadURL(t), config.ModeFull)
		runSuite(t, NewBackend(), env)

		results := rec.Results()
		require.Len(t, results, 2)
		assert.Equal(t, probe.StatusFail, results[0].Status)
		assert.True(t, strings.HasPrefix(results[0].Details, "Error: "), results[0].Details)
		assert.Equal(t, probe.StatusSkip, results[1].Status)
	})

	t.Run("unexpected hello body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"Goodbye"}`))
		}))
		t.Cleanup(srv.Close)

		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewBackend(), env)

		first := rec.Results()[0]
		assert.Equal(t, probe.StatusFail, first.Status)
		assert.Contains(t, first.Details, "Goodbye")
	})

	t.Run("missing CORS", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{NoCORS: true})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewBackend(), env)

		cors := requireResult(t, rec.Results(), "CORS Configuration")
		assert.Equal(t, probe.StatusFail, cors.Status)
		assert.Equal(t, "Preflight returned HTTP 405", cors.Details)
	})
}

func TestIsolationSuite(t *testing.T) {
	t.Run("unreachable backend passes", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, deadURL(t), config.ModeFrontendOnly)
		runSuite(t, NewIsolation(), env)

		results := rec.Results()
		require.Len(t, results, 1)
		assert.Equal(t, "Backend API Isolation", results[0].Name)
		assert.Equal(t, probe.StatusPass, results[0].Status)
		assert.Equal(t, "Backend API properly isolated", results[0].Details)
	})

	t.Run("reachable backend warns", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFrontendOnly)
		runSuite(t, NewIsolation(), env)

		results := rec.Results()
		require.Len(t, results, 1)
		assert.Equal(t, probe.StatusWarn, results[0].Status)
		assert.Contains(t, results[0].Details, "Backend API unexpectedly accessible (status ")
	})
}

func TestRoutesSuite(t *testing.T) {
	t.Run("records in catalog order", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		env.Probe.Concurrency = 8
		runSuite(t, NewRoutes(), env)

		var routes []string
		for _, r := range rec.Results() {
			if route, ok := strings.CutPrefix(r.Name, "Route: "); ok {
				routes = append(routes, route)
				assert.Equal(t, probe.StatusPass, r.Status)
				assert.Equal(t, "Route accessible", r.Details)
			}
		}
		assert.Equal(t, env.Catalog.AllRoutes(), routes)

		summary := requireResult(t, rec.Results(), "Pregnancy Womens Health Category Summary")
		assert.Equal(t, probe.StatusPass, summary.Status)
		assert.Equal(t, "All 6 routes accessible", summary.Details)

		overall := requireResult(t, rec.Results(), "Overall Route Accessibility")
		assert.Equal(t, probe.StatusPass, overall.Status)
		assert.Equal(t, "30/30 routes accessible (100.0%)", overall.Details)
	})

	t.Run("broken route", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{RouteStatus: map[string]int{"/gfr-calculator": http.StatusInternalServerError}})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewRoutes(), env)

		results := rec.Results()
		route := requireResult(t, results, "Route: /gfr-calculator")
		assert.Equal(t, probe.StatusFail, route.Status)
		assert.Equal(t, "HTTP 500", route.Details)

		medical := requireResult(t, results, "Medical Category Summary")
		assert.Equal(t, probe.StatusFail, medical.Status)
		assert.Equal(t, "1/2 routes accessible (50.0%)", medical.Details)

		overall := requireResult(t, results, "Overall Route Accessibility")
		assert.Equal(t, probe.StatusPass, overall.Status)
		assert.Equal(t, "29/30 routes accessible (96.7%)", overall.Details)
	})

	t.Run("shell without root marker", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{NoRoot: true})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewRoutes(), env)

		results := rec.Results()
		route := requireResult(t, results, "Route: /")
		assert.Equal(t, probe.StatusWarn, route.Status)
		assert.Equal(t, "Route accessible but may not be React app", route.Details)
		assert.Equal(t, probe.StatusFail, requireResult(t, results, "Overall Route Accessibility").Status)
	})

	t.Run("panicking evaluation fails only its route", func(t *testing.T) {
		_, srv := newStub(t)
		env, _ := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		env.Probe.Concurrency = 4
		routes := env.Catalog.AllRoutes()

		outcomes := fetchRoutes(context.Background(), env, routes, func(ctx context.Context, env *Env, route string) routeOutcome {
			if route == "/gfr-calculator" {
				panic("malformed page")
			}
			return evaluateRoute(ctx, env, route)
		})

		require.Len(t, outcomes, len(routes))
		for i, route := range routes {
			if route == "/gfr-calculator" {
				assert.Equal(t, probe.StatusFail, outcomes[i].status)
				assert.Equal(t, "Check aborted: malformed page", outcomes[i].details)
				continue
			}
			assert.Equal(t, probe.StatusPass, outcomes[i].status, route)
		}
	})

	t.Run("unreachable frontend", func(t *testing.T) {
		env, rec := newEnv(t, deadURL(t), deadURL(t), config.ModeFull)
		runSuite(t, NewRoutes(), env)

		route := requireResult(t, rec.Results(), "Route: /bmr-calculator")
		assert.Equal(t, probe.StatusFail, route.Status)
		assert.True(t, strings.HasPrefix(route.Details, "Error: "))
		assert.False(t, route.Timed())
	})
}

func TestSEOSuite(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewSEO(), env)

		results := rec.Results()
		elements := requireResult(t, results, "SEO Elements: /")
		assert.Equal(t, probe.StatusPass, elements.Status)
		assert.Equal(t, "Excellent SEO: 10/10 elements present", elements.Details)

		data := requireResult(t, results, "Structured Data: /gfr-calculator")
		assert.Equal(t, probe.StatusPass, data.Status)
		assert.Equal(t, "Schema types found: FAQPage, WebApplication", data.Details)

		critical := requireResult(t, results, "Critical Route /body-type-calculator")
		assert.Equal(t, probe.StatusPass, critical.Status)

		keywords := requireResult(t, results, "SEO Keywords /ovulation-calculator")
		assert.Equal(t, probe.StatusPass, keywords.Status)
		assert.Contains(t, keywords.Details, "4/4 keywords found")

		assert.Len(t, results, 2*len(env.Catalog.KeyPages)+len(env.Catalog.CriticalSEORoutes)+len(env.Catalog.Keywords))
	})

	t.Run("missing meta", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{NoSEO: true})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewSEO(), env)

		results := rec.Results()
		elements := requireResult(t, results, "SEO Elements: /calorie-calculator")
		assert.Equal(t, probe.StatusFail, elements.Status)
		assert.True(t, strings.HasPrefix(elements.Details, "Poor SEO: 3/10 elements present"), elements.Details)
		assert.Contains(t, elements.Details, "meta_description")

		data := requireResult(t, results, "Structured Data: /calorie-calculator")
		assert.Equal(t, probe.StatusFail, data.Status)

		keywords := requireResult(t, results, "SEO Keywords /period-calculator")
		assert.Equal(t, probe.StatusWarn, keywords.Status)
		assert.Contains(t, keywords.Details, "description missing")
	})

	t.Run("broken critical route", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{RouteStatus: map[string]int{
			"/ideal-weight-calculator": http.StatusNotFound,
			"/ovulation-calculator":    http.StatusBadGateway,
		}})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewSEO(), env)

		results := rec.Results()
		critical := requireResult(t, results, "Critical Route /ideal-weight-calculator")
		assert.Equal(t, probe.StatusFail, critical.Status)
		assert.Equal(t, "Route returned status 404", critical.Details)

		keywords := requireResult(t, results, "SEO Keywords /ovulation-calculator")
		assert.Equal(t, probe.StatusFail, keywords.Status)
		assert.Equal(t, "Could not access route for SEO verification", keywords.Details)
	})
}

func TestPerformanceSuite(t *testing.T) {
	t.Run("fast pages", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewPerformance(), env)

		results := rec.Results()
		perf := requireResult(t, results, "Performance: /pace-calculator")
		assert.Equal(t, probe.StatusPass, perf.Status)
		assert.Equal(t, "Excellent load time", perf.Details)
		assert.True(t, perf.Timed())

		opt := requireResult(t, results, "Performance Optimization: /pace-calculator")
		assert.Equal(t, probe.StatusPass, opt.Status)
		assert.Contains(t, opt.Details, "(4/4)")

		avg := requireResult(t, results, "Average Application Performance")
		assert.Equal(t, probe.StatusPass, avg.Status)
		assert.Contains(t, avg.Details, "across 6 pages")
	})

	t.Run("slow pages", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		env.Bands = probe.Bands{Excellent: time.Nanosecond, Good: 2 * time.Nanosecond, Acceptable: 3 * time.Nanosecond}
		runSuite(t, NewPerformance(), env)

		results := rec.Results()
		perf := requireResult(t, results, "Performance: /")
		assert.Equal(t, probe.StatusFail, perf.Status)
		assert.Equal(t, "Slow load time", perf.Details)
		assert.Equal(t, probe.StatusFail, requireResult(t, results, "Average Application Performance").Status)
	})

	t.Run("performance timeout outlasts default timeout", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{Delay: 400 * time.Millisecond})
		env, rec := newEnvWithTimeout(t, srv.URL, srv.URL, config.ModeFull, 200*time.Millisecond)
		env.Probe.PerformanceTimeout = config.Duration(3 * time.Second)
		runSuite(t, NewPerformance(), env)

		for _, page := range env.Catalog.PerformancePages {
			perf := requireResult(t, rec.Results(), "Performance: "+page)
			assert.NotEqual(t, probe.StatusFail, perf.Status, "%s: %s", page, perf.Details)
			assert.NotContains(t, perf.Details, "Error:")
			assert.GreaterOrEqual(t, perf.Duration, 400*time.Millisecond)
		}
		assert.Contains(t, byName(rec.Results()), "Average Application Performance")

		// Ordinary checks keep the shorter default timeout.
		page := env.Frontend.Get(context.Background(), "/")
		assert.False(t, page.OK())
		assert.Error(t, page.Err)
	})

	t.Run("no successful load omits the average", func(t *testing.T) {
		env, rec := newEnv(t, deadURL(t), deadURL(t), config.ModeFull)
		runSuite(t, NewPerformance(), env)

		results := rec.Results()
		assert.Len(t, results, len(env.Catalog.PerformancePages))
		assert.NotContains(t, byName(results), "Average Application Performance")
		assert.Equal(t, len(results), statuses(results)[probe.StatusFail])
	})

	t.Run("heavy uncached page", func(t *testing.T) {
		page := "<html><body>\n\n      <div id=\"root\">" + strings.Repeat("x", 2048) + "</div></body></html>"
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(page))
		}))
		t.Cleanup(srv.Close)

		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		env.Probe.MaxPageSize = 1024
		runSuite(t, NewPerformance(), env)

		opt := requireResult(t, rec.Results(), "Performance Optimization: /")
		assert.Equal(t, probe.StatusFail, opt.Status)
		assert.Contains(t, opt.Details, "(0/4)")
	})
}

func TestResponsiveSuite(t *testing.T) {
	_, srv := newStub(t)
	env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
	runSuite(t, NewResponsive(), env)

	results := rec.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "Mobile Responsiveness", results[0].Name)
	assert.Equal(t, probe.StatusPass, results[0].Status)
	assert.True(t, strings.HasPrefix(results[0].Details, "3/3 responsive indicators"))
}

func TestDeploymentSuite(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewDeployment(), env)

		results := rec.Results()
		require.Len(t, results, len(env.Catalog.Assets)+1)
		for _, r := range results {
			assert.Equal(t, probe.StatusPass, r.Status, "%s: %s", r.Name, r.Details)
		}
		assert.Equal(t, "Deep route /body-fat-calculator serves the SPA shell",
			requireResult(t, results, "SPA Routing Compatibility").Details)
	})

	t.Run("missing assets", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{MissingAssets: []string{"/manifest.json", "/_redirects"}})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewDeployment(), env)

		results := rec.Results()
		manifest := requireResult(t, results, "Static Asset: /manifest.json")
		assert.Equal(t, probe.StatusFail, manifest.Status)
		assert.Equal(t, "HTTP 404", manifest.Details)

		redirects := requireResult(t, results, "Static Asset: /_redirects")
		assert.Equal(t, probe.StatusWarn, redirects.Status)
		assert.Equal(t, "HTTP 404 (may be handled by build process)", redirects.Details)
	})

	t.Run("wrong content type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<div id="root"></div>`))
		}))
		t.Cleanup(srv.Close)

		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewDeployment(), env)

		results := rec.Results()
		robots := requireResult(t, results, "Static Asset: /robots.txt")
		assert.Equal(t, probe.StatusWarn, robots.Status)
		assert.Contains(t, robots.Details, "unexpected content type")
		assert.Equal(t, probe.StatusPass, requireResult(t, results, "Static Asset: /_redirects").Status)
		assert.Equal(t, probe.StatusPass, requireResult(t, results, "SPA Routing Compatibility").Status)
	})

	t.Run("deep link not rewritten", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{RouteStatus: map[string]int{"/body-fat-calculator": http.StatusNotFound}})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewDeployment(), env)

		spa := requireResult(t, rec.Results(), "SPA Routing Compatibility")
		assert.Equal(t, probe.StatusFail, spa.Status)
		assert.Equal(t, "Deep route /body-fat-calculator: HTTP 404", spa.Details)
	})
}

func TestTechnicalSEOSuite(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewTechnicalSEO(), env)

		results := rec.Results()
		require.Len(t, results, 3)
		for _, r := range results {
			assert.Equal(t, probe.StatusPass, r.Status, "%s: %s", r.Name, r.Details)
		}
		assert.Equal(t, "Accessible with 30 URLs", requireResult(t, results, "XML Sitemap").Details)
		assert.Equal(t, "All 30 catalog routes listed", requireResult(t, results, "Sitemap Coverage").Details)
	})

	t.Run("partial sitemap", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		})
		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` +
				`<url><loc>https://example.test/</loc></url>` +
				`<url><loc>https://example.test/bmr-calculator/</loc></url></urlset>`))
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewTechnicalSEO(), env)

		results := rec.Results()
		robots := requireResult(t, results, "Robots.txt Configuration")
		assert.Equal(t, probe.StatusWarn, robots.Status)
		assert.Equal(t, "Accessible but missing Sitemap reference", robots.Details)

		assert.Equal(t, "Accessible with 2 URLs", requireResult(t, results, "XML Sitemap").Details)

		coverage := requireResult(t, results, "Sitemap Coverage")
		assert.Equal(t, probe.StatusInfo, coverage.Status)
		assert.True(t, strings.HasPrefix(coverage.Details, "28/30 catalog routes missing: /body-fat-calculator, "), coverage.Details)
		assert.True(t, strings.HasSuffix(coverage.Details, ", ..."))
	})

	t.Run("malformed sitemap", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not a sitemap</html>"))
		}))
		t.Cleanup(srv.Close)

		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewTechnicalSEO(), env)

		results := rec.Results()
		require.Len(t, results, 2)
		sitemap := requireResult(t, results, "XML Sitemap")
		assert.Equal(t, probe.StatusWarn, sitemap.Status)
		assert.Equal(t, "Accessible but may be malformed", sitemap.Details)
	})

	t.Run("missing robots", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{MissingAssets: []string{"/robots.txt"}})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewTechnicalSEO(), env)

		robots := requireResult(t, rec.Results(), "Robots.txt Configuration")
		assert.Equal(t, probe.StatusFail, robots.Status)
		assert.Equal(t, "HTTP 404", robots.Details)
	})
}

func TestLocPath(t *testing.T) {
	tests := []struct {
		loc  string
		want string
	}{
		{"https://example.test/", "/"},
		{"https://example.test", "/"},
		{" https://example.test/bmr-calculator ", "/bmr-calculator"},
		{"https://example.test/bmr-calculator/", "/bmr-calculator"},
		{"/relative-path", "/relative-path"},
	}
	for _, tt := range tests {
		t.Run(tt.loc, func(t *testing.T) {
			assert.Equal(t, tt.want, locPath(tt.loc))
		})
	}
}

func TestContentSuite(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		_, srv := newStub(t)
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewContent(), env)

		results := rec.Results()
		require.Len(t, results, 2+3*len(env.Catalog.Keywords)+len(env.Catalog.AccessibilityPages)+len(env.Catalog.CrossLinkPages))
		for _, r := range results {
			assert.Equal(t, probe.StatusPass, r.Status, "%s: %s", r.Name, r.Details)
		}
		assert.Equal(t, "Professional Unsplash imagery referenced",
			requireResult(t, results, "Professional Images: /conception-calculator").Details)
		assert.Equal(t, "Accessibility features found (5/6): ARIA labels, ARIA roles, Alt text, Focus states, Screen reader text",
			requireResult(t, results, "Accessibility: /bac-calculator").Details)
		assert.Equal(t, "4 related calculators named, 3 calculator links",
			requireResult(t, results, "Related Calculators: /due-date-calculator").Details)
	})

	t.Run("runtime error in shell", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{RuntimeError: true})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewContent(), env)

		check := requireResult(t, rec.Results(), "Runtime Error Check")
		assert.Equal(t, probe.StatusFail, check.Status)
		assert.Equal(t, "Runtime errors detected: uncaught error, cannot read property", check.Details)
	})

	t.Run("bare page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><div id="app">Hello</div></body></html>`))
		}))
		t.Cleanup(srv.Close)

		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewContent(), env)

		results := rec.Results()
		assert.Equal(t, probe.StatusPass, requireResult(t, results, "Runtime Error Check").Status)
		assert.Equal(t, probe.StatusWarn, requireResult(t, results, "Noscript Fallback").Status)
		assert.Equal(t, probe.StatusWarn, requireResult(t, results, "Professional Images: /period-calculator").Status)
		assert.Equal(t, probe.StatusWarn, requireResult(t, results, "React Component Rendering: /period-calculator").Status)
		assert.Equal(t, probe.StatusWarn, requireResult(t, results, "Content Enhancement: /period-calculator").Status)

		a11y := requireResult(t, results, "Accessibility: /gfr-calculator")
		assert.Equal(t, probe.StatusWarn, a11y.Status)
		assert.Equal(t, "Limited accessibility features (0/6)", a11y.Details)

		links := requireResult(t, results, "Related Calculators: /pregnancy-calculator")
		assert.Equal(t, probe.StatusFail, links.Status)
		assert.Equal(t, "0 related calculators named, 0 calculator links", links.Details)
	})

	t.Run("partial accessibility and cross-linking", func(t *testing.T) {
		page := `<html><body><div id="root"><img src="a.png" alt="Kidney">` +
			`<button aria-label="Calculate">Go</button>` +
			`<p>Try our BMI calculator or the BMR calculator.</p><a href="/tdee-calculator">TDEE</a></div></body></html>`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(page))
		}))
		t.Cleanup(srv.Close)

		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewContent(), env)

		results := rec.Results()
		a11y := requireResult(t, results, "Accessibility: /bac-calculator")
		assert.Equal(t, probe.StatusWarn, a11y.Status)
		assert.Equal(t, "Limited accessibility features (2/6): ARIA labels, Alt text", a11y.Details)

		links := requireResult(t, results, "Related Calculators: /gfr-calculator")
		assert.Equal(t, probe.StatusWarn, links.Status)
		assert.Equal(t, "2 related calculators named, 1 calculator links", links.Details)
	})

	t.Run("unreachable route", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{RouteStatus: map[string]int{"/ovulation-calculator": http.StatusServiceUnavailable}})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewContent(), env)

		results := rec.Results()
		for _, name := range []string{
			"Professional Images: /ovulation-calculator",
			"React Component Rendering: /ovulation-calculator",
			"Content Enhancement: /ovulation-calculator",
		} {
			r := requireResult(t, results, name)
			assert.Equal(t, probe.StatusFail, r.Status)
			assert.Contains(t, r.Details, "HTTP 503")
		}
	})

	t.Run("unreachable accessibility page", func(t *testing.T) {
		app, srv := newStub(t)
		app.SetFaults(stubapp.Faults{RouteStatus: map[string]int{"/gfr-calculator": http.StatusNotFound}})
		env, rec := newEnv(t, srv.URL, srv.URL, config.ModeFull)
		runSuite(t, NewContent(), env)

		results := rec.Results()
		a11y := requireResult(t, results, "Accessibility: /gfr-calculator")
		assert.Equal(t, probe.StatusFail, a11y.Status)
		assert.Equal(t, "Could not access route for accessibility testing: HTTP 404", a11y.Details)

		links := requireResult(t, results, "Related Calculators: /gfr-calculator")
		assert.Equal(t, probe.StatusFail, links.Status)
		assert.Contains(t, links.Details, "HTTP 404")

		assert.Equal(t, probe.StatusPass, requireResult(t, results, "Accessibility: /bac-calculator").Status)
	})
}

func TestUnreachableTargetNeverAborts(t *testing.T) {
	env, rec := newEnv(t, deadURL(t), deadURL(t), config.ModeFull)

	for _, s := range All() {
		if s.Applies(env) {
			s.Run(context.Background(), env)
		}
	}

	results := rec.Results()
	require.NotEmpty(t, results)
	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Suite] = true
		assert.NotEmpty(t, r.Name)
	}
	for _, name := range []string{"backend", "routes", "seo", "performance", "responsive", "deployment", "technical_seo", "content"} {
		assert.True(t, seen[name], "suite %s recorded nothing", name)
	}
	assert.Zero(t, statuses(results)[probe.StatusPass])
}
