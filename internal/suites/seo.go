package suites

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/calcprobe/internal/htmlscan"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

// seoSuite checks meta tags, structured data and expected keywords.
type seoSuite struct{ baseSuite }

// NewSEO creates the SEO suite.
func NewSEO() Suite {
	return &seoSuite{baseSuite{name: "seo"}}
}

func (s *seoSuite) Run(ctx context.Context, env *Env) {
	sc := env.Recorder.Scope(s.Name())

	for _, route := range env.Catalog.KeyPages {
		s.elements(ctx, env, sc, route)
	}
	for _, route := range env.Catalog.CriticalSEORoutes {
		s.critical(ctx, env, sc, route)
	}
	for _, kw := range env.Catalog.Keywords {
		s.keywords(ctx, env, sc, kw.Route, kw.Terms)
	}
}

func (s *seoSuite) elements(ctx context.Context, env *Env, sc probe.Scope, route string) {
	name := "SEO Elements: " + route

	page := env.Frontend.Get(ctx, route)
	if !page.OK() {
		sc.Fail(name, page.Problem(), page.Elapsed)
		return
	}

	doc := htmlscan.Scan(page.Body)
	report := doc.SEO()
	status := probe.RateCount(report.Score, env.Thresholds.SEOPass, env.Thresholds.SEOWarn)

	label := map[probe.Status]string{
		probe.StatusPass: "Excellent SEO",
		probe.StatusWarn: "Good SEO",
		probe.StatusFail: "Poor SEO",
	}[status]
	details := fmt.Sprintf("%s: %d/%d elements present", label, report.Score, report.Total())
	if missing := report.Missing(); len(missing) > 0 && status != probe.StatusPass {
		details += " (missing " + strings.Join(missing, ", ") + ")"
	}
	sc.Log(name, status, details, page.Elapsed)

	structuredData(sc, route, doc)
}

// structuredData rates the JSON-LD already fetched for route.
func structuredData(sc probe.Scope, route string, doc *htmlscan.Document) {
	name := "Structured Data: " + route

	switch types := doc.JSONLDTypes(); {
	case len(types) > 0:
		sc.Pass(name, "Schema types found: "+strings.Join(types, ", "), 0)
	case len(doc.JSONLD) > 0:
		sc.Warn(name, "JSON-LD present but no valid schema types detected", 0)
	default:
		sc.Fail(name, "No JSON-LD structured data found", 0)
	}
}

func (s *seoSuite) critical(ctx context.Context, env *Env, sc probe.Scope, route string) {
	name := "Critical Route " + route

	page := env.Frontend.Get(ctx, route)
	switch {
	case !page.Responded():
		sc.Fail(name, "Error accessing route: "+page.Err.Error(), 0)
		return
	case !page.OK():
		sc.Fail(name, fmt.Sprintf("Route returned status %d", page.StatusCode), page.Elapsed)
		return
	}

	doc := htmlscan.Scan(page.Body)
	if doc.HasTitle || doc.Contains("react-helmet") {
		sc.Pass(name, "Route loads successfully with SEO elements", page.Elapsed)
		return
	}
	sc.Warn(name, "Route loads but SEO elements may not be fully rendered", page.Elapsed)
}

func (s *seoSuite) keywords(ctx context.Context, env *Env, sc probe.Scope, route string, terms []string) {
	name := "SEO Keywords " + route

	page := env.Frontend.Get(ctx, route)
	if !page.OK() {
		sc.Fail(name, "Could not access route for SEO verification", page.Elapsed)
		return
	}

	doc := htmlscan.Scan(page.Body)
	hits := doc.KeywordHits(terms)
	hasTitle := doc.HasTitle && doc.Title != ""
	hasDescription := doc.HasMeta("description")

	details := fmt.Sprintf("%d/%d keywords found", len(hits), len(terms))
	if len(hits) > 0 {
		details += " (" + strings.Join(hits, ", ") + ")"
	}

	if hasTitle && hasDescription && len(hits) >= 2 {
		sc.Pass(name, "Title and description present, "+details, page.Elapsed)
		return
	}

	var gaps []string
	if !hasTitle {
		gaps = append(gaps, "title missing")
	}
	if !hasDescription {
		gaps = append(gaps, "description missing")
	}
	gaps = append(gaps, details)
	sc.Warn(name, strings.Join(gaps, ", "), page.Elapsed)
}
