package suites

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/htmlscan"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

// contentSuite looks at what the rendered pages actually contain.
type contentSuite struct{ baseSuite }

// NewContent creates the content suite.
func NewContent() Suite {
	return &contentSuite{baseSuite{name: "content"}}
}

func (s *contentSuite) Run(ctx context.Context, env *Env) {
	sc := env.Recorder.Scope(s.Name())

	s.homepage(ctx, env, sc)
	for _, kw := range env.Catalog.Keywords {
		s.enhanced(ctx, env, sc, kw)
	}
	for _, route := range env.Catalog.AccessibilityPages {
		s.accessibility(ctx, env, sc, route)
	}
	for _, route := range env.Catalog.CrossLinkPages {
		s.crossLinks(ctx, env, sc, route)
	}
}

func (s *contentSuite) homepage(ctx context.Context, env *Env, sc probe.Scope) {
	const (
		runtimeName  = "Runtime Error Check"
		noscriptName = "Noscript Fallback"
	)

	page := env.Frontend.Get(ctx, "/")
	if !page.OK() {
		sc.Fail(runtimeName, "Could not access homepage: "+page.Problem(), page.Elapsed)
		sc.Fail(noscriptName, "Could not access homepage: "+page.Problem(), 0)
		return
	}

	doc := htmlscan.Scan(page.Body)
	if markers := doc.ErrorMarkers(); len(markers) > 0 {
		sc.Fail(runtimeName, "Runtime errors detected: "+strings.Join(markers, ", "), page.Elapsed)
	} else {
		sc.Pass(runtimeName, "No runtime errors detected", page.Elapsed)
	}

	if doc.HasNoscript {
		sc.Pass(noscriptName, "Noscript fallback present", 0)
	} else {
		sc.Warn(noscriptName, "No <noscript> fallback for users without JavaScript", 0)
	}
}

func (s *contentSuite) enhanced(ctx context.Context, env *Env, sc probe.Scope, kw catalog.KeywordSet) {
	route := kw.Route
	imagesName := "Professional Images: " + route
	componentsName := "React Component Rendering: " + route
	enhancementName := "Content Enhancement: " + route

	page := env.Frontend.Get(ctx, route)
	if !page.OK() {
		for _, name := range []string{imagesName, componentsName, enhancementName} {
			sc.Fail(name, "Could not access route for content testing: "+page.Problem(), page.Elapsed)
		}
		return
	}
	doc := htmlscan.Scan(page.Body)

	unsplash, imageHits := doc.ImageSignals()
	switch {
	case unsplash:
		sc.Pass(imagesName, "Professional Unsplash imagery referenced", page.Elapsed)
	case len(imageHits) >= 3:
		sc.Pass(imagesName, fmt.Sprintf("%d image indicators (%s)", len(imageHits), strings.Join(imageHits, ", ")), page.Elapsed)
	default:
		sc.Warn(imagesName, fmt.Sprintf("Limited image indicators (%d)", len(imageHits)), page.Elapsed)
	}

	components := doc.ComponentSignals()
	componentDetails := fmt.Sprintf("%d/4 component indicators", len(components))
	if len(components) > 0 {
		componentDetails += " (" + strings.Join(components, ", ") + ")"
	}
	if len(components) >= 3 {
		sc.Pass(componentsName, componentDetails, page.Elapsed)
	} else {
		sc.Warn(componentsName, componentDetails, page.Elapsed)
	}

	hits := doc.KeywordHits(kw.Terms)
	faq := doc.HasFAQ()
	links := doc.Count("calculator")
	details := fmt.Sprintf("%d/%d keywords, FAQ %s, %d calculator mentions",
		len(hits), len(kw.Terms), presence(faq), links)
	if len(hits) >= 1 && (faq || links > 3) {
		sc.Pass(enhancementName, details, page.Elapsed)
		return
	}
	sc.Warn(enhancementName, details, page.Elapsed)
}

// accessibility passes with at least three accessibility features.
func (s *contentSuite) accessibility(ctx context.Context, env *Env, sc probe.Scope, route string) {
	name := "Accessibility: " + route

	page := env.Frontend.Get(ctx, route)
	if !page.OK() {
		sc.Fail(name, "Could not access route for accessibility testing: "+page.Problem(), page.Elapsed)
		return
	}

	report := htmlscan.Scan(page.Body).Accessibility()
	found := len(report.Features)
	if found >= 3 {
		sc.Pass(name, fmt.Sprintf("Accessibility features found (%d/%d): %s",
			found, report.Total, strings.Join(report.Features, ", ")), page.Elapsed)
		return
	}
	details := fmt.Sprintf("Limited accessibility features (%d/%d)", found, report.Total)
	if found > 0 {
		details += ": " + strings.Join(report.Features, ", ")
	}
	sc.Warn(name, details, page.Elapsed)
}

// crossLinks scores named related calculators plus distinct links to
// calculator pages: five or more passes, three or four warns.
func (s *contentSuite) crossLinks(ctx context.Context, env *Env, sc probe.Scope, route string) {
	name := "Related Calculators: " + route

	page := env.Frontend.Get(ctx, route)
	if !page.OK() {
		sc.Fail(name, "Could not access route for cross-link testing: "+page.Problem(), page.Elapsed)
		return
	}

	doc := htmlscan.Scan(page.Body)
	mentions := doc.Matches(env.Catalog.RelatedCalculators...)
	links := doc.CalculatorLinks()
	score := len(mentions) + len(links)
	details := fmt.Sprintf("%d related calculators named, %d calculator links", len(mentions), len(links))

	switch {
	case score >= 5:
		sc.Pass(name, details, page.Elapsed)
	case score >= 3:
		sc.Warn(name, details, page.Elapsed)
	default:
		sc.Fail(name, details, page.Elapsed)
	}
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "absent"
}
