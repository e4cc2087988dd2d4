package htmlscan

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"
)

// SEOElement is one scored SEO signal.
type SEOElement struct {
	Key     string
	Present bool
}

// SEOReport scores the ten SEO elements.
type SEOReport struct {
	Elements []SEOElement
	Score    int
}

// Total is the number of scored elements.
func (r SEOReport) Total() int {
	return len(r.Elements)
}

// Missing lists the keys of absent elements.
func (r SEOReport) Missing() []string {
	var out []string
	for _, e := range r.Elements {
		if !e.Present {
			out = append(out, e.Key)
		}
	}
	return out
}

// SEO scores the page: title, description, keywords, canonical, Open
// Graph, Twitter card, viewport, JSON-LD, h1 and robots directives.
func (d *Document) SEO() SEOReport {
	elements := []SEOElement{
		{"title", d.HasTitle && d.Title != ""},
		{"meta_description", d.HasMeta("description")},
		{"meta_keywords", d.HasMeta("keywords")},
		{"canonical", d.HasLink("canonical")},
		{"og_tags", d.HasMetaPrefix("og:")},
		{"twitter_tags", d.HasMetaPrefix("twitter:")},
		{"viewport", d.HasMeta("viewport")},
		{"structured_data", len(d.JSONLD) > 0},
		{"h1_tag", d.H1Count > 0},
		{"robots_meta", d.HasMeta("robots") || d.HasMeta("googlebot")},
	}

	report := SEOReport{Elements: elements}
	for _, e := range elements {
		if e.Present {
			report.Score++
		}
	}
	return report
}

// JSONLDTypes returns the sorted, de-duplicated @type values declared by
// the page's JSON-LD blocks. Blocks that are not valid JSON are skipped.
func (d *Document) JSONLDTypes() []string {
	seen := make(map[string]bool)
	for _, block := range d.JSONLD {
		var v any
		if err := json.Unmarshal([]byte(block), &v); err != nil {
			continue
		}
		collectTypes(v, seen, 0)
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// collectTypes reads @type from an object, from each object of a
// top-level array, and from the members of an @graph.
func collectTypes(v any, seen map[string]bool, depth int) {
	switch node := v.(type) {
	case []any:
		if depth > 0 {
			return
		}
		for _, item := range node {
			if obj, ok := item.(map[string]any); ok {
				collectTypes(obj, seen, depth+1)
			}
		}
	case map[string]any:
		switch t := node["@type"].(type) {
		case string:
			if t != "" {
				seen[t] = true
			}
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok && s != "" {
					seen[s] = true
				}
			}
		}
		if graph, ok := node["@graph"].([]any); ok {
			for _, item := range graph {
				if obj, ok := item.(map[string]any); ok {
					collectTypes(obj, seen, depth+1)
				}
			}
		}
	}
}

// Responsive records the three mobile-readiness signal groups.
type Responsive struct {
	Viewport      bool
	ResponsiveCSS bool
	Mobile        bool
}

// Score counts the groups present.
func (r Responsive) Score() int {
	n := 0
	for _, ok := range []bool{r.Viewport, r.ResponsiveCSS, r.Mobile} {
		if ok {
			n++
		}
	}
	return n
}

// Responsive inspects viewport meta, responsive CSS and mobile hints.
func (d *Document) Responsive() Responsive {
	return Responsive{
		Viewport:      d.HasMeta("viewport"),
		ResponsiveCSS: d.AnyOf("sm:", "md:", "lg:", "xl:", "@media", "responsive"),
		Mobile:        d.AnyOf("mobile", "touch", "device-width"),
	}
}

// runtimeErrorMarkers is text a crashed React bundle tends to leave in the page.
var runtimeErrorMarkers = []string{
	"react error",
	"uncaught error",
	"javascript error",
	"cannot read property",
	"undefined is not a function",
	"module not found",
}

// ErrorMarkers returns the runtime error markers present in the page.
func (d *Document) ErrorMarkers() []string {
	return d.Matches(runtimeErrorMarkers...)
}

var imageTerms = []string{"hero", "professional", "medical", "calculator", "img", "image", "photo", "picture"}

// ImageSignals reports whether the page references Unsplash imagery and
// which generic image indicators it contains.
func (d *Document) ImageSignals() (unsplash bool, hits []string) {
	return d.Contains("unsplash.com"), d.Matches(imageTerms...)
}

// ComponentSignals returns which React rendering indicators are present.
func (d *Document) ComponentSignals() []string {
	var hits []string
	if d.HasRoot {
		hits = append(hits, `id="root"`)
	}
	for _, t := range []string{"react", "component", "calculator"} {
		if d.Contains(t) {
			hits = append(hits, t)
		}
	}
	return hits
}

// HasFAQ reports FAQ content.
func (d *Document) HasFAQ() bool {
	return d.AnyOf("faq", "frequently asked")
}

// accessibilityIndicators pairs a markup fragment with the feature it shows.
var accessibilityIndicators = []struct{ marker, feature string }{
	{"aria-label", "ARIA labels"},
	{"role=", "ARIA roles"},
	{"alt=", "Alt text"},
	{"tabindex", "Tab navigation"},
	{"focus:", "Focus states"},
	{"sr-only", "Screen reader text"},
}

// AccessibilityReport lists the accessibility features found in a page.
type AccessibilityReport struct {
	Features []string
	Total    int
}

// Accessibility looks for ARIA attributes, alt text, tab order, focus
// styles and screen-reader-only text.
func (d *Document) Accessibility() AccessibilityReport {
	report := AccessibilityReport{Total: len(accessibilityIndicators)}
	for _, ind := range accessibilityIndicators {
		if d.Contains(ind.marker) {
			report.Features = append(report.Features, ind.feature)
		}
	}
	return report
}

// CalculatorLinks returns the distinct anchor targets that point at a
// calculator page, in document order.
func (d *Document) CalculatorLinks() []string {
	var links []string
	for _, href := range d.Anchors {
		if strings.Contains(strings.ToLower(href), "calculator") && !slices.Contains(links, href) {
			links = append(links, href)
		}
	}
	return links
}

// KeywordHits returns the expected terms found in the page.
func (d *Document) KeywordHits(terms []string) []string {
	return d.Matches(terms...)
}
