package stubapp

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/jmylchreest/calcprobe/internal/catalog"
)

// shellTemplate mimics the prerendered index.html of the calculator SPA.
// It is kept on few lines so the markup reads as minified.
var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>` +
	`<html lang="en"><head><meta charset="utf-8">` +
	`<meta name="viewport" content="width=device-width, initial-scale=1">` +
	`<title>{{.Title}}</title>` +
	`{{if .SEO}}` +
	`<meta name="description" content="{{.Description}}">` +
	`<meta name="keywords" content="{{.Keywords}}">` +
	`<meta name="robots" content="index, follow">` +
	`<meta property="og:title" content="{{.Title}}">` +
	`<meta property="og:description" content="{{.Description}}">` +
	`<meta property="og:image" content="https://images.unsplash.com/photo-1576091160399-112ba8d25d1d?w=1200">` +
	`<meta name="twitter:card" content="summary_large_image">` +
	`<meta name="twitter:title" content="{{.Title}}">` +
	`<link rel="canonical" href="{{.Canonical}}">` +
	`<script type="application/ld+json">{{.JSONLD}}</script>` +
	`{{end}}` +
	`<link rel="manifest" href="/manifest.json">` +
	`<script defer src="/static/js/main.js"></script>` +
	`</head><body class="min-h-screen sm:px-4 md:px-8 lg:px-16">` +
	`<noscript>You need to enable JavaScript to run this app.</noscript>` +
	`{{if .Root}}<div id="root">{{else}}<div id="app">{{end}}` +
	`<a href="#main" class="sr-only focus:not-sr-only">Skip to content</a>` +
	`<header data-component="Header"><nav aria-label="Main"><a href="/">Health Calculators</a></nav></header>` +
	`<main id="main" role="main" data-component="CalculatorPage"><h1>{{.Heading}}</h1>` +
	`<img class="hero-image" loading="lazy" alt="Professional medical calculator" src="https://images.unsplash.com/photo-1576091160550-2173dba999ef?w=800">` +
	`{{if .Body}}<p>{{.Body}}</p>{{end}}` +
	`<section id="faq"><h2>Frequently Asked Questions</h2><p>How accurate is this calculator?</p></section>` +
	`<aside><a href="/bmr-calculator">BMR calculator</a><a href="/tdee-calculator">TDEE calculator</a><a href="/calorie-calculator">Calorie calculator</a></aside>` +
	`</main>` +
	`{{if .RuntimeError}}<pre>Uncaught Error: Cannot read property 'map' of undefined</pre>{{end}}` +
	`</div></body></html>`))

type shellData struct {
	Title        string
	Heading      string
	Description  string
	Keywords     string
	Canonical    string
	Body         string
	JSONLD       template.JS
	SEO          bool
	Root         bool
	RuntimeError bool
}

// pageTitle turns "/body-fat-calculator" into "Body Fat Calculator".
func pageTitle(route string) string {
	name := strings.Trim(route, "/")
	if name == "" {
		return "Health Calculators"
	}
	return catalog.Title(strings.ReplaceAll(name, "-", "_"))
}

func (a *App) renderShell(route string, f Faults) ([]byte, error) {
	heading := pageTitle(route)
	terms := a.keywordTerms(route)

	title := heading
	if route != "/" {
		title += " | Health Calculators"
	}

	data := shellData{
		Title:        title,
		Heading:      heading,
		Description:  fmt.Sprintf("Free %s with instant, medically reviewed results.", strings.ToLower(heading)),
		Keywords:     strings.Join(append([]string{strings.ToLower(heading)}, terms...), ", "),
		Canonical:    a.siteURL + route,
		Body:         strings.Join(terms, " · "),
		JSONLD:       template.JS(jsonLD(heading, a.siteURL+route)),
		SEO:          !f.NoSEO,
		Root:         !f.NoRoot,
		RuntimeError: f.RuntimeError,
	}

	var buf bytes.Buffer
	if err := shellTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering shell for %s: %w", route, err)
	}
	return buf.Bytes(), nil
}

func (a *App) keywordTerms(route string) []string {
	for _, k := range a.catalog.Keywords {
		if k.Route == route {
			return k.Terms
		}
	}
	return nil
}

func jsonLD(name, url string) string {
	return fmt.Sprintf(`[{"@context":"https://schema.org","@type":"WebApplication","name":%q,"url":%q,"applicationCategory":"HealthApplication"},`+
		`{"@context":"https://schema.org","@type":"FAQPage","mainEntity":[]}]`, name, url)
}
