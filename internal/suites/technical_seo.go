package suites

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmylchreest/calcprobe/internal/probe"
)

const maxMissingListed = 5

type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// technicalSEOSuite checks robots.txt and the XML sitemap.
type technicalSEOSuite struct{ baseSuite }

// NewTechnicalSEO creates the technical SEO suite.
func NewTechnicalSEO() Suite {
	return &technicalSEOSuite{baseSuite{name: "technical_seo"}}
}

func (s *technicalSEOSuite) Run(ctx context.Context, env *Env) {
	sc := env.Recorder.Scope(s.Name())

	s.robots(ctx, env, sc)
	if page := s.sitemap(ctx, env, sc); page != nil {
		s.coverage(env, sc, page)
	}
}

func (s *technicalSEOSuite) robots(ctx context.Context, env *Env, sc probe.Scope) {
	const name = "Robots.txt Configuration"

	page := env.Frontend.Get(ctx, "/robots.txt")
	if !page.OK() {
		sc.Fail(name, page.Problem(), page.Elapsed)
		return
	}

	body := page.Text()
	hasAgent := strings.Contains(body, "User-agent:")
	hasSitemap := strings.Contains(body, "Sitemap:")
	switch {
	case hasAgent && hasSitemap:
		sc.Pass(name, "Properly configured with user-agent rules and sitemap reference", page.Elapsed)
	case hasAgent:
		sc.Warn(name, "Accessible but missing Sitemap reference", page.Elapsed)
	case hasSitemap:
		sc.Warn(name, "Accessible but missing User-agent rules", page.Elapsed)
	default:
		sc.Warn(name, "Accessible but missing User-agent rules and Sitemap reference", page.Elapsed)
	}
}

// sitemap returns the fetched sitemap when it looked well formed.
func (s *technicalSEOSuite) sitemap(ctx context.Context, env *Env, sc probe.Scope) *probe.Page {
	const name = "XML Sitemap"

	page := env.Frontend.Get(ctx, "/sitemap.xml")
	if !page.OK() {
		sc.Fail(name, page.Problem(), page.Elapsed)
		return nil
	}

	body := page.Text()
	count := strings.Count(body, "<url>")
	if !strings.Contains(body, "<urlset") || count == 0 {
		sc.Warn(name, "Accessible but may be malformed", page.Elapsed)
		return nil
	}
	sc.Pass(name, fmt.Sprintf("Accessible with %d URLs", count), page.Elapsed)
	return page
}

func (s *technicalSEOSuite) coverage(env *Env, sc probe.Scope, page *probe.Page) {
	const name = "Sitemap Coverage"

	var set sitemapURLSet
	if err := xml.Unmarshal(page.Body, &set); err != nil {
		sc.Info(name, "Sitemap could not be parsed: "+err.Error())
		return
	}

	listed := make(map[string]bool, len(set.URLs))
	for _, u := range set.URLs {
		listed[locPath(u.Loc)] = true
	}

	routes := env.Catalog.AllRoutes()
	var missing []string
	for _, r := range routes {
		if !listed[r] {
			missing = append(missing, r)
		}
	}

	if len(missing) == 0 {
		sc.Pass(name, fmt.Sprintf("All %d catalog routes listed", len(routes)), 0)
		return
	}

	shown := missing
	if len(shown) > maxMissingListed {
		shown = shown[:maxMissingListed]
	}
	details := fmt.Sprintf("%d/%d catalog routes missing: %s", len(missing), len(routes), strings.Join(shown, ", "))
	if len(missing) > maxMissingListed {
		details += ", ..."
	}
	sc.Info(name, details)
}

// locPath reduces a sitemap loc to its path, "/" for the site root.
func locPath(loc string) string {
	loc = strings.TrimSpace(loc)
	u, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return "/"
	}
	return p
}
