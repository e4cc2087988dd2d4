// Package catalog describes the routes and assets of the deployment under
// test. A default catalog is embedded; a YAML file or URL can replace it.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/calcprobe/internal/urlutil"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid catalog")

// Category is a named group of frontend routes.
type Category struct {
	Name   string   `yaml:"name" json:"name"`
	Routes []string `yaml:"routes" json:"routes"`
}

// Title returns the display name, e.g. "Pregnancy Womens Health".
func (c Category) Title() string {
	return Title(c.Name)
}

// Title converts a snake_case identifier into title case words.
func Title(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// KeywordSet lists terms a route's HTML is expected to mention.
type KeywordSet struct {
	Route string   `yaml:"route" json:"route"`
	Terms []string `yaml:"terms" json:"terms"`
}

// Asset is a static file served next to the SPA.
type Asset struct {
	Path string `yaml:"path" json:"path"`
	// ContentType is a fragment the Content-Type header must contain.
	// Empty skips the content type check.
	ContentType string `yaml:"content_type" json:"content_type,omitempty"`
	Required    bool   `yaml:"required" json:"required"`
}

// Catalog is the full description of the target's frontend surface.
type Catalog struct {
	Categories        []Category   `yaml:"categories" json:"categories"`
	KeyPages          []string     `yaml:"key_pages" json:"key_pages"`
	PerformancePages  []string     `yaml:"performance_pages" json:"performance_pages"`
	CriticalSEORoutes []string     `yaml:"critical_seo_routes" json:"critical_seo_routes"`
	Keywords          []KeywordSet `yaml:"keywords" json:"keywords"`
	// AccessibilityPages are scanned for ARIA, alt text and focus markup.
	AccessibilityPages []string `yaml:"accessibility_pages" json:"accessibility_pages"`
	// CrossLinkPages must link to related calculators; RelatedCalculators
	// are the names such a page is expected to mention.
	CrossLinkPages     []string `yaml:"cross_link_pages" json:"cross_link_pages"`
	RelatedCalculators []string `yaml:"related_calculators" json:"related_calculators"`
	Assets             []Asset  `yaml:"assets" json:"assets"`
	// DeepRoute is fetched directly to prove the host rewrites unknown
	// paths to the SPA shell.
	DeepRoute string `yaml:"deep_route" json:"deep_route"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from a local path or file:// URL, or returns the
// default when path is empty.
func Load(path string) (*Catalog, error) {
	return LoadSource(context.Background(), urlutil.NewFetcher(nil), path)
}

// LoadSource reads a catalog from a path, a file:// URL or an http(s) URL
// using f. An empty src returns the default.
func LoadSource(ctx context.Context, f *urlutil.Fetcher, src string) (*Catalog, error) {
	if src == "" {
		return Default(), nil
	}
	data, err := f.Read(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", src, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the catalog for structural errors.
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalid)
	}

	seenCategory := make(map[string]bool, len(c.Categories))
	seenRoute := make(map[string]bool)
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("%w: category without a name", ErrInvalid)
		}
		if seenCategory[cat.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalid, cat.Name)
		}
		seenCategory[cat.Name] = true
		if len(cat.Routes) == 0 {
			return fmt.Errorf("%w: category %q has no routes", ErrInvalid, cat.Name)
		}
		for _, r := range cat.Routes {
			if !strings.HasPrefix(r, "/") {
				return fmt.Errorf("%w: route %q in %q must start with /", ErrInvalid, r, cat.Name)
			}
			seenRoute[r] = true
		}
	}

	lists := []struct {
		name   string
		routes []string
	}{
		{"key_pages", c.KeyPages},
		{"performance_pages", c.PerformancePages},
		{"critical_seo_routes", c.CriticalSEORoutes},
		{"accessibility_pages", c.AccessibilityPages},
		{"cross_link_pages", c.CrossLinkPages},
	}
	for _, l := range lists {
		for _, r := range l.routes {
			if !seenRoute[r] {
				return fmt.Errorf("%w: %s entry %q is not a catalog route", ErrInvalid, l.name, r)
			}
		}
	}
	for _, k := range c.Keywords {
		if !seenRoute[k.Route] {
			return fmt.Errorf("%w: keywords entry %q is not a catalog route", ErrInvalid, k.Route)
		}
		if len(k.Terms) == 0 {
			return fmt.Errorf("%w: keywords entry %q has no terms", ErrInvalid, k.Route)
		}
	}
	if len(c.CrossLinkPages) > 0 && len(c.RelatedCalculators) == 0 {
		return fmt.Errorf("%w: cross_link_pages needs related_calculators", ErrInvalid)
	}
	if c.DeepRoute != "" && !seenRoute[c.DeepRoute] {
		return fmt.Errorf("%w: deep_route %q is not a catalog route", ErrInvalid, c.DeepRoute)
	}

	for _, a := range c.Assets {
		if !strings.HasPrefix(a.Path, "/") {
			return fmt.Errorf("%w: asset %q must start with /", ErrInvalid, a.Path)
		}
	}

	return nil
}

// AllRoutes returns every route in category order without duplicates.
func (c *Catalog) AllRoutes() []string {
	var out []string
	for _, cat := range c.Categories {
		for _, r := range cat.Routes {
			if !slices.Contains(out, r) {
				out = append(out, r)
			}
		}
	}
	return out
}

// Category looks up a category by name.
func (c *Catalog) Category(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// HasRoute reports whether route belongs to any category.
func (c *Catalog) HasRoute(route string) bool {
	return slices.Contains(c.AllRoutes(), route)
}

// Asset looks up a static asset by path.
func (c *Catalog) Asset(path string) (Asset, bool) {
	for _, a := range c.Assets {
		if a.Path == path {
			return a, true
		}
	}
	return Asset{}, false
}
