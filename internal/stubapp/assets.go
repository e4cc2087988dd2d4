package stubapp

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
)

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

func (a *App) handleRobots(w http.ResponseWriter, r *http.Request) {
	if a.Faults().assetMissing(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	var sb strings.Builder
	sb.WriteString("User-agent: *\n")
	sb.WriteString("Allow: /\n\n")
	fmt.Fprintf(&sb, "Sitemap: %s/sitemap.xml\n", a.siteURL)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(sb.String()))
}

// Sitemap renders the sitemap covering every catalog route.
func (a *App) Sitemap() ([]byte, error) {
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, route := range a.catalog.AllRoutes() {
		priority := "0.8"
		if route == "/" {
			priority = "1.0"
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        a.siteURL + route,
			ChangeFreq: "weekly",
			Priority:   priority,
		})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func (a *App) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if a.Faults().assetMissing(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	body, err := a.Sitemap()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(body)
}

type webManifest struct {
	ShortName       string         `json:"short_name"`
	Name            string         `json:"name"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
	ThemeColor      string         `json:"theme_color"`
	BackgroundColor string         `json:"background_color"`
	Icons           []manifestIcon `json:"icons"`
}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

func (a *App) handleManifest(w http.ResponseWriter, r *http.Request) {
	if a.Faults().assetMissing(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, webManifest{
		ShortName:       "Calculators",
		Name:            "Health Calculators",
		StartURL:        "/",
		Display:         "standalone",
		ThemeColor:      "#2563eb",
		BackgroundColor: "#ffffff",
		Icons: []manifestIcon{
			{Src: "/logo192.png", Sizes: "192x192", Type: "image/png"},
			{Src: "/logo512.png", Sizes: "512x512", Type: "image/png"},
		},
	})
}

func (a *App) handleRedirects(w http.ResponseWriter, r *http.Request) {
	if a.Faults().assetMissing(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("/*    /index.html   200\n"))
}
