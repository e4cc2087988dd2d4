// Package stubapp serves a stand-in for the health-calculator deployment:
// the status-check backend and a prerendered SPA shell for every catalog
// route. Faults can be switched on to drive the degraded paths of the
// checks.
package stubapp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/http/middleware"
)

// HelloMessage is the body of GET /api/.
const HelloMessage = "Hello World"

// Faults degrade the stub. The zero value is a healthy deployment.
type Faults struct {
	// Delay is added before every frontend response.
	Delay time.Duration
	// RouteStatus forces a status code for individual paths.
	RouteStatus map[string]int
	// BackendDown makes every /api request answer 503.
	BackendDown bool
	// NoCORS drops CORS headers from backend responses.
	NoCORS bool
	// NoSEO strips meta tags and JSON-LD from the shell.
	NoSEO bool
	// NoRoot renders the shell without the id="root" mount point.
	NoRoot bool
	// RuntimeError leaves a crashed-bundle message in the shell.
	RuntimeError bool
	// MissingAssets lists static files that answer 404.
	MissingAssets []string
}

func (f Faults) statusFor(path string) int {
	return f.RouteStatus[path]
}

func (f Faults) assetMissing(path string) bool {
	for _, p := range f.MissingAssets {
		if p == path {
			return true
		}
	}
	return false
}

// Options configure an App.
type Options struct {
	Catalog *catalog.Catalog
	Logger  *slog.Logger
	// SiteURL is the public origin used in canonical links, robots.txt
	// and the sitemap.
	SiteURL string
}

// App is the stub deployment.
type App struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
	siteURL string
	store   *StatusStore
	router  *chi.Mux

	mu     sync.RWMutex
	faults Faults
}

// New builds the stub and its router.
func New(opts Options) *App {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SiteURL == "" {
		opts.SiteURL = "https://healthcalculators.example"
	}

	a := &App{
		catalog: opts.Catalog,
		logger:  opts.Logger,
		siteURL: strings.TrimRight(opts.SiteURL, "/"),
		store:   NewStatusStore(),
	}
	a.router = a.routes()
	return a
}

// Handler returns the root handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Store exposes the status-check store.
func (a *App) Store() *StatusStore {
	return a.store
}

// SetFaults replaces the active faults.
func (a *App) SetFaults(f Faults) {
	a.mu.Lock()
	a.faults = f
	a.mu.Unlock()
}

// Faults returns the active faults.
func (a *App) Faults() Faults {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.faults
}

func (a *App) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Compress(5))

	r.Route("/api", func(api chi.Router) {
		api.Use(a.backendAvailable)
		api.Use(a.cors)
		api.Get("/", a.handleHello)
		api.Get("/status", a.handleListStatus)
		api.Post("/status", a.handleCreateStatus)
	})

	r.Group(func(fe chi.Router) {
		fe.Use(a.frontendFaults)
		fe.Get("/robots.txt", a.handleRobots)
		fe.Get("/sitemap.xml", a.handleSitemap)
		fe.Get("/manifest.json", a.handleManifest)
		fe.Get("/_redirects", a.handleRedirects)
		fe.Get("/*", a.handleShell)
	})

	return r
}

func (a *App) backendAvailable(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Faults().BackendDown {
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) cors(next http.Handler) http.Handler {
	withCORS := middleware.CORSPolicy{
		Origins: []string{"*"},
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		Headers: []string{"Content-Type"},
		MaxAge:  10 * time.Minute,
	}.Handler(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Faults().NoCORS {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		withCORS.ServeHTTP(w, r)
	})
}

func (a *App) frontendFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := a.Faults()
		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if code := f.statusFor(r.URL.Path); code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) handleHello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": HelloMessage})
}

func (a *App) handleListStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.store.List())
}

type createStatusRequest struct {
	ClientName string `json:"client_name"`
}

func (a *App) handleCreateStatus(w http.ResponseWriter, r *http.Request) {
	var req createStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid JSON body"})
		return
	}
	if req.ClientName == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "client_name is required"})
		return
	}

	check := a.store.Create(req.ClientName)
	a.logger.Debug("status check created",
		slog.String("id", check.ID),
		slog.String("client_name", check.ClientName),
	)
	writeJSON(w, http.StatusOK, check)
}

func (a *App) handleShell(w http.ResponseWriter, r *http.Request) {
	body, err := a.renderShell(r.URL.Path, a.Faults())
	if err != nil {
		a.logger.Error("rendering shell", slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_, _ = fmt.Fprintf(w, `{"detail":%q}`, err.Error())
	}
}
