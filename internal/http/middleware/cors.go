package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy decides which cross-origin callers may read responses.
type CORSPolicy struct {
	// Origins lists allowed origins. "*" allows any origin and an entry
	// such as "https://*.example.com" allows its subdomains.
	Origins []string
	Methods []string
	Headers []string
	Expose  []string
	// MaxAge is how long browsers may cache a preflight answer.
	MaxAge time.Duration
}

// APICORSPolicy is the policy for the results API.
func APICORSPolicy(origins ...string) CORSPolicy {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSPolicy{
		Origins: origins,
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		Headers: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		Expose:  []string{RequestIDHeader},
		MaxAge:  24 * time.Hour,
	}
}

// CORS applies APICORSPolicy for origins.
func CORS(origins ...string) func(http.Handler) http.Handler {
	return APICORSPolicy(origins...).Handler
}

// AllowOrigin returns the Access-Control-Allow-Origin value for origin, or
// false when origin is not allowed.
func (p CORSPolicy) AllowOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	for _, o := range p.Origins {
		switch {
		case o == "*":
			if len(p.Origins) == 1 {
				return "*", true
			}
			return origin, true
		case o == origin:
			return origin, true
		case strings.Contains(o, "://*."):
			scheme, suffix, _ := strings.Cut(o, "*")
			if strings.HasPrefix(origin, scheme) && strings.HasSuffix(origin, suffix) &&
				len(origin) > len(scheme)+len(suffix) {
				return origin, true
			}
		}
	}
	return "", false
}

// Handler answers preflight requests with 204 and decorates the rest.
func (p CORSPolicy) Handler(next http.Handler) http.Handler {
	methods := strings.Join(p.Methods, ", ")
	headers := strings.Join(p.Headers, ", ")
	expose := strings.Join(p.Expose, ", ")
	maxAge := strconv.Itoa(int(p.MaxAge.Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if allow, ok := p.AllowOrigin(r.Header.Get("Origin")); ok {
			h.Set("Access-Control-Allow-Origin", allow)
			if allow != "*" {
				h.Add("Vary", "Origin")
			}
			if expose != "" {
				h.Set("Access-Control-Expose-Headers", expose)
			}
		}

		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)
		if p.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", maxAge)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
