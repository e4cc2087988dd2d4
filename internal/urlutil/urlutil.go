// Package urlutil normalizes deployment base URLs and reads resources that
// may live on disk or behind a URL.
package urlutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/jmylchreest/calcprobe/pkg/httpclient"
)

// URL scheme constants.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeFile  = "file"
)

// NormalizeBaseURL prepares a base URL for path joining:
//   - surrounding whitespace is trimmed
//   - http:// is added when no scheme is given
//   - trailing slashes are removed
//
// Examples:
//
//	"localhost:3000"              -> "http://localhost:3000"
//	"https://calc.example.com/"   -> "https://calc.example.com"
//	"staging.example.com/app/"    -> "http://staging.example.com/app"
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ""
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = SchemeHTTP + "://" + baseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// JoinPath joins a base URL and a path with exactly one slash between
// them. An empty path yields the base unchanged.
func JoinPath(baseURL, path string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if path == "" {
		return baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return baseURL + path
}

// IsRemoteURL reports whether u is an http or https URL.
func IsRemoteURL(u string) bool {
	scheme := GetScheme(u)
	return scheme == SchemeHTTP || scheme == SchemeHTTPS
}

// IsFileURL reports whether u uses the file:// scheme.
func IsFileURL(u string) bool {
	return strings.HasPrefix(u, SchemeFile+"://")
}

// GetScheme returns the lower-cased scheme of u, or "" when it has none.
func GetScheme(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Scheme)
}

// FilePathFromURL extracts the path from a file:// URL. Both file:///path
// and file://localhost/path are accepted.
func FilePathFromURL(u string) (string, error) {
	if !IsFileURL(u) {
		return "", fmt.Errorf("not a file:// URL: %s", u)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Path == "" {
		return "", fmt.Errorf("empty path in file URL: %s", u)
	}
	return parsed.Path, nil
}

// Fetcher reads a resource named by an http(s) URL, a file:// URL or a
// plain filesystem path.
type Fetcher struct {
	client *httpclient.Client
}

// NewFetcher creates a Fetcher. client is only used for remote sources
// and may be nil when none are expected.
func NewFetcher(client *httpclient.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Read returns the full contents of src.
func (f *Fetcher) Read(ctx context.Context, src string) ([]byte, error) {
	switch {
	case IsRemoteURL(src):
		return f.readRemote(ctx, src)
	case IsFileURL(src):
		path, err := FilePathFromURL(src)
		if err != nil {
			return nil, err
		}
		return readFile(path)
	default:
		return readFile(src)
	}
}

func (f *Fetcher) readRemote(ctx context.Context, src string) ([]byte, error) {
	if f.client == nil {
		return nil, fmt.Errorf("fetching %s: no HTTP client configured", src)
	}
	resp, err := f.client.Get(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", src, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
