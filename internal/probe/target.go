package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmylchreest/calcprobe/internal/observability"
	"github.com/jmylchreest/calcprobe/internal/urlutil"
	"github.com/jmylchreest/calcprobe/pkg/httpclient"
)

// RunHeader carries the run id on every probe request so the target's
// access logs can be matched to a run.
const RunHeader = "X-Calcprobe-Run"

// Page is the outcome of one HTTP exchange. Err is set for transport
// failures and for bodies that could not be read in full; StatusCode is
// zero when no response arrived.
type Page struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
	Err        error
}

// OK reports a 200 response that was read in full.
func (p *Page) OK() bool {
	return p.Err == nil && p.StatusCode == http.StatusOK
}

// Responded reports whether any HTTP response arrived.
func (p *Page) Responded() bool {
	return p.StatusCode != 0
}

// Text returns the body as a string.
func (p *Page) Text() string {
	return string(p.Body)
}

// DecodeJSON unmarshals the body into v.
func (p *Page) DecodeJSON(v any) error {
	if err := json.Unmarshal(p.Body, v); err != nil {
		return fmt.Errorf("decoding %s response: %w", p.URL, err)
	}
	return nil
}

// Problem describes why the page is not OK: "Error: ..." for transport
// failures and "HTTP <code>" otherwise. It is empty for an OK page.
func (p *Page) Problem() string {
	switch {
	case p.Err != nil && !p.Responded():
		return "Error: " + p.Err.Error()
	case p.Err != nil:
		return fmt.Sprintf("HTTP %d, body unreadable: %v", p.StatusCode, p.Err)
	case p.StatusCode != http.StatusOK:
		return fmt.Sprintf("HTTP %d", p.StatusCode)
	default:
		return ""
	}
}

// RequestOption customises a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	timeout time.Duration
	header  http.Header
}

// WithTimeout overrides the target's default timeout.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.timeout = d }
}

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.header.Add(key, value) }
}

// Target issues requests against one base URL. It never returns errors:
// every outcome is captured in a Page.
type Target struct {
	base    string
	client  *httpclient.Client
	timeout time.Duration
}

// NewTarget creates a Target for base using client. timeout bounds each
// request including reading the body.
func NewTarget(base string, client *httpclient.Client, timeout time.Duration) *Target {
	return &Target{
		base:    strings.TrimRight(base, "/"),
		client:  client,
		timeout: timeout,
	}
}

// Base returns the base URL without a trailing slash.
func (t *Target) Base() string { return t.base }

// URL joins the base URL and path.
func (t *Target) URL(path string) string {
	return urlutil.JoinPath(t.base, path)
}

// Get fetches path.
func (t *Target) Get(ctx context.Context, path string, opts ...RequestOption) *Page {
	return t.do(ctx, http.MethodGet, path, nil, "", opts)
}

// PostJSON posts body encoded as JSON.
func (t *Target) PostJSON(ctx context.Context, path string, body any, opts ...RequestOption) *Page {
	data, err := json.Marshal(body)
	if err != nil {
		return &Page{Method: http.MethodPost, URL: t.URL(path), Err: fmt.Errorf("encoding request: %w", err)}
	}
	return t.do(ctx, http.MethodPost, path, data, "application/json", opts)
}

// Options sends an OPTIONS request, typically a CORS preflight.
func (t *Target) Options(ctx context.Context, path string, opts ...RequestOption) *Page {
	return t.do(ctx, http.MethodOptions, path, nil, "", opts)
}

func (t *Target) do(ctx context.Context, method, path string, body []byte, contentType string, opts []RequestOption) *Page {
	o := requestOptions{timeout: t.timeout, header: http.Header{}}
	for _, opt := range opts {
		opt(&o)
	}

	page := &Page{Method: method, URL: t.URL(path)}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, page.URL, reader)
	if err != nil {
		page.Err = fmt.Errorf("creating request: %w", err)
		return page
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if runID := observability.RunIDFromContext(ctx); runID != "" {
		req.Header.Set(RunHeader, runID)
	}
	for k, vs := range o.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		page.Elapsed = time.Since(start)
		page.Err = unwrapURLError(err)
		return page
	}
	defer resp.Body.Close()

	page.StatusCode = resp.StatusCode
	page.Header = resp.Header
	page.Body, err = io.ReadAll(resp.Body)
	page.Elapsed = time.Since(start)
	if err != nil {
		page.Err = fmt.Errorf("reading body: %w", err)
	}
	return page
}

// unwrapURLError strips the method and URL prefix added by net/http.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
