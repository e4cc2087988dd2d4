// Package httpclient provides the HTTP client used to probe a target
// deployment: one attempt per request, transparent decompression, a
// response size ceiling and a per-host circuit breaker that fails fast
// once a host has stopped answering.
package httpclient

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// Errors returned by the client.
var (
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrResponseTooLarge = errors.New("response body exceeds maximum size limit")
)

// Defaults used by DefaultConfig.
const (
	DefaultTimeout              = 10 * time.Second
	DefaultCircuitThreshold     = 5
	DefaultCircuitTimeout       = 30 * time.Second
	DefaultAcceptEncodingHeader = "gzip, deflate, br"
	DefaultUserAgentHeader      = "calcprobe-httpclient/1.0"
)

// HTTP header constants.
const (
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderContentEncoding = "Content-Encoding"
	HeaderUserAgent       = "User-Agent"

	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingBrotli  = "br"
)

// Config holds the configuration for the HTTP client.
type Config struct {
	// Timeout applies to requests whose context carries no deadline. A
	// deadline set by the caller always wins, whether shorter or longer.
	Timeout time.Duration

	// CircuitThreshold is the number of consecutive transport failures
	// against one host before requests to it fail fast. Zero disables
	// the breaker.
	CircuitThreshold int

	// CircuitTimeout is how long an open circuit rejects requests before
	// letting a single trial request through.
	CircuitTimeout time.Duration

	UserAgent string
	Logger    *slog.Logger

	// EnableDecompression advertises gzip, deflate and br and decodes
	// the response body accordingly.
	EnableDecompression bool

	// MaxResponseSize limits the decoded body size. Zero means no limit.
	MaxResponseSize int64

	// BaseClient is the underlying http.Client to use.
	BaseClient *http.Client
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:             DefaultTimeout,
		CircuitThreshold:    DefaultCircuitThreshold,
		CircuitTimeout:      DefaultCircuitTimeout,
		UserAgent:           DefaultUserAgentHeader,
		Logger:              slog.Default(),
		EnableDecompression: true,
	}
}

// Client executes single-attempt HTTP requests. It never retries.
type Client struct {
	config   Config
	client   *http.Client
	breakers *BreakerSet
	logger   *slog.Logger
}

// New creates a client with the given configuration.
func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	baseClient := cfg.BaseClient
	if baseClient == nil {
		baseClient = &http.Client{}
	}

	return &Client{
		config:   cfg,
		client:   baseClient,
		breakers: NewBreakerSet(cfg.CircuitThreshold, cfg.CircuitTimeout),
		logger:   cfg.Logger,
	}
}

// NewWithDefaults creates a new client with default configuration.
func NewWithDefaults() *Client {
	return New(DefaultConfig())
}

// Do executes req once. Transport errors are returned as-is, except that
// a host whose circuit is open yields ErrCircuitOpen without dialing.
// Any HTTP response, whatever its status, counts as the host being up.
//
// When Do returns a response the caller must close its body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var cancel context.CancelFunc = func() {}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
	}

	if req.Header.Get(HeaderUserAgent) == "" && c.config.UserAgent != "" {
		req.Header.Set(HeaderUserAgent, c.config.UserAgent)
	}
	if c.config.EnableDecompression && req.Header.Get(HeaderAcceptEncoding) == "" {
		req.Header.Set(HeaderAcceptEncoding, DefaultAcceptEncodingHeader)
	}

	breaker := c.breakers.For(req.URL.Host)
	if !breaker.Allow() {
		cancel()
		c.logger.Debug("circuit open, skipping request",
			slog.String("url", req.URL.String()),
			slog.String("state", breaker.State().String()),
		)
		return nil, fmt.Errorf("%s: %w", req.URL.Host, ErrCircuitOpen)
	}

	start := time.Now()
	resp, err := c.client.Do(req.WithContext(ctx))
	duration := time.Since(start)

	if err != nil {
		cancel()
		// Cancellation by the caller says nothing about the host.
		if !errors.Is(req.Context().Err(), context.Canceled) {
			breaker.RecordFailure()
		}
		c.logger.Debug("request failed",
			slog.String("url", req.URL.String()),
			slog.String("method", req.Method),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	breaker.RecordSuccess()
	c.logger.Debug("request completed",
		slog.String("url", req.URL.String()),
		slog.String("method", req.Method),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)

	body := resp.Body
	if c.config.EnableDecompression {
		body = c.wrapDecompression(resp)
	}
	// The limit applies after decompression so a small compressed
	// payload cannot expand without bound.
	if c.config.MaxResponseSize > 0 {
		body = capBody(body, c.config.MaxResponseSize)
	}
	resp.Body = &cancelOnClose{ReadCloser: body, cancel: cancel}

	return resp, nil
}

// Get performs a GET request to the specified URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.Do(req)
}

// CircuitState returns the breaker state for host.
func (c *Client) CircuitState(host string) CircuitState {
	return c.breakers.For(host).State()
}

// ResetCircuits closes every breaker.
func (c *Client) ResetCircuits() {
	c.breakers.Reset()
}

// StandardClient returns an *http.Client whose transport routes through c.
func (c *Client) StandardClient() *http.Client {
	return &http.Client{Transport: &probeTransport{client: c}}
}

type probeTransport struct {
	client *Client
}

func (t *probeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}

var _ http.RoundTripper = (*probeTransport)(nil)

// cancelOnClose releases the per-request timeout once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// decoders maps a Content-Encoding token to a reader that undoes it.
var decoders = map[string]func(io.Reader) (io.Reader, error){
	EncodingGzip: func(r io.Reader) (io.Reader, error) {
		return gzip.NewReader(r)
	},
	EncodingDeflate: func(r io.Reader) (io.Reader, error) {
		return flate.NewReader(r), nil
	},
	EncodingBrotli: func(r io.Reader) (io.Reader, error) {
		return brotli.NewReader(r), nil
	},
}

// wrapDecompression decodes resp's body when its encoding is one the client
// advertised. An unknown or broken encoding leaves the raw body in place so
// the caller still sees what the server sent.
func (c *Client) wrapDecompression(resp *http.Response) io.ReadCloser {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get(HeaderContentEncoding)))
	if encoding == "" || encoding == "identity" {
		return resp.Body
	}

	decode, ok := decoders[encoding]
	if !ok {
		c.logger.Debug("unknown content encoding, returning raw body",
			slog.String("encoding", encoding))
		return resp.Body
	}
	reader, err := decode(resp.Body)
	if err != nil {
		c.logger.Warn("undecodable response body, returning raw body",
			slog.String("encoding", encoding),
			slog.String("error", err.Error()))
		return resp.Body
	}

	resp.Header.Del(HeaderContentEncoding)
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true

	return &decodedBody{Reader: reader, raw: resp.Body}
}

// decodedBody closes both the decoder, when it has a Close, and the raw body.
type decodedBody struct {
	io.Reader
	raw io.Closer
}

func (d *decodedBody) Close() error {
	if closer, ok := d.Reader.(io.Closer); ok {
		_ = closer.Close()
	}
	return d.raw.Close()
}

// cappedBody fails with ErrResponseTooLarge once more than limit bytes
// have been read.
type cappedBody struct {
	io.ReadCloser
	remaining int64
}

func capBody(body io.ReadCloser, limit int64) *cappedBody {
	return &cappedBody{ReadCloser: body, remaining: limit}
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, ErrResponseTooLarge
	}
	n, err := b.ReadCloser.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, ErrResponseTooLarge
	}
	return n, err
}
