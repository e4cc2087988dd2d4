// Package publish posts run summaries to an external webhook.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/models"
	"github.com/jmylchreest/calcprobe/internal/report"
	"github.com/jmylchreest/calcprobe/pkg/httpclient"
)

// maxErrorBody bounds how much of a rejected response is quoted in errors.
const maxErrorBody = 1024

// Payload is the JSON document sent for each run.
type Payload struct {
	RunID       string         `json:"run_id"`
	FrontendURL string         `json:"frontend_url"`
	BackendURL  string         `json:"backend_url,omitempty"`
	Mode        string         `json:"mode"`
	Hostname    string         `json:"hostname,omitempty"`
	StartedAt   string         `json:"started_at"`
	DurationMs  int64          `json:"duration_ms"`
	Verdict     models.Verdict `json:"verdict"`
	Summary     report.Summary `json:"summary"`
}

// NewPayload extracts the published fields from r.
func NewPayload(r *report.Report) Payload {
	return Payload{
		RunID:       r.RunID,
		FrontendURL: r.FrontendURL,
		BackendURL:  r.BackendURL,
		Mode:        r.Mode,
		Hostname:    r.Hostname,
		StartedAt:   r.StartedAt.UTC().Format(time.RFC3339),
		DurationMs:  r.Duration().Milliseconds(),
		Verdict:     r.Summary.Verdict,
		Summary:     r.Summary,
	}
}

// Publisher sends summaries with retries. Probes themselves never retry;
// only this delivery does.
type Publisher struct {
	url       string
	token     string
	userAgent string
	client    *retryablehttp.Client
}

// New returns a Publisher for cfg, or nil when no URL is configured.
func New(cfg config.PublishConfig, userAgent string, logger *slog.Logger) *Publisher {
	if cfg.URL == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	// The breaker stops a dead webhook from costing every later run a full
	// round of retries.
	transport := httpclient.New(httpclient.Config{
		Timeout:          httpclient.DefaultTimeout,
		CircuitThreshold: httpclient.DefaultCircuitThreshold,
		CircuitTimeout:   httpclient.DefaultCircuitTimeout,
		UserAgent:        userAgent,
		Logger:           logger,
	})

	client := retryablehttp.NewClient()
	client.HTTPClient = transport.StandardClient()
	client.Logger = logger
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return false, err
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin.Duration()
	client.RetryWaitMax = cfg.RetryWaitMax.Duration()
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn("retrying summary publish", slog.Int("attempt", attempt))
		}
	}

	return &Publisher{url: cfg.URL, token: cfg.Token, userAgent: userAgent, client: client}
}

// Publish posts the summary of r. A non-2xx answer after the final attempt
// is an error.
func (p *Publisher) Publish(ctx context.Context, r *report.Report) error {
	body, err := json.Marshal(NewPayload(r))
	if err != nil {
		return errors.Wrap(err, "failed to encode summary")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create publish request")
	}
	req.Header.Set("Content-Type", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to publish summary for run %s", r.RunID)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Errorf("unsuccessful status code: %d, response: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
