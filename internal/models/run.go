package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jmylchreest/calcprobe/internal/probe"
)

// Verdict is the deployment readiness assessment of a run.
type Verdict string

const (
	VerdictReady       Verdict = "READY"
	VerdictMostlyReady Verdict = "MOSTLY_READY"
	VerdictNotReady    Verdict = "NOT_READY"
)

// Run is one execution of the check suites against a deployment.
type Run struct {
	BaseModel

	StartedAt  time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	FrontendURL string `gorm:"size:512;not null" json:"frontend_url"`
	BackendURL  string `gorm:"size:512" json:"backend_url,omitempty"`
	Mode        string `gorm:"size:32" json:"mode"`
	// Suites is the comma-separated list of suites that ran.
	Suites string `gorm:"size:255" json:"suites"`

	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	Warnings    int     `json:"warnings"`
	Info        int     `json:"info"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"success_rate"`
	Verdict     Verdict `gorm:"size:20;index" json:"verdict"`

	Hostname string `gorm:"size:255" json:"hostname,omitempty"`
	Platform string `gorm:"size:255" json:"platform,omitempty"`

	Results []CheckResult `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"results,omitempty"`
}

// TableName returns the table name for runs.
func (Run) TableName() string {
	return "runs"
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SuiteList splits Suites.
func (r *Run) SuiteList() []string {
	if r.Suites == "" {
		return nil
	}
	return strings.Split(r.Suites, ",")
}

// Validate checks the run before it is stored.
func (r *Run) Validate() error {
	if r.StartedAt.IsZero() {
		return ErrStartedAtRequired
	}
	if r.FrontendURL == "" {
		return ErrFrontendRequired
	}
	for i := range r.Results {
		if err := r.Results[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BeforeSave validates the run.
func (r *Run) BeforeSave(_ *gorm.DB) error {
	return r.Validate()
}

// CheckResult is one recorded check within a run.
type CheckResult struct {
	BaseModel

	RunID      ULID         `gorm:"type:varchar(26);not null;index:idx_check_results_run_seq,priority:1" json:"run_id"`
	Seq        int          `gorm:"not null;index:idx_check_results_run_seq,priority:2" json:"seq"`
	Suite      string       `gorm:"size:50;not null" json:"suite"`
	Name       string       `gorm:"size:255;not null" json:"name"`
	Status     probe.Status `gorm:"size:10;not null;index" json:"status"`
	Details    string       `gorm:"type:text" json:"details"`
	DurationMs int64        `json:"duration_ms"`
	CheckedAt  time.Time    `json:"checked_at"`
}

// TableName returns the table name for check results.
func (CheckResult) TableName() string {
	return "check_results"
}

// Validate checks the name and status.
func (c *CheckResult) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if _, err := probe.ParseStatus(string(c.Status)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}
	return nil
}

// Result converts back to the in-memory result.
func (c *CheckResult) Result() probe.Result {
	return probe.Result{
		Seq:       c.Seq,
		Suite:     c.Suite,
		Name:      c.Name,
		Status:    c.Status,
		Details:   c.Details,
		Duration:  time.Duration(c.DurationMs) * time.Millisecond,
		Timestamp: c.CheckedAt,
	}
}

// NewCheckResults converts recorded results for storage.
func NewCheckResults(results []probe.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{
			Seq:        r.Seq,
			Suite:      r.Suite,
			Name:       r.Name,
			Status:     r.Status,
			Details:    r.Details,
			DurationMs: r.Duration.Milliseconds(),
			CheckedAt:  r.Timestamp,
		})
	}
	return out
}
