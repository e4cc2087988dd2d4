// Package probe holds the check result model, the recorder that streams
// results as they are produced, and the HTTP target helper used by every
// suite.
package probe

import (
	"fmt"
	"strings"
	"time"
)

// Status classifies the outcome of a single check.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusWarn Status = "WARN"
	StatusInfo Status = "INFO"
	StatusSkip Status = "SKIP"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusPass, StatusFail, StatusWarn, StatusInfo, StatusSkip}

// ParseStatus converts s, case-insensitively, into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Result is one recorded check outcome.
type Result struct {
	Seq       int           `json:"seq"`
	Suite     string        `json:"suite"`
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Details   string        `json:"details"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Timed reports whether the check measured a duration.
func (r Result) Timed() bool {
	return r.Duration > 0
}

// DurationString renders the duration as seconds with millisecond
// precision, or N/A for untimed checks.
func (r Result) DurationString() string {
	if !r.Timed() {
		return "N/A"
	}
	return fmt.Sprintf("%.3fs", r.Duration.Seconds())
}

// Category is the part of the name before the first colon, or the suite
// name for names without one.
func (r Result) Category() string {
	if i := strings.Index(r.Name, ":"); i > 0 {
		return strings.TrimSpace(r.Name[:i])
	}
	return r.Suite
}

// Line renders the result as a single console line.
func (r Result) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", r.Status, r.Name)
	if r.Details != "" {
		b.WriteString(": ")
		b.WriteString(r.Details)
	}
	if r.Timed() {
		fmt.Fprintf(&b, " (%s)", r.DurationString())
	}
	return b.String()
}
