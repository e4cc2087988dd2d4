package probe

import "time"

// Bands are the load-time rating thresholds.
type Bands struct {
	Excellent  time.Duration
	Good       time.Duration
	Acceptable time.Duration
}

// DefaultBands returns the 0.5s / 1s / 2s bands.
func DefaultBands() Bands {
	return Bands{
		Excellent:  500 * time.Millisecond,
		Good:       time.Second,
		Acceptable: 2 * time.Second,
	}
}

// Rate classifies a load time. The label is one of Excellent, Good,
// Acceptable or the supplied slow label.
func (b Bands) Rate(d time.Duration, slowLabel string) (Status, string) {
	switch {
	case d < b.Excellent:
		return StatusPass, "Excellent"
	case d < b.Good:
		return StatusPass, "Good"
	case d < b.Acceptable:
		return StatusWarn, "Acceptable"
	default:
		return StatusFail, slowLabel
	}
}

// Percent returns ok/total as a percentage, 0 when total is 0.
func Percent(ok, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(ok) / float64(total) * 100
}

// RateRatio rates ok/total against percentage bands.
func RateRatio(ok, total int, passPct, warnPct float64) (Status, float64) {
	pct := Percent(ok, total)
	switch {
	case total > 0 && pct >= passPct:
		return StatusPass, pct
	case total > 0 && pct >= warnPct:
		return StatusWarn, pct
	default:
		return StatusFail, pct
	}
}

// RateCount rates an absolute score.
func RateCount(n, pass, warn int) Status {
	switch {
	case n >= pass:
		return StatusPass
	case n >= warn:
		return StatusWarn
	default:
		return StatusFail
	}
}
