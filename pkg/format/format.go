// Package format renders counts, rates, schedules and timestamps for
// terminal output.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Number formats n with thousand separators.
// Example: Number(1234567) => "1,234,567"
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Percentage formats value with the given number of decimals.
// Example: Percentage(95, 1) => "95.0%"
func Percentage(value float64, decimals int) string {
	return fmt.Sprintf("%.*f%%", decimals, value)
}

// Ratio formats part out of whole.
// Example: Ratio(38, 40) => "38/40"
func Ratio(part, whole int) string {
	return Number(int64(part)) + "/" + Number(int64(whole))
}

// Schedule describes the common shapes of a 5-field cron expression or
// descriptor. Anything else is returned unchanged.
//
//	Schedule("*/15 * * * *") => "every 15 minutes"
//	Schedule("30 2 * * *")   => "daily at 02:30"
//	Schedule("@every 1h")    => "every 1h0m0s"
func Schedule(spec string) string {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "@hourly":
		return "hourly"
	case "@daily", "@midnight":
		return "daily at 00:00"
	case "@weekly":
		return "weekly"
	case "@monthly":
		return "monthly"
	}
	if rest, ok := strings.CutPrefix(spec, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return spec
		}
		return "every " + d.String()
	}

	fields := strings.Fields(spec)
	if len(fields) != 5 || fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return spec
	}
	minute, hour := fields[0], fields[1]

	if hour == "*" {
		switch {
		case minute == "*":
			return "every minute"
		case strings.HasPrefix(minute, "*/"):
			return pluralEvery(minute[2:], "minute")
		}
		if m, err := strconv.Atoi(minute); err == nil {
			return fmt.Sprintf("hourly at :%02d", m)
		}
		return spec
	}

	m, merr := strconv.Atoi(minute)
	if strings.HasPrefix(hour, "*/") && merr == nil {
		return pluralEvery(hour[2:], "hour")
	}
	h, herr := strconv.Atoi(hour)
	if merr == nil && herr == nil {
		return fmt.Sprintf("daily at %02d:%02d", h, m)
	}
	return spec
}

func pluralEvery(n, unit string) string {
	if n == "1" {
		return "every " + unit
	}
	return "every " + n + " " + unit + "s"
}

// RelativeTime formats t relative to now.
// Example: RelativeTime(time.Now().Add(-5*time.Minute)) => "5 minutes ago"
func RelativeTime(t time.Time) string {
	return relative(time.Since(t))
}

func relative(d time.Duration) string {
	future := d < 0
	if future {
		d = -d
	}

	var n int
	var unit string
	switch {
	case d < time.Minute:
		if future {
			return "in a moment"
		}
		return "just now"
	case d < time.Hour:
		n, unit = int(d.Minutes()), "minute"
	case d < 24*time.Hour:
		n, unit = int(d.Hours()), "hour"
	default:
		n, unit = int(d.Hours()/24), "day"
	}
	if n != 1 {
		unit += "s"
	}
	if future {
		return fmt.Sprintf("in %d %s", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
