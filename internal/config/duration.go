package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// leading week and day components, e.g. "1w2d" in "1w2d12h".
var longUnits = regexp.MustCompile(`^(?:(\d+)w)?(?:(\d+)d)?`)

// Duration is a time.Duration that additionally accepts day ("d") and
// week ("w") units ahead of the standard Go units, so retention windows
// can be written as "30d" or "1w2d12h".
type Duration time.Duration

// ParseDuration parses a human-readable duration string.
func ParseDuration(s string) (Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	neg := false
	rest := s
	if rest[0] == '-' {
		neg = true
		rest = rest[1:]
		if rest == "" {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
	}

	var total time.Duration
	m := longUnits.FindStringSubmatch(rest)
	if m != nil && m[0] != "" {
		if m[1] != "" {
			n, _ := strconv.Atoi(m[1])
			total += time.Duration(n) * week
		}
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			total += time.Duration(n) * day
		}
		rest = rest[len(m[0]):]
	}

	if rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += d
	}

	if neg {
		total = -total
	}
	return Duration(total), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for YAML/Viper support.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON accepts either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var ns int64
		if err := json.Unmarshal(data, &ns); err != nil {
			return err
		}
		*d = Duration(ns)
		return nil
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String renders whole weeks and days with their own units and the
// remainder in Go notation.
func (d Duration) String() string {
	dur := time.Duration(d)
	if dur == 0 {
		return "0s"
	}

	sign := ""
	if dur < 0 {
		sign = "-"
		dur = -dur
	}

	out := ""
	if w := dur / week; w > 0 {
		out += fmt.Sprintf("%dw", w)
		dur -= w * week
	}
	if dd := dur / day; dd > 0 {
		out += fmt.Sprintf("%dd", dd)
		dur -= dd * day
	}
	if dur > 0 {
		out += dur.String()
	}
	return sign + out
}
