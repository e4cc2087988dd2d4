package runner

import (
	"context"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Host describes the machine a run was executed from.
type Host struct {
	Hostname        string
	OS              string
	Platform        string
	PlatformVersion string
	KernelVersion   string
}

// Description renders the OS details as one line, e.g.
// "linux ubuntu 24.04 (kernel 6.8.0)".
func (h Host) Description() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{h.OS, h.Platform, h.PlatformVersion} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	out := strings.Join(parts, " ")
	if h.KernelVersion != "" {
		out += " (kernel " + h.KernelVersion + ")"
	}
	return strings.TrimSpace(out)
}

// HostFunc returns the current host snapshot.
type HostFunc func(ctx context.Context) Host

// HostSnapshot reads host details through gopsutil. Missing details are
// left empty; the hostname falls back to os.Hostname.
func HostSnapshot(ctx context.Context) Host {
	var h Host
	if info, err := host.InfoWithContext(ctx); err == nil && info != nil {
		h = Host{
			Hostname:        info.Hostname,
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformVersion: info.PlatformVersion,
			KernelVersion:   info.KernelVersion,
		}
	}
	if h.Hostname == "" {
		h.Hostname, _ = os.Hostname()
	}
	return h
}
