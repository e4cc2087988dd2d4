package suites

import (
	"context"
	"fmt"

	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

// isolationSuite confirms a frontend-only deployment does not expose a
// backend.
type isolationSuite struct{ baseSuite }

// NewIsolation creates the isolation suite. It only runs in frontend-only mode.
func NewIsolation() Suite {
	return &isolationSuite{baseSuite{name: "isolation", mode: config.ModeFrontendOnly}}
}

func (s *isolationSuite) Run(ctx context.Context, env *Env) {
	const name = "Backend API Isolation"
	sc := env.Recorder.Scope(s.Name())

	page := env.Backend.Get(ctx, "/api", probe.WithTimeout(env.Probe.IsolationTimeout.Duration()))
	if !page.Responded() {
		sc.Pass(name, "Backend API properly isolated", page.Elapsed)
		return
	}
	sc.Warn(name, fmt.Sprintf("Backend API unexpectedly accessible (status %d)", page.StatusCode), page.Elapsed)
}
