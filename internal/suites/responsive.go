package suites

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/calcprobe/internal/htmlscan"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

type responsiveSuite struct{ baseSuite }

// NewResponsive creates the mobile responsiveness suite.
func NewResponsive() Suite {
	return &responsiveSuite{baseSuite{name: "responsive"}}
}

func (s *responsiveSuite) Run(ctx context.Context, env *Env) {
	const name = "Mobile Responsiveness"
	sc := env.Recorder.Scope(s.Name())

	page := env.Frontend.Get(ctx, "/")
	if !page.OK() {
		sc.Fail(name, page.Problem(), page.Elapsed)
		return
	}

	r := htmlscan.Scan(page.Body).Responsive()
	var present []string
	if r.Viewport {
		present = append(present, "viewport meta")
	}
	if r.ResponsiveCSS {
		present = append(present, "responsive CSS")
	}
	if r.Mobile {
		present = append(present, "mobile hints")
	}

	details := fmt.Sprintf("%d/3 responsive indicators", r.Score())
	if len(present) > 0 {
		details += " (" + strings.Join(present, ", ") + ")"
	}
	sc.Log(name, probe.RateCount(r.Score(), 2, 1), details, page.Elapsed)
}
