package suites

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/calcprobe/internal/catalog"
	"github.com/jmylchreest/calcprobe/internal/htmlscan"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

// deploymentSuite checks the files a static host must serve next to the
// SPA, and that deep links are rewritten to the shell.
type deploymentSuite struct{ baseSuite }

// NewDeployment creates the deployment suite.
func NewDeployment() Suite {
	return &deploymentSuite{baseSuite{name: "deployment"}}
}

func (s *deploymentSuite) Run(ctx context.Context, env *Env) {
	sc := env.Recorder.Scope(s.Name())

	for _, asset := range env.Catalog.Assets {
		s.asset(ctx, env, sc, asset)
	}
	s.spaRouting(ctx, env, sc)
}

func (s *deploymentSuite) asset(ctx context.Context, env *Env, sc probe.Scope, asset catalog.Asset) {
	name := "Static Asset: " + asset.Path

	page := env.Frontend.Get(ctx, asset.Path)
	switch {
	case !page.Responded():
		sc.Fail(name, page.Problem(), 0)
		return
	case !page.OK() && asset.Required:
		sc.Fail(name, page.Problem(), page.Elapsed)
		return
	case !page.OK():
		sc.Warn(name, page.Problem()+" (may be handled by build process)", page.Elapsed)
		return
	}

	contentType := page.Header.Get("Content-Type")
	if asset.ContentType != "" && !strings.Contains(strings.ToLower(contentType), asset.ContentType) {
		sc.Warn(name, fmt.Sprintf("Accessible with unexpected content type %q (want %s)", contentType, asset.ContentType), page.Elapsed)
		return
	}
	sc.Pass(name, fmt.Sprintf("Accessible (%s)", contentType), page.Elapsed)
}

func (s *deploymentSuite) spaRouting(ctx context.Context, env *Env, sc probe.Scope) {
	const name = "SPA Routing Compatibility"

	route := env.Catalog.DeepRoute
	if route == "" {
		routes := env.Catalog.AllRoutes()
		route = routes[len(routes)-1]
	}

	page := env.Frontend.Get(ctx, route)
	if !page.OK() {
		sc.Fail(name, fmt.Sprintf("Deep route %s: %s", route, page.Problem()), page.Elapsed)
		return
	}
	if !htmlscan.Scan(page.Body).HasRoot {
		sc.Fail(name, fmt.Sprintf("Deep route %s does not serve the SPA shell", route), page.Elapsed)
		return
	}
	sc.Pass(name, fmt.Sprintf("Deep route %s serves the SPA shell", route), page.Elapsed)
}
