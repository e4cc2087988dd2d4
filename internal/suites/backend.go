package suites

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

const (
	apiRoot   = "/api/"
	apiStatus = "/api/status"
)

type helloResponse struct {
	Message string `json:"message"`
}

type statusCheck struct {
	ID         string `json:"id"`
	ClientName string `json:"client_name"`
	Timestamp  string `json:"timestamp"`
}

// backendSuite exercises the status-check API.
type backendSuite struct{ baseSuite }

// NewBackend creates the backend suite. It only runs in full mode.
func NewBackend() Suite {
	return &backendSuite{baseSuite{name: "backend", mode: config.ModeFull}}
}

func (s *backendSuite) Run(ctx context.Context, env *Env) {
	sc := env.Recorder.Scope(s.Name())

	if !s.connectivity(ctx, env, sc) {
		sc.Skip("Backend Integration Tests", "Backend not available")
		return
	}
	s.statusRead(ctx, env, sc)
	s.statusWrite(ctx, env, sc)
	s.cors(ctx, env, sc)
	s.database(ctx, env, sc)
}

func (s *backendSuite) connectivity(ctx context.Context, env *Env, sc probe.Scope) bool {
	const name = "FastAPI Backend Connectivity"

	page := env.Backend.Get(ctx, apiRoot)
	if !page.OK() {
		sc.Fail(name, page.Problem(), page.Elapsed)
		return false
	}

	var hello helloResponse
	if err := page.DecodeJSON(&hello); err != nil || hello.Message != "Hello World" {
		sc.Fail(name, fmt.Sprintf("Unexpected response: %s", truncate(page.Text(), 120)), page.Elapsed)
		return false
	}
	sc.Pass(name, "Backend responding correctly", page.Elapsed)
	return true
}

// listStatus fetches the status checks. problem is non-empty when the list
// could not be read.
func listStatus(ctx context.Context, env *Env) (checks []statusCheck, page *probe.Page, problem string) {
	page = env.Backend.Get(ctx, apiStatus)
	if !page.OK() {
		return nil, page, page.Problem()
	}
	if err := page.DecodeJSON(&checks); err != nil {
		return nil, page, "Expected a JSON list of status checks"
	}
	return checks, page, ""
}

func createStatus(ctx context.Context, env *Env) (statusCheck, *probe.Page, string) {
	clientName := "calcprobe-" + uuid.NewString()

	var created statusCheck
	page := env.Backend.PostJSON(ctx, apiStatus, map[string]string{"client_name": clientName})
	if !page.OK() {
		return created, page, page.Problem()
	}
	if err := page.DecodeJSON(&created); err != nil {
		return created, page, "Response is not a status check record"
	}
	switch {
	case created.ClientName != clientName:
		return created, page, "client_name mismatch"
	case created.ID == "" || created.Timestamp == "":
		return created, page, "Missing required fields"
	}
	return created, page, ""
}

func (s *backendSuite) statusRead(ctx context.Context, env *Env, sc probe.Scope) {
	const name = "Status Read"

	checks, page, problem := listStatus(ctx, env)
	if problem != "" {
		sc.Fail(name, problem, page.Elapsed)
		return
	}
	sc.Pass(name, fmt.Sprintf("Returned %d records", len(checks)), page.Elapsed)
}

func (s *backendSuite) statusWrite(ctx context.Context, env *Env, sc probe.Scope) {
	const name = "Status Write"

	created, page, problem := createStatus(ctx, env)
	if problem != "" {
		sc.Fail(name, problem, page.Elapsed)
		return
	}
	sc.Pass(name, fmt.Sprintf("Created status check %s", shortID(created.ID)), page.Elapsed)
}

func (s *backendSuite) cors(ctx context.Context, env *Env, sc probe.Scope) {
	const name = "CORS Configuration"

	page := env.Backend.Options(ctx, apiStatus,
		probe.WithHeader("Origin", env.Origin),
		probe.WithHeader("Access-Control-Request-Method", http.MethodPost),
		probe.WithHeader("Access-Control-Request-Headers", "Content-Type"),
	)
	if !page.Responded() {
		sc.Fail(name, page.Problem(), page.Elapsed)
		return
	}
	if page.StatusCode != http.StatusOK && page.StatusCode != http.StatusNoContent {
		sc.Fail(name, fmt.Sprintf("Preflight returned HTTP %d", page.StatusCode), page.Elapsed)
		return
	}

	allowed := page.Header.Get("Access-Control-Allow-Origin")
	if allowed == "" {
		sc.Fail(name, "Access-Control-Allow-Origin header missing", page.Elapsed)
		return
	}
	sc.Pass(name, "Allow-Origin: "+allowed, page.Elapsed)
}

func (s *backendSuite) database(ctx context.Context, env *Env, sc probe.Scope) {
	const name = "Database Connectivity"

	created, writePage, problem := createStatus(ctx, env)
	if problem != "" {
		sc.Fail(name, "Could not create record: "+problem, writePage.Elapsed)
		return
	}

	checks, readPage, problem := listStatus(ctx, env)
	elapsed := writePage.Elapsed + readPage.Elapsed
	if problem != "" {
		sc.Fail(name, "Could not retrieve records: "+problem, elapsed)
		return
	}
	for _, c := range checks {
		if c.ID == created.ID {
			sc.Pass(name, fmt.Sprintf("Record %s persisted and read back", shortID(created.ID)), elapsed)
			return
		}
	}
	sc.Fail(name, fmt.Sprintf("Record %s not found among %d records", shortID(created.ID), len(checks)), elapsed)
}

func shortID(id string) string {
	const n = 8
	if len(id) <= n {
		return id
	}
	return id[:n]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
