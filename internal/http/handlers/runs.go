package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/calcprobe/internal/models"
	"github.com/jmylchreest/calcprobe/internal/probe"
	"github.com/jmylchreest/calcprobe/internal/report"
	"github.com/jmylchreest/calcprobe/internal/repository"
	"github.com/jmylchreest/calcprobe/internal/suites"
)

// TriggerFunc executes a run of the named suites.
type TriggerFunc func(ctx context.Context, suites []string) (*report.Report, error)

// RunsHandler serves the run history and on-demand runs.
type RunsHandler struct {
	runs    repository.RunRepository
	trigger TriggerFunc
}

// NewRunsHandler creates a handler over runs. trigger may be nil, in which
// case POST /api/v1/runs is not registered.
func NewRunsHandler(runs repository.RunRepository, trigger TriggerFunc) *RunsHandler {
	return &RunsHandler{runs: runs, trigger: trigger}
}

// RunSummary is a run without its results.
type RunSummary struct {
	ID          models.ULID    `json:"id"`
	StartedAt   time.Time      `json:"started_at"`
	DurationMs  int64          `json:"duration_ms"`
	FrontendURL string         `json:"frontend_url"`
	BackendURL  string         `json:"backend_url,omitempty"`
	Mode        string         `json:"mode"`
	Suites      []string       `json:"suites"`
	Total       int            `json:"total"`
	Passed      int            `json:"passed"`
	Failed      int            `json:"failed"`
	Warnings    int            `json:"warnings"`
	Info        int            `json:"info"`
	Skipped     int            `json:"skipped"`
	SuccessRate float64        `json:"success_rate"`
	Verdict     models.Verdict `json:"verdict"`
	Hostname    string         `json:"hostname,omitempty"`
	Platform    string         `json:"platform,omitempty"`
}

// RunSummaryFromModel converts a model to a summary.
func RunSummaryFromModel(r *models.Run) RunSummary {
	return RunSummary{
		ID:          r.ID,
		StartedAt:   r.StartedAt,
		DurationMs:  r.Duration().Milliseconds(),
		FrontendURL: r.FrontendURL,
		BackendURL:  r.BackendURL,
		Mode:        r.Mode,
		Suites:      r.SuiteList(),
		Total:       r.Total,
		Passed:      r.Passed,
		Failed:      r.Failed,
		Warnings:    r.Warnings,
		Info:        r.Info,
		Skipped:     r.Skipped,
		SuccessRate: r.SuccessRate,
		Verdict:     r.Verdict,
		Hostname:    r.Hostname,
		Platform:    r.Platform,
	}
}

// CheckResultResponse is one stored check.
type CheckResultResponse struct {
	Seq        int          `json:"seq"`
	Suite      string       `json:"suite"`
	Name       string       `json:"name"`
	Status     probe.Status `json:"status" enum:"PASS,FAIL,WARN,INFO,SKIP"`
	Details    string       `json:"details"`
	DurationMs int64        `json:"duration_ms"`
	CheckedAt  time.Time    `json:"checked_at"`
}

// RunDetail is a run with its results in recording order.
type RunDetail struct {
	RunSummary
	Results []CheckResultResponse `json:"results"`
}

// RunDetailFromModel converts a model with preloaded results.
func RunDetailFromModel(r *models.Run) RunDetail {
	out := RunDetail{
		RunSummary: RunSummaryFromModel(r),
		Results:    make([]CheckResultResponse, 0, len(r.Results)),
	}
	for _, c := range r.Results {
		out.Results = append(out.Results, CheckResultResponse{
			Seq:        c.Seq,
			Suite:      c.Suite,
			Name:       c.Name,
			Status:     c.Status,
			Details:    c.Details,
			DurationMs: c.DurationMs,
			CheckedAt:  c.CheckedAt,
		})
	}
	return out
}

// ListRunsInput is the input for listing runs.
type ListRunsInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"500" default:"20" doc:"Maximum number of runs to return"`
}

// ListRunsOutput is the output for listing runs.
type ListRunsOutput struct {
	Body struct {
		Runs []RunSummary `json:"runs"`
	}
}

// LatestRunInput is the input for the latest run.
type LatestRunInput struct{}

// GetRunInput is the input for getting a run by ID.
type GetRunInput struct {
	ID string `path:"id" doc:"Run ID (ULID)"`
}

// RunDetailOutput wraps a run with results.
type RunDetailOutput struct {
	Body RunDetail
}

// TriggerRunInput is the input for starting a run.
type TriggerRunInput struct {
	Body struct {
		Suites []string `json:"suites,omitempty" doc:"Suites to run; empty runs the configured set"`
	} `required:"false"`
}

// TriggerRunOutput is the output of an on-demand run.
type TriggerRunOutput struct {
	Body struct {
		RunID    string         `json:"run_id"`
		ExitCode int            `json:"exit_code"`
		Summary  report.Summary `json:"summary"`
	}
}

// Register registers the run routes with the API.
func (h *RunsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listRuns",
		Method:      "GET",
		Path:        "/api/v1/runs",
		Summary:     "List runs",
		Description: "Returns run summaries, newest first",
		Tags:        []string{"Runs"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getLatestRun",
		Method:      "GET",
		Path:        "/api/v1/runs/latest",
		Summary:     "Get latest run",
		Description: "Returns the most recent run with its results",
		Tags:        []string{"Runs"},
	}, h.Latest)

	huma.Register(api, huma.Operation{
		OperationID: "getRun",
		Method:      "GET",
		Path:        "/api/v1/runs/{id}",
		Summary:     "Get run",
		Description: "Returns a run with its results",
		Tags:        []string{"Runs"},
	}, h.GetByID)

	if h.trigger != nil {
		huma.Register(api, huma.Operation{
			OperationID:   "triggerRun",
			Method:        "POST",
			Path:          "/api/v1/runs",
			Summary:       "Run checks",
			Description:   "Runs the selected suites synchronously and returns the summary",
			Tags:          []string{"Runs"},
			DefaultStatus: http.StatusOK,
		}, h.Trigger)
	}
}

// List returns run summaries.
func (h *RunsHandler) List(ctx context.Context, input *ListRunsInput) (*ListRunsOutput, error) {
	runs, err := h.runs.List(ctx, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list runs", err)
	}

	out := &ListRunsOutput{}
	out.Body.Runs = make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		out.Body.Runs = append(out.Body.Runs, RunSummaryFromModel(r))
	}
	return out, nil
}

// Latest returns the most recent run.
func (h *RunsHandler) Latest(ctx context.Context, _ *LatestRunInput) (*RunDetailOutput, error) {
	run, err := h.runs.Latest(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get latest run", err)
	}
	if run == nil {
		return nil, huma.Error404NotFound("no runs recorded")
	}
	return &RunDetailOutput{Body: RunDetailFromModel(run)}, nil
}

// GetByID returns a run by ID.
func (h *RunsHandler) GetByID(ctx context.Context, input *GetRunInput) (*RunDetailOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid ID format", err)
	}

	run, err := h.runs.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get run", err)
	}
	if run == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("run %s not found", input.ID))
	}
	return &RunDetailOutput{Body: RunDetailFromModel(run)}, nil
}

// Trigger runs the requested suites and returns the summary.
func (h *RunsHandler) Trigger(ctx context.Context, input *TriggerRunInput) (*TriggerRunOutput, error) {
	rep, err := h.trigger(ctx, input.Body.Suites)
	if err != nil {
		if errors.Is(err, suites.ErrUnknownSuite) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, huma.Error500InternalServerError("run failed", err)
	}

	out := &TriggerRunOutput{}
	out.Body.RunID = rep.RunID
	out.Body.ExitCode = rep.Summary.ExitCode()
	out.Body.Summary = rep.Summary
	return out, nil
}
