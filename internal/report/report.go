package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

// Report is everything known about one finished run.
type Report struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	FrontendURL string         `json:"frontend_url"`
	BackendURL  string         `json:"backend_url,omitempty"`
	Mode        string         `json:"mode"`
	Suites      []string       `json:"suites"`
	Hostname    string         `json:"hostname,omitempty"`
	Summary     Summary        `json:"summary"`
	Results     []probe.Result `json:"results"`
}

// Duration returns the wall-clock length of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// WriteJSON encodes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}
	return nil
}

// WriteFiles writes the JSON and JUnit reports configured in cfg. Empty
// paths are skipped.
func WriteFiles(r *Report, cfg config.ReportConfig) error {
	if cfg.JSONPath != "" {
		if err := writeFile(cfg.JSONPath, r, WriteJSON); err != nil {
			return err
		}
	}
	if cfg.JUnitPath != "" {
		if err := writeFile(cfg.JUnitPath, r, WriteJUnit); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, r *Report, render func(io.Writer, *Report) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing report %s: %w", path, cerr)
		}
	}()

	return render(f, r)
}
