package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/models"
	"github.com/jmylchreest/calcprobe/internal/observability"
	"github.com/jmylchreest/calcprobe/internal/stubapp"
	"github.com/jmylchreest/calcprobe/internal/version"
)

// execute runs the root command with args against a fresh viper.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("bad config")))
	assert.Equal(t, 3, ExitCode(&ExitError{Code: 3}))
	assert.Equal(t, 1, ExitCode(errors.Join(errors.New("wrapped"), &ExitError{Code: 1})))
}

func TestApplyFlags(t *testing.T) {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("frontend-url", "", "")
	flags.String("mode", "", "")
	flags.StringSlice("suite", nil, "")
	flags.Int("concurrency", 0, "")
	flags.Bool("no-color", false, "")
	flags.String("unmapped", "", "")
	require.NoError(t, flags.Parse([]string{
		"--frontend-url", "https://staging.example",
		"--suite", "backend,routes",
		"--concurrency", "8",
		"--no-color",
		"--unmapped", "x",
	}))

	v := viper.New()
	config.SetDefaults(v)
	v.Set("target.mode", config.ModeFrontendOnly)
	applyFlags(flags, v)

	assert.Equal(t, "https://staging.example", v.GetString("target.frontend_url"))
	// Unset flags leave existing values alone.
	assert.Equal(t, config.ModeFrontendOnly, v.GetString("target.mode"))
	assert.Equal(t, []string{"backend", "routes"}, v.GetStringSlice("probe.suites"))
	assert.Equal(t, 8, v.GetInt("probe.concurrency"))
	assert.False(t, v.GetBool("report.color"))

	cfg, err := config.Decode(v)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Probe.Concurrency)
	assert.Equal(t, []string{"backend", "routes"}, cfg.Probe.Suites)
}

func TestToMap(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("publish.token", "s3cret")
	v.Set("database.driver", "postgres")
	v.Set("database.dsn", "postgres://calc:hunter2@db:5432/calc?sslmode=disable")
	cfg, err := config.Decode(v)
	require.NoError(t, err)

	m := toMap(cfg)
	probe := m["probe"].(map[string]any)
	assert.Equal(t, "10s", probe["timeout"])
	assert.Equal(t, "500kB", probe["max_page_size"])
	assert.Equal(t, "********", m["publish"].(map[string]any)["token"])
	assert.Equal(t, "30s", m["server"].(map[string]any)["read_timeout"])
	assert.Equal(t, "postgres://calc:********@db:5432/calc?sslmode=disable", m["database"].(map[string]any)["dsn"])
	assert.Equal(t, "http://localhost:3000", m["target"].(map[string]any)["frontend_url"])

	out, err := yaml.Marshal(m)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
}

func TestMaskURLPassword(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"postgres://calc:hunter2@db/calc", "postgres://calc:********@db/calc"},
		{"calc:hunter2@tcp(db:3306)/calc?parseTime=true", "calc:********@tcp(db:3306)/calc?parseTime=true"},
		{"postgres://db/calc", "postgres://db/calc"},
		{"https://hooks.example.com/run", "https://hooks.example.com/run"},
		{"file:calcprobe.db", "file:calcprobe.db"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskURLPassword(tt.in))
		})
	}
}

func TestRenderRuns(t *testing.T) {
	run := &models.Run{
		StartedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		FrontendURL: "http://localhost:3000",
		Mode:        config.ModeFull,
		Total:       40,
		Passed:      38,
		Failed:      2,
		SuccessRate: 95,
		Verdict:     models.VerdictMostlyReady,
	}
	run.ID = models.NewULID()

	out := renderRuns(&bytes.Buffer{}, []*models.Run{run}, false)
	assert.Contains(t, out, run.ID.String())
	assert.Contains(t, out, "38/40")
	assert.Contains(t, out, "95.0%")
	assert.Contains(t, out, "MOSTLY_READY")
	assert.Contains(t, out, "VERDICT")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)
	versionJSON = false

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.ApplicationName, info.Application)
	assert.Equal(t, version.Version, info.Version)
}

func TestConfigDumpCommand(t *testing.T) {
	t.Setenv("CALCPROBE_TARGET_FRONTEND_URL", "https://calc.example")
	t.Setenv("REACT_APP_BACKEND_URL", "https://api.calc.example")

	out, err := execute(t, "config", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "# calcprobe Configuration File")

	var dumped map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &dumped))
	target := dumped["target"].(map[string]any)
	assert.Equal(t, "https://calc.example", target["frontend_url"])
	assert.Equal(t, "https://api.calc.example", target["backend_url"])
}

func TestRunCommand_FailingRouteExitsNonZero(t *testing.T) {
	stub := stubapp.New(stubapp.Options{Logger: observability.NewNopLogger()})
	stub.SetFaults(stubapp.Faults{RouteStatus: map[string]int{"/body-fat-calculator": http.StatusInternalServerError}})
	srv := httptest.NewServer(stub.Handler())
	defer srv.Close()

	reportPath := filepath.Join(t.TempDir(), "report.json")
	out, err := execute(t, "run",
		"--frontend-url", srv.URL,
		"--backend-url", srv.URL,
		"--suite", "routes",
		"--json", reportPath,
		"--no-color",
		"--log-level", "error",
	)

	require.Error(t, err)
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, out, "[FAIL] Route: /body-fat-calculator")
	assert.Contains(t, out, "[PASS] Route: /:")
	assert.Contains(t, out, "DEPLOYMENT READINESS ASSESSMENT:")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var rep struct {
		Summary struct {
			Failed  int            `json:"failed"`
			Verdict models.Verdict `json:"verdict"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 1, rep.Summary.Failed)
	assert.Equal(t, models.VerdictNotReady, rep.Summary.Verdict)
}

func TestHistoryMigrationsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	out, err := execute(t, "history", "migrations",
		"--database", dbPath,
		"--rollback",
		"--log-level", "error",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "Create runs and check_results tables")
	// 002 was reverted, 001 stays applied.
	assert.Regexp(t, `002.*pending`, out)
	assert.NotRegexp(t, `001.*pending`, out)
}
