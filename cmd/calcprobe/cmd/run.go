package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/calcprobe/internal/report"
	"github.com/jmylchreest/calcprobe/internal/suites"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the checks once",
	Long: `Run the selected check suites once against the target deployment.

Every check prints one line as soon as it completes. The run ends with a
per-category summary and a deployment verdict. The process exits 0 only
when no check failed.

Available suites: ` + strings.Join(suites.Names(), ", "),
	Example: `  calcprobe run
  calcprobe run --frontend-url https://staging.example --mode frontend-only
  calcprobe run --suite backend,routes --junit results.xml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addTargetFlags(runCmd)

	runCmd.Flags().String("json", "", "write the JSON report to this path")
	runCmd.Flags().String("junit", "", "write a JUnit XML report to this path")
	runCmd.Flags().Bool("no-color", false, "disable colored output")
	runCmd.Flags().Bool("history", false, "persist the run to the database")
	runCmd.Flags().String("publish-url", "", "POST the summary to this URL")
}

// addTargetFlags registers the flags selecting what is checked and how.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("frontend-url", "", "frontend base URL")
	cmd.Flags().String("backend-url", "", "backend base URL (default from REACT_APP_BACKEND_URL)")
	cmd.Flags().String("origin", "", "Origin header sent on CORS checks")
	cmd.Flags().String("mode", "", "deployment mode (full, frontend-only)")
	cmd.Flags().StringSlice("suite", nil, "suites to run (default all)")
	cmd.Flags().String("timeout", "", "per-request timeout, e.g. 10s")
	cmd.Flags().Int("concurrency", 0, "routes checked in parallel")
	cmd.Flags().String("catalog", "", "route catalog YAML file")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{
		console: report.NewConsole(cmd.OutOrStdout(), cfg.Report.Color),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.runner.Run(ctx, nil)
	if err != nil {
		return fmt.Errorf("running checks: %w", err)
	}

	if code := rep.Summary.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
