package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/calcprobe/internal/report"
	"github.com/jmylchreest/calcprobe/internal/scheduler"
	"github.com/jmylchreest/calcprobe/pkg/format"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the checks on a schedule",
	Long: `Run the checks repeatedly on the cron schedule in schedule.cron
(default every 15 minutes) until interrupted.

A run still in progress when the next one is due causes that tick to be
skipped. With history enabled, runs older than history.retention are
pruned after each run.`,
	Example: `  calcprobe watch --cron "*/5 * * * *" --history
  calcprobe watch --cron "@every 1h" --no-immediate`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addTargetFlags(watchCmd)

	watchCmd.Flags().String("cron", "", "cron schedule (5-field or descriptor)")
	watchCmd.Flags().Bool("history", false, "persist runs to the database")
	watchCmd.Flags().String("retention", "", "prune runs older than this, e.g. 30d")
	watchCmd.Flags().String("publish-url", "", "POST each summary to this URL")
	watchCmd.Flags().Bool("no-color", false, "disable colored output")
	watchCmd.Flags().Bool("no-immediate", false, "wait for the first scheduled tick")
}

func runWatch(cmd *cobra.Command, _ []string) error {
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

	sched, err := newScheduler(a)
	if err != nil {
		return err
	}

	noImmediate, _ := cmd.Flags().GetBool("no-immediate")
	a.logger.Info("watching deployment",
		slog.String("frontend_url", cfg.Target.FrontendURL),
		slog.String("schedule", cfg.Schedule.Cron),
		slog.String("every", format.Schedule(cfg.Schedule.Cron)),
		slog.Time("next_run", sched.Next()),
	)
	return sched.Run(ctx, !noImmediate)
}

// newScheduler builds the scheduler for a's configured schedule, pruning
// history when the app persists runs.
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(a.cfg.Schedule.Cron, func(ctx context.Context) error {
		_, err := a.runner.Run(ctx, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	sched = sched.WithLogger(a.logger)
	if a.runs != nil {
		sched = sched.WithRetention(a.runs, a.cfg.History.Retention.Duration())
	}
	return sched, nil
}
