package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	internalhttp "github.com/jmylchreest/calcprobe/internal/http"
	"github.com/jmylchreest/calcprobe/internal/http/handlers"
	"github.com/jmylchreest/calcprobe/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the results API server",
	Long: `Start the calcprobe HTTP API.

The server provides:
- Run history at /api/v1/runs
- On-demand runs via POST /api/v1/runs
- Health check endpoint at /health
- OpenAPI documentation at /docs

With --schedule the configured cron schedule also runs in the background.
Runs started by the server are always persisted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addTargetFlags(serveCmd)

	serveCmd.Flags().String("host", "", "host to bind to")
	serveCmd.Flags().Int("port", 0, "port to listen on")
	serveCmd.Flags().String("database", "", "database DSN (sqlite file path by default)")
	serveCmd.Flags().String("db-driver", "", "database driver (sqlite, postgres, mysql)")
	serveCmd.Flags().Bool("schedule", false, "also run checks on the cron schedule")
	serveCmd.Flags().String("cron", "", "cron schedule used with --schedule")
	serveCmd.Flags().String("retention", "", "prune runs older than this, e.g. 30d")
	serveCmd.Flags().String("publish-url", "", "POST each summary to this URL")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{history: true})
	if err != nil {
		return err
	}
	defer a.Close()

	server := internalhttp.NewServer(cfg.Server, a.logger, version.Version)

	handlers.NewHealthHandler(version.Version).WithDB(a.db).Register(server.API())
	handlers.NewRunsHandler(a.runs, a.runner.Run).Register(server.API())

	if schedule, _ := cmd.Flags().GetBool("schedule"); schedule {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	a.logger.Info("starting calcprobe server",
		slog.String("address", cfg.Server.Address()),
		slog.String("frontend_url", cfg.Target.FrontendURL),
		slog.String("database", a.db.Driver()),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
