package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/calcprobe/internal/database/migrations"
	"github.com/jmylchreest/calcprobe/internal/models"
	"github.com/jmylchreest/calcprobe/internal/report"
	"github.com/jmylchreest/calcprobe/internal/runner"
	"github.com/jmylchreest/calcprobe/pkg/format"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List runs recorded with history enabled, newest first.

Use "history show <id>" to print a run's checks and summary, and
"history prune" to delete old runs.`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id|latest>",
	Short: "Show a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyMigrationsCmd = &cobra.Command{
	Use:   "migrations",
	Short: "Show schema migration status",
	Long: `Show which history schema migrations are applied. With --rollback the
most recently applied migration is reverted first.`,
	Args: cobra.NoArgs,
	RunE: runHistoryMigrations,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than the retention window",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyMigrationsCmd)

	historyCmd.PersistentFlags().String("database", "", "database DSN (sqlite file path by default)")
	historyCmd.PersistentFlags().String("db-driver", "", "database driver (sqlite, postgres, mysql)")
	historyCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().StringP("output", "o", "table", "output format (table, json)")

	historyPruneCmd.Flags().String("retention", "", "delete runs older than this, e.g. 30d (default history.retention)")
	historyMigrationsCmd.Flags().Bool("rollback", false, "revert the most recent migration")
}

func openHistory(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, appOptions{history: true})
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	a, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := a.runs.List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	switch output {
	case "table":
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderRuns(cmd.OutOrStdout(), runs, a.cfg.Report.Color))
	return nil
}

// renderRuns lays runs out as a table, coloring the verdict column.
func renderRuns(w io.Writer, runs []*models.Run, color bool) string {
	verdictStyle := map[models.Verdict]lipgloss.Style{}
	if color {
		r := lipgloss.NewRenderer(w)
		verdictStyle[models.VerdictReady] = r.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
		verdictStyle[models.VerdictMostlyReady] = r.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
		verdictStyle[models.VerdictNotReady] = r.NewStyle().Foreground(lipgloss.Color("#E53935")).Bold(true)
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		verdict := string(run.Verdict)
		if style, ok := verdictStyle[run.Verdict]; ok {
			verdict = style.Render(verdict)
		}
		rows = append(rows, []string{
			run.ID.String(),
			run.StartedAt.Local().Format(time.DateTime) + " (" + format.RelativeTime(run.StartedAt) + ")",
			run.FrontendURL,
			run.Mode,
			format.Ratio(run.Passed, run.Total),
			format.Number(int64(run.Failed)),
			format.Percentage(run.SuccessRate, 1),
			verdict,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STARTED", "FRONTEND", "MODE", "PASSED", "FAILED", "RATE", "VERDICT").
		Rows(rows...).
		String()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var run *models.Run
	if args[0] == "latest" {
		run, err = a.runs.Latest(cmd.Context())
	} else {
		id, perr := models.ParseULID(args[0])
		if perr != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], perr)
		}
		run, err = a.runs.GetByID(cmd.Context(), id)
	}
	if err != nil {
		return fmt.Errorf("loading run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", args[0])
	}

	rep := runner.ReportFromRun(run, report.Thresholds{
		Ready:       a.cfg.Thresholds.Ready,
		MostlyReady: a.cfg.Thresholds.MostlyReady,
	})
	console := report.NewConsole(cmd.OutOrStdout(), a.cfg.Report.Color)
	console.Header(rep)
	for _, r := range rep.Results {
		console.Emit(r)
	}
	console.Summary(rep)
	return nil
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	a, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	retention := a.cfg.History.Retention
	if retention <= 0 {
		return fmt.Errorf("retention must be positive")
	}

	cutoff := time.Now().Add(-retention.Duration())
	deleted, err := a.runs.DeleteOlderThan(cmd.Context(), cutoff)
	if err != nil {
		return fmt.Errorf("pruning runs: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d runs started before %s\n", deleted, cutoff.Format(time.RFC3339))
	return nil
}

func runHistoryMigrations(cmd *cobra.Command, _ []string) error {
	a, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	m := a.db.Migrator()
	if rollback, _ := cmd.Flags().GetBool("rollback"); rollback {
		if err := m.Down(cmd.Context()); err != nil {
			return err
		}
	}

	statuses, err := m.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderMigrations(statuses))
	return nil
}

func renderMigrations(statuses []migrations.MigrationStatus) string {
	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		applied := "pending"
		if st.Applied && st.AppliedAt != nil {
			applied = st.AppliedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{st.Version, st.Description, applied})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("VERSION", "DESCRIPTION", "APPLIED").
		Rows(rows...).
		String()
}
