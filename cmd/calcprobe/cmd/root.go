// Package cmd implements the CLI commands for calcprobe.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/calcprobe/internal/config"
	"github.com/jmylchreest/calcprobe/internal/observability"
	"github.com/jmylchreest/calcprobe/internal/version"
)

// cfgFile holds the config file path from CLI flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "calcprobe",
	Short:   "Deployment checks for the health calculator app",
	Version: version.Short(),
	Long: `calcprobe runs HTTP smoke and integration checks against a deployed
health calculator application: the FastAPI backend, every SPA route, the
SEO surface, performance, mobile readiness and content.

Each check prints one line as it completes and the run ends with a summary
and a deployment verdict. The exit code is 0 only when no check failed.`,
	SilenceUsage: true,
	// PersistentPreRunE is set in init() to avoid initialization cycle
}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("checks failed (exit code %d)", e.Code)
}

// ExitCode maps the error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// Global flags are not bound to viper. They override config and env
	// only when Changed, so a flag default never masks an env var.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./calcprobe.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName("calcprobe")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.calcprobe")
		}
	}

	config.BindEnv(v)

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Reading config file:", err)
	}
}

// initLogging configures the default slog logger.
//
// Priority order (highest to lowest):
//  1. CLI flags (--log-level, --log-format) - only if explicitly provided
//  2. Environment variables (CALCPROBE_LOGGING_LEVEL, CALCPROBE_LOGGING_FORMAT)
//  3. Config file values
//  4. Built-in defaults (info, text)
func initLogging() error {
	flags := rootCmd.PersistentFlags()
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		level = strings.ToLower(level)
		// "warning" is accepted as an alias for "warn"
		if level == "warning" {
			level = "warn"
		}
		viper.Set("logging.level", level)
	}
	if flags.Changed("log-format") {
		format, _ := flags.GetString("log-format")
		viper.Set("logging.format", strings.ToLower(format))
	}

	logCfg := config.LoggingConfig{
		Level:     viper.GetString("logging.level"),
		Format:    viper.GetString("logging.format"),
		AddSource: viper.GetBool("logging.add_source"),
	}

	logger := observability.NewLoggerWithWriter(logCfg, os.Stderr)
	logger = observability.WithApp(logger, "calcprobe", version.Version)
	observability.SetDefault(logger)

	return nil
}

// flagKeys maps command flags to the config keys they override. A flag
// only takes effect when the user set it.
var flagKeys = map[string]string{
	"frontend-url": "target.frontend_url",
	"backend-url":  "target.backend_url",
	"origin":       "target.origin",
	"mode":         "target.mode",
	"suite":        "probe.suites",
	"timeout":      "probe.timeout",
	"concurrency":  "probe.concurrency",
	"catalog":      "catalog.file",
	"json":         "report.json_path",
	"junit":        "report.junit_path",
	"history":      "history.enabled",
	"retention":    "history.retention",
	"publish-url":  "publish.url",
	"cron":         "schedule.cron",
	"host":         "server.host",
	"port":         "server.port",
	"database":     "database.dsn",
	"db-driver":    "database.driver",
}

// applyFlags copies explicitly set flags onto v.
func applyFlags(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "no-color" {
			noColor, _ := flags.GetBool("no-color")
			v.Set("report.color", !noColor)
			return
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			v.Set(key, slice.GetSlice())
			return
		}
		v.Set(key, f.Value.String())
	})
}

// loadConfig resolves the effective configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.GetViper()
	applyFlags(cmd.Flags(), v)
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
