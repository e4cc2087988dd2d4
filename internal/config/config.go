// Package config provides configuration management for calcprobe using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/jmylchreest/calcprobe/internal/urlutil"
)

// Target modes.
const (
	ModeFull         = "full"
	ModeFrontendOnly = "frontend-only"
)

// Default configuration values.
const (
	defaultFrontendURL      = "http://localhost:3000"
	defaultBackendURL       = "http://localhost:8001"
	defaultServerPort       = 8090
	defaultServerTimeout    = 30 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultMaxOpenConns     = 10
	defaultMaxIdleConns     = 5
	defaultConnMaxIdleTime  = 30 * time.Minute
	defaultProbeConcurrency = 4
	defaultCron             = "*/15 * * * *"
)

// Config holds all configuration for the application.
type Config struct {
	Target     TargetConfig    `mapstructure:"target"`
	Probe      ProbeConfig     `mapstructure:"probe"`
	Thresholds ThresholdConfig `mapstructure:"thresholds"`
	Catalog    CatalogConfig   `mapstructure:"catalog"`
	Report     ReportConfig    `mapstructure:"report"`
	History    HistoryConfig   `mapstructure:"history"`
	Publish    PublishConfig   `mapstructure:"publish"`
	Schedule   ScheduleConfig  `mapstructure:"schedule"`
	Server     ServerConfig    `mapstructure:"server"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Logging    LoggingConfig   `mapstructure:"logging"`
}

// TargetConfig identifies the deployment under test.
type TargetConfig struct {
	FrontendURL string `mapstructure:"frontend_url"`
	BackendURL  string `mapstructure:"backend_url"`
	// Origin is sent on CORS probes. Empty means FrontendURL.
	Origin string `mapstructure:"origin"`
	Mode   string `mapstructure:"mode"` // full, frontend-only
}

// ProbeConfig controls how individual checks talk to the target.
type ProbeConfig struct {
	Timeout            Duration `mapstructure:"timeout"`
	PerformanceTimeout Duration `mapstructure:"performance_timeout"`
	IsolationTimeout   Duration `mapstructure:"isolation_timeout"`
	Concurrency        int      `mapstructure:"concurrency"`
	// MaxPageSize is the page weight budget used by the optimization check.
	MaxPageSize ByteSize `mapstructure:"max_page_size"`
	// MaxBodySize caps how much of any response is read.
	MaxBodySize ByteSize `mapstructure:"max_body_size"`
	Suites      []string `mapstructure:"suites"`
}

// ThresholdConfig holds the rating bands shared by the suites and the report.
type ThresholdConfig struct {
	Excellent    Duration `mapstructure:"excellent"`
	Good         Duration `mapstructure:"good"`
	Acceptable   Duration `mapstructure:"acceptable"`
	SEOPass      int      `mapstructure:"seo_pass"`
	SEOWarn      int      `mapstructure:"seo_warn"`
	CategoryWarn float64  `mapstructure:"category_warn"`
	OverallPass  float64  `mapstructure:"overall_pass"`
	OverallWarn  float64  `mapstructure:"overall_warn"`
	Ready        float64  `mapstructure:"ready"`
	MostlyReady  float64  `mapstructure:"mostly_ready"`
}

// CatalogConfig points at an optional route catalog override.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// ReportConfig selects the report outputs written after each run.
type ReportConfig struct {
	Color     bool   `mapstructure:"color"`
	JSONPath  string `mapstructure:"json_path"`
	JUnitPath string `mapstructure:"junit_path"`
}

// HistoryConfig controls persistence of run results.
type HistoryConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Retention Duration `mapstructure:"retention"`
}

// PublishConfig configures the optional summary webhook.
type PublishConfig struct {
	URL          string   `mapstructure:"url"`
	Token        string   `mapstructure:"token"`
	RetryMax     int      `mapstructure:"retry_max"`
	RetryWaitMin Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax Duration `mapstructure:"retry_wait_max"`
}

// ScheduleConfig holds the watch mode schedule.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"` // 5-field cron expression
}

// ServerConfig holds HTTP server configuration for the results API.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CALCPROBE_ and use underscores for nesting,
// e.g. CALCPROBE_TARGET_FRONTEND_URL. REACT_APP_BACKEND_URL is honoured as a
// fallback for target.backend_url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("calcprobe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.calcprobe")
	}

	BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	return Decode(v)
}

// BindEnv wires the environment into v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("CALCPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("target.backend_url", "CALCPROBE_TARGET_BACKEND_URL", "REACT_APP_BACKEND_URL")
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Target.FrontendURL = urlutil.NormalizeBaseURL(cfg.Target.FrontendURL)
	cfg.Target.BackendURL = urlutil.NormalizeBaseURL(cfg.Target.BackendURL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("target.frontend_url", defaultFrontendURL)
	v.SetDefault("target.backend_url", defaultBackendURL)
	v.SetDefault("target.origin", "")
	v.SetDefault("target.mode", ModeFull)

	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.performance_timeout", "15s")
	v.SetDefault("probe.isolation_timeout", "2s")
	v.SetDefault("probe.concurrency", defaultProbeConcurrency)
	v.SetDefault("probe.max_page_size", "500KB")
	v.SetDefault("probe.max_body_size", "10MB")
	v.SetDefault("probe.suites", []string{})

	v.SetDefault("thresholds.excellent", "500ms")
	v.SetDefault("thresholds.good", "1s")
	v.SetDefault("thresholds.acceptable", "2s")
	v.SetDefault("thresholds.seo_pass", 8)
	v.SetDefault("thresholds.seo_warn", 6)
	v.SetDefault("thresholds.category_warn", 80.0)
	v.SetDefault("thresholds.overall_pass", 95.0)
	v.SetDefault("thresholds.overall_warn", 80.0)
	v.SetDefault("thresholds.ready", 85.0)
	v.SetDefault("thresholds.mostly_ready", 70.0)

	v.SetDefault("catalog.file", "")

	v.SetDefault("report.color", true)
	v.SetDefault("report.json_path", "")
	v.SetDefault("report.junit_path", "")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.retention", "30d")

	v.SetDefault("publish.url", "")
	v.SetDefault("publish.token", "")
	v.SetDefault("publish.retry_max", 3)
	v.SetDefault("publish.retry_wait_min", "1s")
	v.SetDefault("publish.retry_wait_max", "30s")

	v.SetDefault("schedule.cron", defaultCron)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "calcprobe.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validateURL("target.frontend_url", c.Target.FrontendURL); err != nil {
		return err
	}
	if err := validateURL("target.backend_url", c.Target.BackendURL); err != nil {
		return err
	}
	if c.Target.Origin != "" {
		if err := validateURL("target.origin", c.Target.Origin); err != nil {
			return err
		}
	}
	if c.Target.Mode != ModeFull && c.Target.Mode != ModeFrontendOnly {
		return fmt.Errorf("target.mode must be one of: %s, %s", ModeFull, ModeFrontendOnly)
	}

	if c.Probe.Timeout <= 0 || c.Probe.PerformanceTimeout <= 0 || c.Probe.IsolationTimeout <= 0 {
		return fmt.Errorf("probe timeouts must be positive")
	}
	if c.Probe.Concurrency < 1 {
		return fmt.Errorf("probe.concurrency must be at least 1")
	}
	if c.Probe.MaxPageSize <= 0 {
		return fmt.Errorf("probe.max_page_size must be positive")
	}

	t := c.Thresholds
	if !(0 < t.Excellent && t.Excellent < t.Good && t.Good < t.Acceptable) {
		return fmt.Errorf("thresholds must satisfy 0 < excellent < good < acceptable")
	}
	if t.SEOWarn < 0 || t.SEOWarn > t.SEOPass || t.SEOPass > 10 {
		return fmt.Errorf("thresholds.seo_warn and thresholds.seo_pass must satisfy 0 <= seo_warn <= seo_pass <= 10")
	}
	if t.OverallWarn > t.OverallPass || t.MostlyReady > t.Ready {
		return fmt.Errorf("thresholds warn bands must not exceed their pass bands")
	}

	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron is invalid: %w", err)
	}

	if c.Publish.URL != "" {
		if err := validateURL("publish.url", c.Publish.URL); err != nil {
			return err
		}
	}

	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CORSOrigin returns the Origin header value used for CORS probes.
func (c *TargetConfig) CORSOrigin() string {
	if c.Origin != "" {
		return c.Origin
	}
	return strings.TrimRight(c.FrontendURL, "/")
}

// FrontendOnly reports whether the backend is expected to be unreachable.
func (c *TargetConfig) FrontendOnly() bool {
	return c.Mode == ModeFrontendOnly
}
