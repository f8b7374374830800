package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"

	"github.com/marcus-crane/scrapeboard/dashboard"
)

type Config struct {
	Dashboard   DashboardConfig
	Database    DatabaseConfig
	Feed        FeedConfig
	Pushover    PushoverConfig
	Scrapeboard ScrapeboardConfig
}

type ScrapeboardConfig struct {
	BackgroundJobsEnabled bool   `env:"BACKGROUND_JOBS_ENABLED"`
	CorsAllowedOrigins    string `env:"CORS_ALLOWED_ORIGINS"`
	IngestSecret          string `env:"INGEST_SECRET"`
	ListenAddr            string `env:"LISTEN_ADDR"`
	LogFormat             string `env:"LOG_FORMAT"`
	LogLevel              string `env:"LOG_LEVEL"`
}

type DashboardConfig struct {
	CacheTTLSeconds        int    `env:"DASHBOARD_CACHE_TTL_SECONDS"`
	ColorMode              string `env:"COLOR_MODE"`
	RefreshIntervalSeconds int    `env:"DASHBOARD_REFRESH_INTERVAL_SECONDS"`
	RenderTimeoutMs        int    `env:"DASHBOARD_RENDER_TIMEOUT_MS"`
}

type DatabaseConfig struct {
	Driver        string `env:"DB_DRIVER"`
	DSN           string `env:"DB_DSN"`
	RequestsLimit int    `env:"API_REQUESTS_LIMIT"`
	RetentionDays int    `env:"RETENTION_DAYS"`
}

type FeedConfig struct {
	TimeoutSeconds int    `env:"FEED_TIMEOUT_SECONDS"`
	URL            string `env:"FEED_URL"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

const (
	DriverSqlite = "sqlite"
	DriverMysql  = "mysql"
	DriverMemory = "memory"
	DriverNone   = "none"
)

func Default() Config {
	return Config{
		Dashboard: DashboardConfig{
			CacheTTLSeconds:        30,
			ColorMode:              string(dashboard.Dark),
			RefreshIntervalSeconds: 60,
			RenderTimeoutMs:        2000,
		},
		Database: DatabaseConfig{
			Driver:        DriverSqlite,
			DSN:           "scrapeboard.db",
			RequestsLimit: 100,
		},
		Feed: FeedConfig{
			TimeoutSeconds: 10,
			URL:            "http://localhost:8080/api/requests",
		},
		Scrapeboard: ScrapeboardConfig{
			BackgroundJobsEnabled: true,
			CorsAllowedOrigins:    "http://localhost:8080",
			ListenAddr:            ":8080",
			LogFormat:             "text",
			LogLevel:              "info",
		},
	}
}

// Load starts from the defaults, then applies envPath (when the file exists)
// and finally the process environment.
func Load(envPath string) (Config, error) {
	cfg := Default()
	c := config.New()
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			c.AddFeeder(feeder.DotEnv{Path: envPath})
		}
	}
	c.AddFeeder(feeder.Env{}).AddStruct(&cfg)
	if err := c.Feed(); err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSqlite, DriverMysql, DriverMemory, DriverNone:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if c.Database.RequestsLimit <= 0 {
		errs = append(errs, errors.New("API_REQUESTS_LIMIT must be greater than zero"))
	}
	if c.Dashboard.RefreshIntervalSeconds <= 0 {
		errs = append(errs, errors.New("DASHBOARD_REFRESH_INTERVAL_SECONDS must be greater than zero"))
	}
	if _, err := dashboard.ParseColorMode(c.Dashboard.ColorMode); err != nil {
		errs = append(errs, err)
	}
	if c.Feed.URL == "" {
		errs = append(errs, errors.New("FEED_URL must be set"))
	}
	return errors.Join(errs...)
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Scrapeboard.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}

func (c *Config) ColorMode() dashboard.ColorMode {
	mode, err := dashboard.ParseColorMode(c.Dashboard.ColorMode)
	if err != nil {
		return dashboard.Dark
	}
	return mode
}

func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.Scrapeboard.CorsAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Dashboard.RenderTimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Dashboard.CacheTTLSeconds) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Dashboard.RefreshIntervalSeconds) * time.Second
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}
