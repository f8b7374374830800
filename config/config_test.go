package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-crane/scrapeboard/dashboard"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Scrapeboard.ListenAddr)
	assert.Equal(t, DriverSqlite, cfg.Database.Driver)
	assert.Equal(t, 100, cfg.Database.RequestsLimit)
	assert.True(t, cfg.Scrapeboard.BackgroundJobsEnabled)
	assert.Equal(t, dashboard.Dark, cfg.ColorMode())
	assert.Equal(t, 10*time.Second, cfg.FeedTimeout())
	assert.Equal(t, 2*time.Second, cfg.RenderTimeout())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, time.Minute, cfg.RefreshInterval())
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins())
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("COLOR_MODE", "light")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("BACKGROUND_JOBS_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Scrapeboard.ListenAddr)
	assert.Equal(t, dashboard.Light, cfg.ColorMode())
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention())
	assert.False(t, cfg.Scrapeboard.BackgroundJobsEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestLoad_ReadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FEED_URL=http://feed.internal/api/requests\nINGEST_SECRET=hunter2\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://feed.internal/api/requests", cfg.Feed.URL)
	assert.Equal(t, "hunter2", cfg.Scrapeboard.IngestSecret)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("COLOR_MODE", "sepia")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "sepia")
}

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Default()
			cfg.Scrapeboard.LogLevel = tt.level
			assert.Equal(t, tt.want, cfg.GetLogLevel().Level())
		})
	}
}
