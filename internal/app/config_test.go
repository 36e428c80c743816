package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, "athlos", cfg.Database.Postgres.Database)

	require.Equal(t, "https://issuer.example.com", cfg.Auth.OIDC.Issuer)
	require.Equal(t, "athlos-web", cfg.Auth.OIDC.ClientID)
	require.Equal(t, []string{"openid", "profile", "email"}, cfg.Auth.OIDC.Scopes)

	require.Equal(t, "shared-secret", cfg.Auth.Token.Secret)
	require.Equal(t, "athlos-api", cfg.Auth.Token.Audience)
	require.Equal(t, 45*time.Second, cfg.Auth.Token.Leeway)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)

	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 6h", cfg.Maintenance.NotificationSchedule)
	require.Equal(t, "@every 2h", cfg.Maintenance.ParticipantSchedule)
	require.Equal(t, "@weekly", cfg.Maintenance.ConversationSchedule)
	require.Equal(t, 14, cfg.Maintenance.NotificationRetention)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/athlos.sqlite", cfg.Database.Path)
	require.Equal(t, 30*time.Second, cfg.Auth.Token.Leeway)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@daily", cfg.Maintenance.NotificationSchedule)
	require.Equal(t, 30, cfg.Maintenance.NotificationRetention)
}

func TestConfigureLogging(t *testing.T) {
	require.NoError(t, ConfigureLogging(""))
	require.NoError(t, ConfigureLogging("debug"))
	// Unknown levels fall back to info rather than failing startup.
	require.NoError(t, ConfigureLogging("nope"))
}
