package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TROOP_POSTGRES_URL", "postgres://localhost/troopbase")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "@hourly", cfg.Invitations.SweepSchedule)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TROOP_POSTGRES_URL", "postgres://localhost/troopbase")
	t.Setenv("TROOP_PORT", "3000")
	t.Setenv("TROOP_LOG_LEVEL", "debug")
	t.Setenv("TROOP_SESSION_TTL", "1h")
	t.Setenv("TROOP_RATE_LIMIT_DISTRIBUTED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.RateLimit.Distributed)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "troopbase.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "4000"
database:
  url: postgres://db.internal/troopbase
observability:
  log_level: warn
`)
	t.Setenv("TROOP_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "postgres://db.internal/troopbase", cfg.Database.URL)
	assert.Equal(t, "warn", cfg.Observability.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, "9090", cfg.Server.HealthPort)
}

func TestEnvWinsOverFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "4000"
database:
  url: postgres://db.internal/troopbase
`)
	t.Setenv("TROOP_CONFIG_FILE", path)
	t.Setenv("TROOP_PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/troopbase"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing postgres url",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "postgres URL",
		},
		{
			name:    "port collision",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "must be different",
		},
		{
			name:    "idle exceeds open",
			mutate:  func(c *Config) { c.Database.MaxIdleConns = 100 },
			wantErr: "idle connections",
		},
		{
			name:    "zero session ttl",
			mutate:  func(c *Config) { c.Session.TTL = 0 },
			wantErr: "session TTL",
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfigFile(t, "server: [not a map")
	t.Setenv("TROOP_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}
