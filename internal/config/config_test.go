package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "SERVER_MODE", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"JWT_SECRET", "ACCESS_TOKEN_EXPIRE_MINUTES", "FRONTEND_URL",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER",
		"TRACING_ENABLED", "TRACING_COLLECTOR_ENDPOINT", "TRACING_SAMPLE_RATIO",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.False(t, cfg.Server.LegacyErrors)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiry())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "keep", cfg.Forum.AcceptedDeletePolicy)
	assert.Zero(t, cfg.Reconcile.Interval)
	assert.False(t, cfg.Twilio.Enabled())
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := writeConfig(t, `
server:
  port: "9000"
  legacy_errors: true
database:
  driver: memory
jwt:
  secret: from-file
  expire_minutes: 15
forum:
  accepted_delete_policy: reset
  admin_emails:
    - root@example.com
reconcile:
  interval: 2m
`)
	t.Setenv("PORT", "9100")
	t.Setenv("FRONTEND_URL", "https://a.example.com, https://b.example.com")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.True(t, cfg.Server.LegacyErrors)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Expiry())
	assert.Equal(t, "reset", cfg.Forum.AcceptedDeletePolicy)
	assert.Equal(t, []string{"root@example.com"}, cfg.Forum.AdminEmails)
	assert.Equal(t, 2*time.Minute, cfg.Reconcile.Interval)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing secret":       "jwt:\n  secret: \"\"\n",
		"short release":        "server:\n  mode: release\njwt:\n  secret: short\n",
		"unknown driver":       "database:\n  driver: mysql\njwt:\n  secret: x\n",
		"unknown mode":         "server:\n  mode: prod\njwt:\n  secret: x\n",
		"negative interval":    "jwt:\n  secret: x\nreconcile:\n  interval: -1m\n",
		"tracing no endpoint":  "jwt:\n  secret: x\ntracing:\n  enabled: true\n",
		"sample ratio above 1": "jwt:\n  secret: x\ntracing:\n  sample_ratio: 1.5\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "stackit", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=stackit port=5433 sslmode=disable TimeZone=UTC", d.DSN())
}
