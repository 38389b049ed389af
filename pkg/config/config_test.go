package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmail/easgate/internal/bytesize"
	"github.com/veilmail/easgate/pkg/state/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, store.DatabaseTypeSQLite, cfg.Database.Type)
	assert.Equal(t, "badger", cfg.Mail.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Ping.MinHeartbeat)
	assert.Equal(t, 4*bytesize.MiB, cfg.Server.MaxRequestSize)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
server:
  port: 9443
  read_timeout: 30s
  max_request_size: 2MiB
mail:
  backend: memory
ping:
  min_heartbeat: 1m
  max_heartbeat: 10m
  default_heartbeat: 2m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 9443, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*bytesize.MiB, cfg.Server.MaxRequestSize)
	assert.Equal(t, "memory", cfg.Mail.Backend)
	assert.Equal(t, time.Minute, cfg.Ping.MinHeartbeat)
	assert.Equal(t, 2*time.Minute, cfg.Ping.DefaultHeartbeat)

	// Unspecified sections still get defaults.
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad log level", "logging:\n  level: verbose\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"bad mail backend", "mail:\n  backend: imap\n"},
		{"inverted heartbeats", "ping:\n  min_heartbeat: 10m\n  max_heartbeat: 1m\n"},
		{"default heartbeat out of range", "ping:\n  default_heartbeat: 1h\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("EASGATE_LOGGING_LEVEL", "ERROR")
	path := writeConfig(t, "logging:\n  level: info\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestSaveAndReload(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 10443
	cfg.Mail.Backend = "memory"
	cfg.Admin.Username = "postmaster"

	path := filepath.Join(t.TempDir(), "saved", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10443, loaded.Server.Port)
	assert.Equal(t, "memory", loaded.Mail.Backend)
	assert.Equal(t, "postmaster", loaded.Admin.Username)
}

func TestValidateDefaultsPass(t *testing.T) {
	require.NoError(t, Validate(GetDefaultConfig()))
}
