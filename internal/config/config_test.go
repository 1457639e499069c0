package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load(writeConfig(t, "is_debug: true\n"))
	require.NoError(t, err)

	assert.True(t, conf.IsDebug)
	assert.Equal(t, "info", conf.LogLevel)
	assert.Equal(t, "5000", conf.Listen.Port)
	assert.Equal(t, "evroam", conf.Redis.Prefix)
	assert.Equal(t, 10, conf.Dispatcher.HandlerTimeout)
	assert.Equal(t, 15, conf.Dispatcher.ShutdownTimeout)
	assert.False(t, conf.Mongo.Enabled)
}

func TestLoadSectionsAndEnvOverride(t *testing.T) {
	t.Setenv("EVROAM_REDIS_ADDR", "redis:6380")
	path := writeConfig(t, `
listen:
  port: "8080"
redis:
  enabled: true
  addr: "localhost:6379"
dispatcher:
  handler_timeout_sec: 3
operators:
  - id: "DE*ABC"
    name: "Fast Charge GmbH"
    admin_status: "Operational"
`)
	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", conf.Listen.Port)
	assert.True(t, conf.Redis.Enabled)
	assert.Equal(t, "redis:6380", conf.Redis.Addr)
	assert.Equal(t, 3, conf.Dispatcher.HandlerTimeout)
	require.Len(t, conf.Operators, 1)
	assert.Equal(t, "DE*ABC", conf.Operators[0].Id)
	assert.Equal(t, "Operational", conf.Operators[0].AdminStatus)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
