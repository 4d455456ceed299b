package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.EqualValues(t, 5<<20, cfg.Storage.Quota)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 64, cfg.Events.Buffer)
}

func TestFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
server:
  addr: ":9000"
  timezone: UTC
storage:
  backend: redis
  redis:
    addr: redis:6379
log:
  level: debug
`)
	t.Setenv("INVENTAR_STORAGE_QUOTA", "1024")
	t.Setenv("INVENTAR_MAIL_HOST", "smtp.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.EqualValues(t, 1024, cfg.Storage.Quota)
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
	assert.Equal(t, "debug", cfg.Log.Level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("INVENTAR_ASSIST_MODEL=gemini-test\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("INVENTAR_ASSIST_MODEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", cfg.Assist.Model)
}

func TestInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := map[string]string{
		"backend":  "storage:\n  backend: postgres\n",
		"quota":    "storage:\n  quota: -1\n",
		"level":    "log:\n  level: loud\n",
		"timezone": "server:\n  timezone: Mars/Olympus\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, "log:\n  level: info\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	var level atomic.Value
	cfg.Watch(func(next *Config) { level.Store(next.Log.Level) }, nil)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))
	assert.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "warn"
	}, 5*time.Second, 20*time.Millisecond)
}
