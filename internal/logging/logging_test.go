package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBuffered(t *testing.T, opts Options) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts.Stdout = zapcore.AddSync(&stdout)
	opts.Stderr = zapcore.AddSync(&stderr)
	l, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, &stdout, &stderr
}

func TestLevelRouting(t *testing.T) {
	l, stdout, stderr := newBuffered(t, Options{Level: "info"})

	l.Debug("hidden")
	l.Info("started", zap.String("addr", ":8080"))
	l.Warn("slow")
	l.Error("failed")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "started")
	assert.Contains(t, stdout.String(), `"addr": ":8080"`)
	assert.Contains(t, stdout.String(), "WARN")
	assert.NotContains(t, stdout.String(), "failed")

	assert.Contains(t, stderr.String(), "ERROR")
	assert.Contains(t, stderr.String(), "failed")
	assert.NotContains(t, stderr.String(), "started")
}

func TestSetLevel(t *testing.T) {
	l, stdout, stderr := newBuffered(t, Options{Level: "info"})

	require.NoError(t, l.SetLevel("error"))
	l.Warn("quiet")
	l.Error("loud")
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "loud")

	assert.Error(t, l.SetLevel("shouty"))
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "verbose"})
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventar.log")
	l, _, _ := newBuffered(t, Options{Level: "info", File: path, MaxSizeMB: 1})

	l.Info("to file")
	l.Error("also to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
	assert.Contains(t, string(data), `"msg":"also to file"`)
}
