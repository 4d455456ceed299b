package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/assist"
	"github.com/erazemk/inventar/internal/config"
	"github.com/erazemk/inventar/internal/events"
)

func TestNewSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("INVENTAR_STORAGE_PATH", filepath.Join(dir, "inventar.sqlite3"))
	t.Setenv("INVENTAR_SERVER_TIMEZONE", "UTC")

	cfg, err := config.Load("")
	require.NoError(t, err)

	ctx := context.Background()
	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &events.Local{}, a.Bus)
	assert.IsType(t, assist.Disabled{}, a.Assist)

	h, err := a.Handler(ctx)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/items")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The generated secret is persisted and reused.
	first, err := a.Repo.JWTSecret(ctx)
	require.NoError(t, err)
	second, err := a.Repo.JWTSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
