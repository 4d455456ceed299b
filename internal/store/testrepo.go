package store

import (
	"testing"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/kv"
)

// NewTestRepository creates a repository over a fresh in-memory SQLite store.
func NewTestRepository(t *testing.T) *Repository {
	t.Helper()
	return New(kv.NewSQLite(db.NewTestDB(t), 0), zap.NewNop())
}
