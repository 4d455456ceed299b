// Package store holds the entity stores. Every entity set is a JSON blob
// under a fixed key in a kv.Store; reads never fail on missing or malformed data.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/kv"
)

// Storage keys.
const (
	KeyItems          = "inventory-data"
	KeyCategories     = "inventory-categories"
	KeyUsers          = "user-data"
	KeySession        = "logged-in-user"
	KeyLogs           = "logs-data"
	KeyImages         = "hosted-images"
	KeyPasswordResets = "password-resets"
	KeyRevokedTokens  = "revoked-tokens"
	KeyJWTSecret      = "settings-jwt-secret"

	transactionsPrefix = "transactions-"
)

// List caps. Lists are newest-first; the oldest entries are dropped.
const (
	MaxTransactionsPerItem = 50
	MaxLogEntries          = 50
)

// Repository reads and encodes entity sets. Callers that read, modify and
// write back must hold the lock for the whole sequence.
type Repository struct {
	KV  kv.Store
	Log *zap.Logger

	mu sync.Mutex
}

// New creates a repository over s. A nil logger discards output.
func New(s kv.Store, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{KV: s, Log: log}
}

// Lock serializes read-modify-write sequences.
func (r *Repository) Lock() { r.mu.Lock() }

// Unlock releases the lock taken by Lock.
func (r *Repository) Unlock() { r.mu.Unlock() }

// Apply writes all entries atomically.
func (r *Repository) Apply(ctx context.Context, entries ...kv.Entry) error {
	if err := r.KV.SetMulti(ctx, entries...); err != nil {
		return fmt.Errorf("saving %d keys: %w", len(entries), err)
	}
	return nil
}

// readJSON decodes the value under key into dst, which must be a pointer.
// It reports false, leaving dst untouched, when the key is missing or holds
// malformed JSON. Values with the wrong shape count as malformed.
func (r *Repository) readJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := r.KV.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	// Unmarshal fills fields before it reports a type mismatch.
	fresh := reflect.New(reflect.TypeOf(dst).Elem())
	if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
		r.Log.Warn("ignoring malformed stored value",
			zap.String("key", key),
			zap.Error(err),
		)
		return false, nil
	}
	reflect.ValueOf(dst).Elem().Set(fresh.Elem())
	return true, nil
}

func encode(key string, v any) (kv.Entry, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return kv.Entry{}, fmt.Errorf("encoding %s: %w", key, err)
	}
	return kv.Entry{Key: key, Value: raw}, nil
}

// Prepend puts v at the front of list and drops entries past max.
func Prepend[T any](list []T, v T, max int) []T {
	out := make([]T, 0, min(len(list)+1, max))
	out = append(out, v)
	for _, e := range list {
		if len(out) == max {
			break
		}
		out = append(out, e)
	}
	return out
}

func truncate[T any](list []T, max int) []T {
	if len(list) > max {
		return list[:max]
	}
	return list
}
