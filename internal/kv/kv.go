// Package kv is the persistence adapter: a string-keyed store of JSON blobs.
package kv

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned when a write would push the store past its capacity.
// Nothing is written when it is returned.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Entry is a single key write. A nil Value removes the key.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a string-keyed blob store.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMulti applies all entries or none of them.
	SetMulti(ctx context.Context, entries ...Entry) error
	Remove(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// dedupe keeps the last write for each key, in first-seen order.
func dedupe(entries []Entry) []Entry {
	idx := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := idx[e.Key]; ok {
			out[i] = e
			continue
		}
		idx[e.Key] = len(out)
		out = append(out, e)
	}
	return out
}

// projectedSize returns the store size after entries are applied, given the
// current total and the current size of every key in entries.
func projectedSize(total int64, current map[string]int64, entries []Entry) int64 {
	for _, e := range entries {
		total -= current[e.Key]
		if e.Value != nil {
			total += int64(len(e.Value))
		}
	}
	return total
}
