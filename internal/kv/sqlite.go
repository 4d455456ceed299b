package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLite stores entries in the kv table of a SQLite database.
type SQLite struct {
	db    *sql.DB
	quota int64
}

// NewSQLite wraps an open database whose schema is already in place.
// quota is the maximum total value size in bytes; 0 disables the limit.
func NewSQLite(db *sql.DB, quota int64) *SQLite {
	return &SQLite{db: db, quota: quota}
}

// DB returns the underlying database.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return s.SetMulti(ctx, Entry{Key: key, Value: value})
}

func (s *SQLite) SetMulti(ctx context.Context, entries ...Entry) error {
	entries = dedupe(entries)
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if s.quota > 0 {
		if err := s.checkQuota(ctx, tx, entries); err != nil {
			return err
		}
	}

	for _, e := range entries {
		if e.Value == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, e.Key); err != nil {
				return fmt.Errorf("removing key %q: %w", e.Key, err)
			}
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			e.Key, e.Value,
		)
		if err != nil {
			return fmt.Errorf("writing key %q: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLite) checkQuota(ctx context.Context, tx *sql.Tx, entries []Entry) error {
	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(length(value)), 0) FROM kv`).Scan(&total); err != nil {
		return fmt.Errorf("measuring storage: %w", err)
	}

	current := make(map[string]int64, len(entries))
	for _, e := range entries {
		var n int64
		err := tx.QueryRowContext(ctx, `SELECT length(value) FROM kv WHERE key = ?`, e.Key).Scan(&n)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("measuring key %q: %w", e.Key, err)
		}
		current[e.Key] = n
	}

	if projectedSize(total, current, entries) > s.quota {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("removing key %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
