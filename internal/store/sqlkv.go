// internal/store/sqlkv.go
//
// KV backed by a single SQL table.
//
// Context
// -------
// The table is created by the embedded migrations in internal/database:
//
//	kv(k PRIMARY KEY, v TEXT, updated_at)
//
// Every statement below is valid for both MySQL and SQLite, so one type
// serves either driver.  REPLACE INTO gives upsert semantics on both, and
// the prefix scan compares SUBSTR instead of LIKE so "_" and "%" inside
// keys (form_…, responses_…) are never treated as wildcards.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

const (
	sqlGet    = `SELECT v FROM kv WHERE k = ?`
	sqlSet    = `REPLACE INTO kv (k, v) VALUES (?, ?)`
	sqlRemove = `DELETE FROM kv WHERE k = ?`
	sqlPrefix = `SELECT k FROM kv WHERE SUBSTR(k, 1, ?) = ? ORDER BY k`
)

// SQLKV implements KV over a *sqlx.DB.
type SQLKV struct {
	db *sqlx.DB
}

// NewSQLKV wraps db.  The kv table must already exist.
func NewSQLKV(db *sqlx.DB) *SQLKV { return &SQLKV{db: db} }

// Get implements KV.
func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.GetContext(ctx, &v, sqlGet, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements KV.
func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, sqlSet, key, value); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Remove implements KV.
func (s *SQLKV) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, sqlRemove, key); err != nil {
		return fmt.Errorf("kv remove %s: %w", key, err)
	}
	return nil
}

// KeysWithPrefix implements KV.
func (s *SQLKV) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	if err := s.db.SelectContext(ctx, &keys, sqlPrefix, utf8.RuneCountInString(prefix), prefix); err != nil {
		return nil, fmt.Errorf("kv scan %s*: %w", prefix, err)
	}
	return keys, nil
}
