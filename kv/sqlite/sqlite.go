// Package sqlite provides a durable file-backed kv.Store on SQLite.
// It is the closest analog to the origin-scoped local storage area the cache
// was designed against: synchronous reads, survives restarts, bounded by an
// optional byte quota.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/LoosePrince/pagecache/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS pagecache_kv (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
) WITHOUT ROWID;
`

// Store persists keys in a single SQLite table.
type Store struct {
	db    *sql.DB
	quota int64 // 0 => unlimited
}

var _ kv.Store = (*Store)(nil)

type Config struct {
	Path     string
	MaxBytes int64 // total size of keys+values; Set beyond it returns ok=false
}

// Open opens (creating if needed) the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	dsn := filepath.Clean(cfg.Path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, quota: cfg.MaxBytes}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM pagecache_kv WHERE k = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) (bool, error) {
	if s.quota > 0 {
		over, err := s.wouldExceed(ctx, key, value)
		if err != nil {
			return false, err
		}
		if over {
			return false, nil
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pagecache_kv (k, v) VALUES (?, ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) wouldExceed(ctx context.Context, key, value string) (bool, error) {
	var used, prev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(k)+LENGTH(v)), 0) FROM pagecache_kv`).Scan(&used)
	if err != nil {
		return false, err
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(LENGTH(k)+LENGTH(v), 0) FROM pagecache_kv WHERE k = ?`, key).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}
	return used-prev+int64(len(key)+len(value)) > s.quota, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pagecache_kv WHERE k = ?`, key)
	return err
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	// LIKE with escaped prefix; the cache's prefixes contain no wildcards but
	// page keys could.
	pattern := escapeLike(prefix) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT k FROM pagecache_kv WHERE k LIKE ? ESCAPE '\'`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) Close(_ context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
