// Package sqlite provides a SQLite-backed key/value store with TTL expiry.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/louisbranch/cartstore/internal/platform/errors"
	sqlitemigrate "github.com/louisbranch/cartstore/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/cartstore/internal/services/cachekv/storage"
	"github.com/louisbranch/cartstore/internal/services/cachekv/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists cache entries in SQLite. Expired rows are invisible to reads
// and scans until PurgeExpired removes them.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite cache store and applies embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func requireKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", apperrors.New(apperrors.CodeCacheKeyEmpty, "key is required")
	}
	return key, nil
}

// Get returns the live value for key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := s.ready(ctx); err != nil {
		return "", err
	}
	key, err := requireKey(key)
	if err != nil {
		return "", err
	}

	var value string
	err = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT value FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key,
		toMillis(s.now()),
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get cache entry: %w", err)
	}
	return value, nil
}

// Set stores value under key until ttl elapses.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	key, err := requireKey(key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return apperrors.WithMetadata(apperrors.CodeCacheTTLInvalid,
			"ttl must be greater than zero", map[string]string{"ttl": ttl.String()})
	}

	now := s.now()
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO cache_entries (key, value, expires_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		key,
		value,
		toMillis(now.Add(ttl)),
		toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

// Delete removes key and reports whether a live entry was removed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	key, err := requireKey(key)
	if err != nil {
		return false, err
	}

	var expiresAt int64
	err = s.sqlDB.QueryRowContext(ctx,
		`DELETE FROM cache_entries WHERE key = ? RETURNING expires_at`, key,
	).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("delete cache entry: %w", err)
	}
	return expiresAt > toMillis(s.now()), nil
}

// ScanKeys returns live keys starting with prefix, in key order.
func (s *Store) ScanKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT key FROM cache_entries
		  WHERE instr(key, ?) = 1 AND expires_at > ?
		  ORDER BY key ASC`,
		prefix,
		toMillis(s.now()),
	)
	if err != nil {
		return nil, fmt.Errorf("scan cache keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache keys: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan cache keys: %w", err)
	}
	return keys, nil
}

// PurgeExpired deletes expired entries.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, toMillis(s.now()))
	if err != nil {
		return 0, fmt.Errorf("purge expired entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired entries: %w", err)
	}
	return n, nil
}

var _ storage.Store = (*Store)(nil)
