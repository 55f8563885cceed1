package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"relief/internal/store"

	_ "modernc.org/sqlite"
)

const (
	getQuery = `SELECT value FROM kv_entries WHERE scope = ? AND key = ?`
	setQuery = `INSERT INTO kv_entries (scope, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// Repository persists key-value entries in a single SQLite table.
type Repository struct {
	db       *sql.DB
	deviceID string
	now      func() time.Time
}

var _ store.Store = (*Repository)(nil)

func NewRepository(dbPath, deviceID string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite store ready", "path", dbPath, "schema_version", version)

	return NewWithDB(db, deviceID), nil
}

// NewWithDB wraps an already-migrated database handle.
func NewWithDB(db *sql.DB, deviceID string) *Repository {
	return &Repository{db: db, deviceID: deviceID, now: time.Now}
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements store.Store
func (r *Repository) Get(ctx context.Context, key string, shared bool) (string, bool, error) {
	scope := store.Scope(shared, r.deviceID)
	var value string
	err := r.db.QueryRowContext(ctx, getQuery, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

// Set implements store.Store
func (r *Repository) Set(ctx context.Context, key, value string, shared bool) error {
	scope := store.Scope(shared, r.deviceID)
	if _, err := r.db.ExecContext(ctx, setQuery, scope, key, value, r.now().UTC()); err != nil {
		return fmt.Errorf("set %s/%s: %w", scope, key, err)
	}

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"scope", scope,
		"key", key,
		"bytes", len(value))

	return nil
}
