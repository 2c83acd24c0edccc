package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"haushalt/internal/kv"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the default kv.Store: one row per key in kv_entries.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ kv.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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
	slog.Debug("SQLite kv store ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	e, err := r.queries.GetEntry(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, kv.Wrap(kv.OpGet, key, err)
	}
	return e.Value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	err := r.queries.UpsertEntry(ctx, UpsertEntryParams{Key: key, Value: value})
	if err != nil {
		return kv.Wrap(kv.OpSet, key, err)
	}
	slog.DebugContext(ctx, "Entry saved to SQLite", "key", key, "bytes", len(value))
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, key string) error {
	if err := r.queries.DeleteEntry(ctx, key); err != nil {
		return kv.Wrap(kv.OpRemove, key, err)
	}
	return nil
}

// Keys lists stored keys in lexical order.
func (r *SQLiteRepository) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.queries.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}
