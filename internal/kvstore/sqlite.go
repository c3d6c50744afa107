package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend stores keys in a single kv table.
type SQLiteBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteBackend opens (or creates) the database at path and initializes
// the schema.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	logger := slog.Default()

	cleanPath := strings.TrimPrefix(path, "sqlite3://")
	if dir := filepath.Dir(cleanPath); dir != "" && cleanPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cleanPath)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cleanPath)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, logger: logger}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("kv database initialized", "path", cleanPath)
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := b.db.Exec(schema); err != nil {
		b.logger.Error("failed to initialize schema", "error", err)
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	var value string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		b.logger.Error("failed to get key", "error", err, "key", key)
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}

	b.logger.Debug("database operation",
		"operation", "Get",
		"key", key,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return value, true, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		b.logger.Error("failed to set key", "error", err, "key", key)
		return fmt.Errorf("failed to set key: %w", err)
	}

	b.logger.Debug("database operation",
		"operation", "Set",
		"key", key,
		"bytes", len(value),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (b *SQLiteBackend) Close() error {
	if err := b.db.Close(); err != nil {
		b.logger.Error("failed to close database", "error", err)
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
