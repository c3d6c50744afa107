// Package kvstore provides a durable string-keyed store and a typed JSON
// wrapper over it.
package kvstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Backend is a durable string-keyed store.
type Backend interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Options selects and configures a Backend.
type Options struct {
	Backend  string // "file", "sqlite", "redis" or "memory"
	Dir      string // file backend directory
	Path     string // sqlite database path
	RedisURL string
	Prefix   string // redis key prefix
}

// Open creates the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "file":
		return NewFileBackend(opts.Dir), nil
	case "sqlite":
		path := opts.Path
		if path == "" {
			path = filepath.Join(opts.Dir, "promptengine.db")
		}
		return NewSQLiteBackend(path)
	case "redis":
		return NewRedisBackend(ctx, opts.RedisURL, opts.Prefix)
	case "memory":
		return NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown storage backend: %s", opts.Backend)
}
