package kvstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/user/promptengine/internal/types"
)

const opTimeout = 5 * time.Second

// Value is a typed JSON view of a single key. Reads fall back to a default
// and writes never fail: storage problems are logged and dropped, leaving
// the caller's in-memory state authoritative.
type Value[T any] struct {
	backend Backend
	key     string
}

func NewValue[T any](backend Backend, key string) *Value[T] {
	return &Value[T]{backend: backend, key: key}
}

// Get decodes the stored value, or returns defaultValue when the key is
// absent, unreadable or holds data that does not decode into T.
func (v *Value[T]) Get(defaultValue T) T {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	raw, ok, err := v.backend.Get(ctx, v.key)
	if err != nil {
		warn(&types.PersistenceWarning{Op: "read", Key: v.key, Err: err})
		return defaultValue
	}
	if !ok {
		return defaultValue
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		warn(&types.PersistenceWarning{Op: "decode", Key: v.key, Err: err})
		return defaultValue
	}
	return out
}

// Set encodes value and writes it to the backend.
func (v *Value[T]) Set(value T) {
	data, err := json.Marshal(value)
	if err != nil {
		warn(&types.PersistenceWarning{Op: "encode", Key: v.key, Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := v.backend.Set(ctx, v.key, string(data)); err != nil {
		warn(&types.PersistenceWarning{Op: "write", Key: v.key, Err: err})
	}
}

func warn(w *types.PersistenceWarning) {
	slog.Warn("storage operation failed", "op", w.Op, "key", w.Key, "error", w.Err)
}
