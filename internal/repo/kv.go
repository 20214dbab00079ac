// Package repo implements the persistence layer of the companion store: a
// namespaced key-value store whose values are JSON documents.
//
// Every higher component (entities, configuration, import/export) builds on
// the KeyValueStore contract defined here and never touches the underlying
// medium directly. Two backends are provided:
//
//   - SQLStore: GORM over SQLite (pure Go driver), one row per key.
//   - RedisStore: go-redis, one string per key.
//
// Error semantics:
//   - Get on an absent key returns ErrNotFound.
//   - A write rejected by the medium (quota, I/O, lost connection) is returned
//     wrapped in ErrWriteFailed; prior state is left intact.
//   - Values that cannot be encoded as JSON are rejected before any write.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "phone_"

var (
	// ErrNotFound is returned when a key holds no value.
	ErrNotFound = errors.New("key not found")

	// ErrWriteFailed is returned when the medium rejects a write.
	ErrWriteFailed = errors.New("storage write failed")
)

// Write is one element of an atomic batch. A nil Value deletes the key.
type Write struct {
	Key   string
	Value any
}

// Put returns a Write that stores value under key.
func Put(key string, value any) Write { return Write{Key: key, Value: value} }

// Del returns a Write that removes key.
func Del(key string) Write { return Write{Key: key} }

// KeyValueStore is the persistent key space all components build on.
//
// Implementations must apply SetMany atomically: either every write in the
// batch becomes visible or none does.
type KeyValueStore interface {
	// Get decodes the value stored under key into dst.
	Get(ctx context.Context, key string, dst any) error
	// Set stores value under key.
	Set(ctx context.Context, key string, value any) error
	// SetMany applies a batch of puts and deletes atomically.
	SetMany(ctx context.Context, writes []Write) error
	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error
	// Clear removes every key in this store's namespace.
	Clear(ctx context.Context) error
}

// encoded is a pre-serialized batch element.
type encoded struct {
	key   string
	value []byte // nil means delete
}

// encodeBatch validates keys and serializes values before any I/O happens,
// so a bad value never produces a half-applied batch.
func encodeBatch(prefix string, writes []Write) ([]encoded, error) {
	out := make([]encoded, 0, len(writes))
	for _, w := range writes {
		if strings.TrimSpace(w.Key) == "" {
			return nil, errors.New("repo: empty key")
		}
		e := encoded{key: prefix + w.Key}
		if w.Value != nil {
			raw, err := json.Marshal(w.Value)
			if err != nil {
				return nil, fmt.Errorf("repo: encode %q: %w", w.Key, err)
			}
			e.value = raw
		}
		out = append(out, e)
	}
	return out, nil
}

// writeFailed wraps a medium error so callers can match ErrWriteFailed while
// keeping the cause.
func writeFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrWriteFailed, err)
}
