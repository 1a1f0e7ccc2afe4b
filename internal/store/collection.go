package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Collection is a JSON array of T stored under a single key.
type Collection[T any] struct {
	kv     KV
	key    string
	logger *slog.Logger
}

// NewCollection binds a typed collection to a key.
func NewCollection[T any](kv KV, key string, logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{kv: kv, key: key, logger: logger}
}

// Key returns the storage key.
func (c *Collection[T]) Key() string {
	return c.key
}

// Load reads the whole collection. A missing key or malformed contents read
// as an empty collection.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	raw, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	return c.decode(raw), nil
}

// Mutate applies fn to the current contents and stores the result atomically.
// An error from fn aborts the write.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(items []T) ([]T, error)) error {
	return c.kv.Update(ctx, c.key, func(current []byte) ([]byte, error) {
		next, err := fn(c.decode(current))
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []T{}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.key, err)
		}
		return data, nil
	})
}

func (c *Collection[T]) decode(raw []byte) []T {
	if len(raw) == 0 {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		c.logger.Warn("discarding malformed collection", "key", c.key, "error", err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}
