package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Collection is an ordered list of T stored as one JSON array under one key.
// Every mutation is a read-modify-write of the whole array, serialised by a
// per-collection mutex. An empty collection is stored as an absent key.
type Collection[T any] struct {
	mu    sync.Mutex
	store Store
	key   string
}

func NewCollection[T any](store Store, key string) *Collection[T] {
	return &Collection[T]{store: store, key: key}
}

func (c *Collection[T]) Key() string { return c.key }

// Load returns the stored items in insertion order.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Save replaces the stored items.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, items)
}

// Update applies fn to the stored items and writes back its result in one Set
// (or Remove, when the result is empty). fn runs with the collection locked.
func (c *Collection[T]) Update(ctx context.Context, fn func([]T) []T) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	next := fn(items)
	if err := c.save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// Keep the unreadable value aside instead of overwriting it on the next save.
		backup := c.key + ".corrupt"
		if setErr := c.store.Set(ctx, backup, raw); setErr != nil {
			return nil, fmt.Errorf("decode %s: %w (backup failed: %v)", c.key, err, setErr)
		}
		slog.Warn("discarding unreadable collection", "key", c.key, "backup", backup, "err", err)
		if rmErr := c.store.Remove(ctx, c.key); rmErr != nil {
			return nil, rmErr
		}
		return nil, nil
	}
	return items, nil
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return c.store.Remove(ctx, c.key)
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	return c.store.Set(ctx, c.key, string(b))
}
