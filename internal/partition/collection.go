// Package partition stores the records of every user in one shared kv entry
// while letting each session read and write only its own slice of it.
package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	jsoniter "github.com/json-iterator/go"

	"agenda/internal/kv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BelongsFunc decides whether record is part of userID's slice.
type BelongsFunc[T any] func(record T, userID string) bool

// Collection is a typed view over a single shared kv entry.
//
// owns partitions the entry for writes: Save replaces exactly the records a
// user owns. visible filters reads and defaults to owns; it may be wider
// (event attendees see events they do not own) but never narrower.
type Collection[T any] struct {
	store   kv.Store
	key     string
	owns    BelongsFunc[T]
	visible BelongsFunc[T]
	logger  *slog.Logger
}

// NewCollection creates a Collection for key partitioned by owns.
func NewCollection[T any](store kv.Store, key string, owns BelongsFunc[T], logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection[T]{
		store:   store,
		key:     key,
		owns:    owns,
		visible: owns,
		logger:  logger,
	}
}

// WithVisibility sets the read filter used by Load.
func (c *Collection[T]) WithVisibility(visible BelongsFunc[T]) *Collection[T] {
	c.visible = visible
	return c
}

// All returns every stored record in stored order.
// A corrupt entry is logged and read as empty.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	raw, err := c.store.Get(ctx, c.key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.key, err)
	}

	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		c.logger.Warn("Discarding corrupt collection.", "key", c.key, "error", err)
		return []T{}, nil
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// Load returns the records visible to userID, in stored order.
func (c *Collection[T]) Load(ctx context.Context, userID string) ([]T, error) {
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}

	mine := make([]T, 0, len(all))
	for _, r := range all {
		if c.visible(r, userID) {
			mine = append(mine, r)
		}
	}
	c.logger.Debug("Loaded collection slice.", "key", c.key, "user", userID, "count", len(mine), "total", len(all))
	return mine, nil
}

// Save replaces the records owned by userID with records. Everything else is
// kept untouched and in stored order; the new slice is appended after it.
// An empty records slice is written too, so deleting the last record sticks.
// Records passed in that userID does not own are dropped.
func (c *Collection[T]) Save(ctx context.Context, userID string, records []T) error {
	all, err := c.All(ctx)
	if err != nil {
		return err
	}

	merged := make([]T, 0, len(all)+len(records))
	for _, r := range all {
		if !c.owns(r, userID) {
			merged = append(merged, r)
		}
	}
	kept := 0
	for _, r := range records {
		if c.owns(r, userID) {
			merged = append(merged, r)
			kept++
		}
	}
	if dropped := len(records) - kept; dropped > 0 {
		c.logger.Warn("Dropped records not owned by the saving user.", "key", c.key, "user", userID, "dropped", dropped)
	}

	if err := c.Replace(ctx, merged); err != nil {
		return err
	}
	c.logger.Debug("Saved collection slice.", "key", c.key, "user", userID, "count", kept, "total", len(merged))
	return nil
}

// Replace overwrites the whole shared entry.
func (c *Collection[T]) Replace(ctx context.Context, all []T) error {
	if all == nil {
		all = []T{}
	}
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.key, err)
	}
	return nil
}
