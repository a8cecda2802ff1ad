// Package repository defines the session store interface and errors.
package repository

import "context"

// Store provides keyed read/write access to live sessions.
type Store[T any] interface {
	// Put inserts or replaces the value for id.
	// Returns ErrCapacity when inserting a new id into a full store.
	Put(ctx context.Context, id string, v T) error

	// Get returns the value for id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (T, error)

	// Delete removes id. Returns ErrNotFound if the id is unknown.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored values.
	Count(ctx context.Context) int

	// IDs returns the stored ids in ascending order.
	IDs(ctx context.Context) []string
}
