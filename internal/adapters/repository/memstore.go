package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store guarded by a RWMutex.
type MemoryStore[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	maxSize int
}

var _ Store[int] = (*MemoryStore[int])(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore[T any](opts ...Option) *MemoryStore[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore[T]{
		items:   make(map[string]T),
		maxSize: o.maxSize,
	}
}

// Put inserts or replaces the value for id.
func (s *MemoryStore[T]) Put(_ context.Context, id string, v T) error {
	if id == "" {
		return ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok && s.maxSize > 0 && len(s.items) >= s.maxSize {
		return fmt.Errorf("%w: limit %d", ErrCapacity, s.maxSize)
	}
	s.items[id] = v
	return nil
}

// Get returns the value for id.
func (s *MemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v, nil
}

// Delete removes id.
func (s *MemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.items, id)
	return nil
}

// Count returns the number of stored values.
func (s *MemoryStore[T]) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IDs returns the stored ids in ascending order.
func (s *MemoryStore[T]) IDs(_ context.Context) []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
