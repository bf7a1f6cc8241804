package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/absmach/fedkm/pkg/errors"
)

type entry struct {
	key   string
	value any
}

type inMemoryStorage struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
}

// NewInMemoryStorage returns a Storage that lists entries in insertion
// order.
func NewInMemoryStorage() Storage {
	return &inMemoryStorage{
		index: make(map[string]int),
	}
}

func (s *inMemoryStorage) Create(_ context.Context, key string, value any) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[key]; ok {
		return errors.ErrEntityExists
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, entry{key: key, value: value})

	return nil
}

func (s *inMemoryStorage) Get(_ context.Context, key string) (any, error) {
	if key == "" {
		return nil, errors.ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[key]
	if !ok {
		return nil, errors.ErrNotFound
	}

	return s.entries[i].value, nil
}

// Update replaces the value in place; the entry keeps its listing position.
func (s *inMemoryStorage) Update(_ context.Context, key string, value any) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return errors.ErrNotFound
	}
	s.entries[i].value = value

	return nil
}

func (s *inMemoryStorage) List(_ context.Context, offset, limit uint64) ([]any, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := uint64(len(s.entries))
	if offset >= total || limit == 0 {
		return nil, total, nil
	}

	page := s.entries[offset:min(offset+limit, total)]
	values := make([]any, len(page))
	for i, e := range page {
		values[i] = e.value
	}

	return values, total, nil
}

// Delete is a no-op for unknown keys.
func (s *inMemoryStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return nil
	}
	delete(s.index, key)
	s.entries = slices.Delete(s.entries, i, i+1)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].key] = j
	}

	return nil
}
