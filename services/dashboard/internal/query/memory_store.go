package query

import (
	"bytes"
	"context"
	"sync"
)

// MemoryStore is a process-local Store. Entries are copied in and out so
// callers can never mutate cached data.
type MemoryStore struct {
	mu          sync.RWMutex
	entries     map[string]map[string]Entry // tag -> args -> entry
	generations map[string]uint64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]map[string]Entry),
		generations: make(map[string]uint64),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key.Tag][key.Args]
	if !ok {
		return Entry{}, false, nil
	}
	entry.Data = bytes.Clone(entry.Data)
	return entry, true, nil
}

// Generation implements Store.
func (s *MemoryStore) Generation(ctx context.Context, tag string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[tag], nil
}

// SetIfGeneration implements Store.
func (s *MemoryStore) SetIfGeneration(ctx context.Context, key Key, entry Entry, gen uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[key.Tag] != gen {
		return false, nil
	}
	byArgs, ok := s.entries[key.Tag]
	if !ok {
		byArgs = make(map[string]Entry)
		s.entries[key.Tag] = byArgs
	}
	entry.Data = bytes.Clone(entry.Data)
	byArgs[key.Args] = entry
	return true, nil
}

// MarkStale implements Store.
func (s *MemoryStore) MarkStale(ctx context.Context, tag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[tag]++
	byArgs := s.entries[tag]
	for args, entry := range byArgs {
		entry.Stale = true
		byArgs[args] = entry
	}
	return len(byArgs), nil
}

var _ Store = (*MemoryStore)(nil)
