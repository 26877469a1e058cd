package sysconfig

import (
	"context"
	"sort"
	"sync"
	"time"
)

const backendMemory = "memory"

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	entries map[string]*Entry
	failErr error
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return nil, newStoreError(backendMemory, "get", key, s.failErr)
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	entryCopy := *entry
	return &entryCopy, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return newStoreError(backendMemory, "set", key, s.failErr)
	}
	if description == "" {
		if existing, ok := s.entries[key]; ok {
			description = existing.Description
		}
	}
	s.entries[key] = &Entry{
		Key:         key,
		Value:       value,
		Description: description,
		UpdatedAt:   time.Now(),
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return newStoreError(backendMemory, "delete", key, s.failErr)
	}
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return nil, newStoreError(backendMemory, "list", "", s.failErr)
	}
	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entryCopy := *entry
		entries = append(entries, &entryCopy)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failErr != nil {
		return newStoreError(backendMemory, "ping", "", s.failErr)
	}
	return nil
}

// SetFailure makes every subsequent operation fail with err. Pass nil to
// restore normal operation.
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}
