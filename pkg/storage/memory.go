package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore implements Store in memory. It is used by tests and by
// dry runs started with the "memory" driver.
type MemoryStore struct {
	cache *cache

	mu       sync.Mutex
	persist  map[string]PlayerState
	archived map[string]PlayerState
	writes   int

	closed atomic.Bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:    newCache(),
		persist:  make(map[string]PlayerState),
		archived: make(map[string]PlayerState),
	}
}

// LoadAll implements Store.
func (s *MemoryStore) LoadAll(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	states := make([]PlayerState, 0, len(s.persist))
	for _, p := range s.persist {
		states = append(states, p)
	}
	s.mu.Unlock()

	s.cache.load(states)
	return nil
}

// Put implements Store.
func (s *MemoryStore) Put(state PlayerState) {
	s.cache.put(state)
}

// Get implements Store.
func (s *MemoryStore) Get(id string) (PlayerState, bool) {
	return s.cache.get(id)
}

// Players implements Store.
func (s *MemoryStore) Players() []PlayerState {
	return s.cache.snapshot()
}

// WriteAll implements Store.
func (s *MemoryStore) WriteAll(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	dirty := s.cache.takeDirty()
	s.store(dirty)
	s.cache.markClean(dirty)
	return len(dirty), nil
}

// SavePlayers implements Store.
func (s *MemoryStore) SavePlayers(ctx context.Context, states []PlayerState) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	s.store(states)
	for _, st := range states {
		s.cache.put(st)
	}
	s.cache.markClean(states)
	return len(states), nil
}

func (s *MemoryStore) store(states []PlayerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range states {
		s.persist[p.ID] = p
	}
	s.writes++
}

// ArchiveInactive implements Store.
func (s *MemoryStore) ArchiveInactive(ctx context.Context, olderThan time.Time) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	s.mu.Lock()
	var ids []string
	for id, p := range s.persist {
		if p.LastSeen.Before(olderThan) {
			s.archived[id] = p
			delete(s.persist, id)
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	s.cache.remove(ids)
	return int64(len(ids)), nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.closed.Store(true)
	return nil
}

// Archived returns the IDs of archived players.
func (s *MemoryStore) Archived() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.archived))
	for id := range s.archived {
		ids = append(ids, id)
	}
	return ids
}

// Writes returns how many write batches reached the store.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
