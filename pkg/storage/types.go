package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// PlayerState is the persisted slice of a player the server core owns:
// identity, position and the last time the player was seen online.
type PlayerState struct {
	ID       string
	Name     string
	Level    int
	Region   uint16
	X, Y, Z  float64
	LastSeen time.Time
}

// Store is the game store consumed by the lifecycle orchestrator.
//
// The store keeps a write-back cache of player state. LoadAll fills it at
// startup, Put marks entries dirty, and WriteAll flushes the dirty set.
type Store interface {
	// LoadAll reads every persisted player into the cache.
	LoadAll(ctx context.Context) error

	// Put updates the cached state of a player and marks it dirty.
	Put(state PlayerState)

	// Get returns the cached state of a player.
	Get(id string) (PlayerState, bool)

	// Players returns a snapshot of the cache ordered by player ID.
	Players() []PlayerState

	// WriteAll flushes dirty cache entries and returns how many were written.
	WriteAll(ctx context.Context) (int, error)

	// SavePlayers writes the given states immediately, bypassing the dirty
	// set, and returns how many were written.
	SavePlayers(ctx context.Context, states []PlayerState) (int, error)

	// ArchiveInactive moves players not seen since olderThan to the archive
	// and returns how many were moved.
	ArchiveInactive(ctx context.Context, olderThan time.Time) (int64, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// cache is the write-back player cache shared by both store
// implementations.
type cache struct {
	mu      sync.RWMutex
	players map[string]PlayerState
	dirty   map[string]struct{}
}

func newCache() *cache {
	return &cache{
		players: make(map[string]PlayerState),
		dirty:   make(map[string]struct{}),
	}
}

func (c *cache) put(state PlayerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players[state.ID] = state
	c.dirty[state.ID] = struct{}{}
}

func (c *cache) get(id string) (PlayerState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.players[id]
	return p, ok
}

// load replaces the cache contents with clean entries.
func (c *cache) load(states []PlayerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players = make(map[string]PlayerState, len(states))
	c.dirty = make(map[string]struct{})
	for _, s := range states {
		c.players[s.ID] = s
	}
}

func (c *cache) snapshot() []PlayerState {
	c.mu.RLock()
	out := make([]PlayerState, 0, len(c.players))
	for _, p := range c.players {
		out = append(out, p)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// takeDirty returns the dirty entries without clearing them.
func (c *cache) takeDirty() []PlayerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]PlayerState, 0, len(c.dirty))
	for id := range c.dirty {
		out = append(out, c.players[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// markClean clears the dirty flag for states that have not changed since
// they were written.
func (c *cache) markClean(states []PlayerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range states {
		if cur, ok := c.players[s.ID]; ok && cur == s {
			delete(c.dirty, s.ID)
		}
	}
}

func (c *cache) remove(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.players, id)
		delete(c.dirty, id)
	}
}

// inactive lists cached players last seen before olderThan.
func (c *cache) inactive(olderThan time.Time) []PlayerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []PlayerState
	for _, p := range c.players {
		if p.LastSeen.Before(olderThan) {
			out = append(out, p)
		}
	}
	return out
}
