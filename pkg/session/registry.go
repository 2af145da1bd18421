package session

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// MaxSessionID is the largest ID that fits the 16-bit header field.
const MaxSessionID = 0xFFFF

// ErrRegistryFull is returned by Create when every ID is in use.
var ErrRegistryFull = errors.New("session registry is full")

// Registry assigns session IDs and resolves them for the UDP pipeline.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint16]*Session
	max      int
	logger   *slog.Logger
}

// NewRegistry returns a registry handing out IDs in [1, maxClients].
func NewRegistry(maxClients int) *Registry {
	if maxClients <= 0 || maxClients > MaxSessionID {
		maxClients = MaxSessionID
	}
	return &Registry{
		sessions: make(map[uint16]*Session),
		max:      maxClients,
		logger:   slog.Default().With("component", "session"),
	}
}

// Create allocates the lowest free ID and registers a session for p.
func (r *Registry) Create(p Processor) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := 1; id <= r.max; id++ {
		if _, taken := r.sessions[uint16(id)]; taken {
			continue
		}
		s := newSession(uint16(id), p)
		r.sessions[s.id] = s
		r.logger.Debug("session created", "session_id", s.id, "active", len(r.sessions))
		return s, nil
	}
	return nil, ErrRegistryFull
}

// Lookup returns the session registered under id.
func (r *Registry) Lookup(id uint16) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unregisters id and reports whether it was present.
func (r *Registry) Remove(id uint16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.logger.Debug("session removed", "session_id", id, "active", len(r.sessions))
	return true
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Each calls fn for every session in ID order. fn runs without the
// registry lock held.
func (r *Registry) Each(fn func(*Session)) {
	r.mu.RLock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	for _, s := range list {
		fn(s)
	}
}

// Clear removes every session.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.sessions = make(map[uint16]*Session)
	r.mu.Unlock()
}
