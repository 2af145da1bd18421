package session

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"emberhold/realmd/pkg/protocol"
)

// Processor consumes packets delivered to a session.
type Processor interface {
	HandlePacket(pkt *protocol.Packet)
}

// ProcessorFunc adapts a function into a Processor.
type ProcessorFunc func(pkt *protocol.Packet)

// HandlePacket implements Processor.
func (f ProcessorFunc) HandlePacket(pkt *protocol.Packet) { f(pkt) }

// Session is the per-connection state the UDP pipeline routes to.
type Session struct {
	id        uint16
	processor Processor
	created   time.Time
	lastSeen  atomic.Int64

	mu        sync.Mutex
	endpoint  *net.UDPAddr
	confirmed bool
	player    string
}

func newSession(id uint16, p Processor) *Session {
	s := &Session{id: id, processor: p, created: time.Now()}
	s.lastSeen.Store(s.created.UnixNano())
	return s
}

// ID returns the server-assigned session ID.
func (s *Session) ID() uint16 {
	return s.id
}

// Created returns when the session was created.
func (s *Session) Created() time.Time {
	return s.created
}

// LastSeen returns when the session last received a packet.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Endpoint returns the bound UDP endpoint, or nil.
func (s *Session) Endpoint() *net.UDPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// BindEndpoint binds addr if no endpoint is bound yet and reports the
// endpoint that is bound afterwards. The first caller wins; later callers
// get the existing endpoint back and bound=false. A fresh binding starts
// unconfirmed.
func (s *Session) BindEndpoint(addr *net.UDPAddr) (current *net.UDPAddr, bound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endpoint != nil {
		return s.endpoint, false
	}
	s.endpoint = cloneAddr(addr)
	s.confirmed = false
	return s.endpoint, true
}

// ResetEndpoint clears the binding, for example after the client
// reconnects from a new address over TCP.
func (s *Session) ResetEndpoint() {
	s.mu.Lock()
	s.endpoint = nil
	s.confirmed = false
	s.mu.Unlock()
}

// Confirm marks the bound endpoint as confirmed by the session layer.
func (s *Session) Confirm() {
	s.mu.Lock()
	s.confirmed = true
	s.mu.Unlock()
}

// Confirmed reports whether the endpoint has been confirmed.
func (s *Session) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// SetPlayer associates the session with a persisted player ID.
func (s *Session) SetPlayer(id string) {
	s.mu.Lock()
	s.player = id
	s.mu.Unlock()
}

// Player returns the associated player ID.
func (s *Session) Player() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// Deliver hands pkt to the session's processor.
func (s *Session) Deliver(pkt *protocol.Packet) {
	s.lastSeen.Store(time.Now().UnixNano())
	if s.processor != nil {
		s.processor.HandlePacket(pkt)
	}
}

// SameEndpoint reports whether a and b are the same IP and port.
func SameEndpoint(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Port == b.Port && a.IP.Equal(b.IP) && a.Zone == b.Zone
}

func cloneAddr(a *net.UDPAddr) *net.UDPAddr {
	if a == nil {
		return nil
	}
	ip := make(net.IP, len(a.IP))
	copy(ip, a.IP)
	return &net.UDPAddr{IP: ip, Port: a.Port, Zone: a.Zone}
}
