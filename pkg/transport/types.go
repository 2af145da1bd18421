package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"emberhold/realmd/pkg/bufpool"
	"emberhold/realmd/pkg/config"
	"emberhold/realmd/pkg/protocol"
)

// ErrPipelineClosed is returned by Bind after Close.
var ErrPipelineClosed = errors.New("udp pipeline is closed")

// DropReason says why a datagram was not delivered.
type DropReason string

// Drop reasons, in the order the checks run.
const (
	DropClosed           DropReason = "closed"
	DropEmpty            DropReason = "empty"
	DropChecksum         DropReason = "checksum"
	DropMalformed        DropReason = "malformed"
	DropUnknownSession   DropReason = "unknown_session"
	DropEndpointMismatch DropReason = "endpoint_mismatch"
	DropPanic            DropReason = "panic"
)

var dropReasons = []DropReason{
	DropClosed, DropEmpty, DropChecksum, DropMalformed,
	DropUnknownSession, DropEndpointMismatch, DropPanic,
}

// Session is the part of a session the pipeline touches.
type Session interface {
	// BindEndpoint binds addr if nothing is bound yet and returns the
	// endpoint bound afterwards.
	BindEndpoint(addr *net.UDPAddr) (current *net.UDPAddr, bound bool)

	// Deliver hands a verified packet to the session.
	Deliver(pkt *protocol.Packet)
}

// SessionRegistry resolves session IDs carried in datagram headers.
type SessionRegistry interface {
	LookupSession(id uint16) (Session, bool)
}

// SessionLookupFunc adapts a function into a SessionRegistry.
type SessionLookupFunc func(id uint16) (Session, bool)

// LookupSession implements SessionRegistry.
func (f SessionLookupFunc) LookupSession(id uint16) (Session, bool) { return f(id) }

// BufferSource lends receive buffers. *bufpool.Pool satisfies it.
type BufferSource interface {
	Acquire() *bufpool.Buffer
	Release(buf *bufpool.Buffer)
}

// StatusSource reports whether the server accepts traffic.
type StatusSource interface {
	IsOpen() bool
}

// StatusFunc adapts a function into a StatusSource.
type StatusFunc func() bool

// IsOpen implements StatusSource.
func (f StatusFunc) IsOpen() bool { return f() }

// Observer receives datagram counters. *metrics.Collector satisfies it.
type Observer interface {
	RecordDatagramReceived()
	RecordDatagramDropped(reason string)
	RecordDatagramDelivered()
	RecordSend(result string, duration time.Duration)
}

// Config is the resolved pipeline configuration.
type Config struct {
	ListenAddress     string
	OutboundAddress   string
	SocketReadBuffer  int
	SendQueueSize     int
	SendWarnThreshold time.Duration
	Checksum          protocol.Checksum
}

// ConfigFrom resolves cfg into a pipeline Config.
func ConfigFrom(cfg *config.UDPConfig) (Config, error) {
	cs, err := protocol.LookupChecksum(cfg.Checksum)
	if err != nil {
		return Config{}, fmt.Errorf("udp checksum: %w", err)
	}
	return Config{
		ListenAddress:     cfg.ListenAddress,
		OutboundAddress:   cfg.OutboundAddress,
		SocketReadBuffer:  cfg.SocketReadBuffer,
		SendQueueSize:     cfg.SendQueueSize,
		SendWarnThreshold: cfg.SendWarnThreshold,
		Checksum:          cs,
	}, nil
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Received    uint64
	Delivered   uint64
	Dropped     map[DropReason]uint64
	Sent        uint64
	SendDropped uint64
	InFlight    int64
}

// TotalDropped sums Dropped over every reason.
func (s Stats) TotalDropped() uint64 {
	var n uint64
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

type outbound struct {
	data []byte
	dst  *net.UDPAddr
}

func sameAddr(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Port == b.Port && a.IP.Equal(b.IP) && a.Zone == b.Zone
}
