package bufpool

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the size of every pooled receive buffer.
const DefaultBufferSize = 2048

// minExtraBuffers is the floor of the headroom added on top of three
// buffers per client.
const minExtraBuffers = 30

// CountFor returns the number of buffers preallocated for maxClients:
// three per client plus max(30, 3/8 of that base).
func CountFor(maxClients int) int {
	if maxClients < 0 {
		maxClients = 0
	}
	count := maxClients * 3
	return count + max(minExtraBuffers, count*3/8)
}

// Buffer is a fixed-size byte block lent out by a Pool. A caller holds it
// for the duration of one datagram and gives it back with Pool.Release.
type Buffer struct {
	data     []byte
	retained atomic.Bool
}

// Bytes returns the full backing slice of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the buffer size.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Retain marks the buffer as referenced beyond the current datagram. A
// retained buffer is dropped by Release instead of being recycled, so a
// consumer that keeps the bytes never sees them overwritten.
func (b *Buffer) Retain() {
	b.retained.Store(true)
}

// Retained reports whether Retain was called.
func (b *Buffer) Retained() bool {
	return b.retained.Load()
}

// Observer receives pool gauges. *metrics.Collector satisfies it.
type Observer interface {
	SetPoolAvailable(n int)
	RecordPoolMiss()
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for capacity warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver reports pool depth and misses to o.
func WithObserver(o Observer) Option {
	return func(p *Pool) {
		p.observer = o
	}
}

// Pool is a bounded, thread-safe pool of equally sized receive buffers.
// Acquire never blocks: an empty pool allocates. Release never grows the
// pool past the number of buffers allocated up front.
type Pool struct {
	mu       sync.Mutex
	free     []*Buffer
	size     int
	capacity int

	misses   atomic.Uint64
	logger   *slog.Logger
	observer Observer
}

// New preallocates count buffers of size bytes each.
func New(count, size int, opts ...Option) *Pool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if count < 0 {
		count = 0
	}

	p := &Pool{
		free:     make([]*Buffer, 0, count),
		size:     size,
		capacity: count,
		logger:   slog.Default().With("component", "bufpool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < count; i++ {
		p.free = append(p.free, &Buffer{data: make([]byte, size)})
	}

	p.logger.Debug("allocated packet buffers", "count", count, "size", size)
	p.report(count)

	return p
}

// Acquire removes one buffer from the pool. If the pool is empty it logs a
// capacity warning and returns a freshly allocated buffer.
func (p *Pool) Acquire() *Buffer {
	p.mu.Lock()
	n := len(p.free)
	if n > 0 {
		buf := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.mu.Unlock()

		p.report(n - 1)
		return buf
	}
	p.mu.Unlock()

	p.misses.Add(1)
	p.logger.Warn("packet buffer pool is empty, allocating", "capacity", p.capacity)
	if p.observer != nil {
		p.observer.RecordPoolMiss()
	}
	return &Buffer{data: make([]byte, p.size)}
}

// Release returns buf to the pool. Nil, wrongly sized and retained buffers
// are dropped, as are buffers that would push the pool past its capacity.
func (p *Pool) Release(buf *Buffer) {
	if buf == nil || len(buf.data) != p.size || buf.Retained() {
		return
	}

	p.mu.Lock()
	if len(p.free) >= p.capacity {
		p.mu.Unlock()
		return
	}
	p.free = append(p.free, buf)
	n := len(p.free)
	p.mu.Unlock()

	p.report(n)
}

// Size reports the number of idle buffers.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Capacity reports the number of buffers allocated up front.
func (p *Pool) Capacity() int {
	return p.capacity
}

// BufferSize reports the size of each buffer.
func (p *Pool) BufferSize() int {
	return p.size
}

// Misses reports how many acquisitions found the pool empty.
func (p *Pool) Misses() uint64 {
	return p.misses.Load()
}

func (p *Pool) report(n int) {
	if p.observer != nil {
		p.observer.SetPoolAvailable(n)
	}
}
