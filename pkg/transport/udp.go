package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"emberhold/realmd/pkg/bufpool"
	"emberhold/realmd/pkg/protocol"
)

const (
	defaultSendQueueSize     = 1024
	defaultSendWarnThreshold = 100 * time.Millisecond
	defaultDrainTimeout      = 5 * time.Second
)

// Option configures a UDPPipeline.
type Option func(*UDPPipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *UDPPipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver reports datagram counters to o.
func WithObserver(o Observer) Option {
	return func(p *UDPPipeline) {
		p.observer = o
	}
}

// WithDrainTimeout bounds how long Close waits for in-flight handlers.
func WithDrainTimeout(d time.Duration) Option {
	return func(p *UDPPipeline) {
		if d > 0 {
			p.drainTimeout = d
		}
	}
}

// UDPPipeline receives datagrams, verifies them and routes them to sessions.
// It also owns the outbound socket used by Send.
type UDPPipeline struct {
	cfg      Config
	registry SessionRegistry
	pool     BufferSource
	status   StatusSource
	logger   *slog.Logger
	observer Observer

	mu  sync.Mutex
	in  *net.UDPConn
	out *net.UDPConn

	sendq chan outbound
	done  chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once

	loops        sync.WaitGroup
	handlers     sync.WaitGroup
	drainTimeout time.Duration

	inFlight    atomic.Int64
	received    atomic.Uint64
	delivered   atomic.Uint64
	sent        atomic.Uint64
	sendDropped atomic.Uint64
	dropped     map[DropReason]*atomic.Uint64
}

// NewUDPPipeline creates an unbound pipeline.
func NewUDPPipeline(cfg Config, registry SessionRegistry, pool BufferSource, status StatusSource, opts ...Option) *UDPPipeline {
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}
	if cfg.SendWarnThreshold <= 0 {
		cfg.SendWarnThreshold = defaultSendWarnThreshold
	}
	if cfg.Checksum == nil {
		cfg.Checksum = protocol.Fletcher7E{}
	}
	if pool == nil {
		pool = bufpool.New(0, bufpool.DefaultBufferSize)
	}
	if status == nil {
		status = StatusFunc(func() bool { return true })
	}

	p := &UDPPipeline{
		cfg:          cfg,
		registry:     registry,
		pool:         pool,
		status:       status,
		logger:       slog.Default().With("component", "transport.udp"),
		sendq:        make(chan outbound, cfg.SendQueueSize),
		done:         make(chan struct{}),
		drainTimeout: defaultDrainTimeout,
		dropped:      make(map[DropReason]*atomic.Uint64, len(dropReasons)),
	}
	for _, r := range dropReasons {
		p.dropped[r] = &atomic.Uint64{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Bind opens the inbound and outbound sockets and starts the receive and
// send loops.
func (p *UDPPipeline) Bind(ctx context.Context) error {
	if p.closed.Load() {
		return ErrPipelineClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.in != nil {
		return fmt.Errorf("udp pipeline already bound to %s", p.in.LocalAddr())
	}

	in, err := listenUDP(ctx, p.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP %s: %w", p.cfg.ListenAddress, err)
	}
	if p.cfg.SocketReadBuffer > 0 {
		if err := in.SetReadBuffer(p.cfg.SocketReadBuffer); err != nil {
			p.logger.Warn("failed to set UDP read buffer size",
				"buffer_size", p.cfg.SocketReadBuffer,
				"error", err)
		}
	}

	outAddr := p.cfg.OutboundAddress
	if outAddr == "" {
		outAddr = ":0"
	}
	out, err := listenUDP(ctx, outAddr)
	if err != nil {
		in.Close()
		return fmt.Errorf("failed to bind outbound UDP %s: %w", outAddr, err)
	}

	p.in, p.out = in, out

	p.loops.Add(2)
	go p.receiveLoop(in)
	go p.sendLoop(out)

	p.logger.Info("UDP pipeline started",
		"address", in.LocalAddr().String(),
		"outbound", out.LocalAddr().String(),
		"checksum", p.cfg.Checksum.Name(),
	)
	return nil
}

func listenUDP(ctx context.Context, address string) (*net.UDPConn, error) {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", address)
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", pc)
	}
	return conn, nil
}

// receiveLoop reads one datagram per pool buffer and hands it to a handler
// goroutine, then immediately re-arms.
func (p *UDPPipeline) receiveLoop(conn *net.UDPConn) {
	defer p.loops.Done()

	var delay time.Duration
	for {
		buf := p.pool.Acquire()
		n, addr, err := conn.ReadFromUDP(buf.Bytes())
		if err != nil {
			p.pool.Release(buf)
			if errors.Is(err, net.ErrClosed) || p.closed.Load() {
				return
			}
			delay = nextBackoff(delay)
			p.logger.Error("failed to read UDP datagram", "error", err, "retry_in", delay)
			select {
			case <-p.done:
				return
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		p.handlers.Add(1)
		p.inFlight.Add(1)
		go p.handle(buf, n, addr)
	}
}

// nextBackoff doubles the read retry delay from 5ms up to one second.
func nextBackoff(delay time.Duration) time.Duration {
	if delay == 0 {
		return 5 * time.Millisecond
	}
	if delay *= 2; delay > time.Second {
		return time.Second
	}
	return delay
}

func (p *UDPPipeline) handle(buf *bufpool.Buffer, n int, addr *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while handling UDP datagram",
				"remote_addr", addr.String(),
				"panic", r,
				"stack", string(debug.Stack()))
			p.drop(DropPanic)
		}
		p.pool.Release(buf)
		p.inFlight.Add(-1)
		p.handlers.Done()
	}()

	p.received.Add(1)
	if p.observer != nil {
		p.observer.RecordDatagramReceived()
	}

	reason, ok := p.route(buf, buf.Bytes()[:n], addr)
	if !ok {
		p.drop(reason)
		return
	}

	p.delivered.Add(1)
	if p.observer != nil {
		p.observer.RecordDatagramDelivered()
	}
}

// route runs the datagram checks in order and delivers the packet when all
// of them pass.
func (p *UDPPipeline) route(buf *bufpool.Buffer, data []byte, addr *net.UDPAddr) (DropReason, bool) {
	if !p.status.IsOpen() {
		return DropClosed, false
	}

	if len(data) == 0 {
		p.logger.Debug("UDP received bytes = 0", "remote_addr", addr.String())
		return DropEmpty, false
	}

	pak, calc, ok := protocol.Verify(data, p.cfg.Checksum)
	if !ok {
		p.logger.Warn("bad UDP packet checksum, ignored",
			"packet", fmt.Sprintf("0x%04X", pak),
			"calculated", fmt.Sprintf("0x%04X", calc),
			"remote_addr", addr.String())
		if p.logger.Enabled(context.Background(), slog.LevelDebug) {
			p.logger.Debug("UDP buffer dump", "bytes", len(data), "dump", protocol.HexDump(data))
		}
		return DropChecksum, false
	}

	pkt, err := protocol.Decode(data)
	if err != nil {
		p.logger.Debug("malformed UDP datagram", "remote_addr", addr.String(), "error", err)
		return DropMalformed, false
	}
	pkt.OnRetain = buf.Retain

	var sess Session
	if p.registry != nil {
		sess, ok = p.registry.LookupSession(pkt.SessionID)
	}
	if !ok || sess == nil {
		p.logger.Error("UDP packet from invalid session id or address",
			"session_id", pkt.SessionID,
			"remote_addr", addr.String(),
			"code", fmt.Sprintf("0x%02X", pkt.Code))
		return DropUnknownSession, false
	}

	bound, fresh := sess.BindEndpoint(addr)
	if fresh {
		p.logger.Debug("bound UDP endpoint", "session_id", pkt.SessionID, "remote_addr", addr.String())
	}
	if !sameAddr(bound, addr) {
		p.logger.Debug("UDP endpoint mismatch",
			"session_id", pkt.SessionID,
			"remote_addr", addr.String(),
			"bound", bound.String())
		return DropEndpointMismatch, false
	}

	sess.Deliver(pkt)
	return "", true
}

func (p *UDPPipeline) drop(reason DropReason) {
	if c, ok := p.dropped[reason]; ok {
		c.Add(1)
	}
	if p.observer != nil {
		p.observer.RecordDatagramDropped(string(reason))
	}
}

// Send queues n bytes of b for delivery to dst. It never blocks: a full
// queue drops the datagram with a warning, and sends after Close are
// ignored.
func (p *UDPPipeline) Send(b []byte, n int, dst *net.UDPAddr) {
	if p.closed.Load() || dst == nil {
		return
	}
	if n < 0 || n > len(b) {
		n = len(b)
	}
	data := make([]byte, n)
	copy(data, b[:n])

	select {
	case p.sendq <- outbound{data: data, dst: dst}:
	default:
		p.sendDropped.Add(1)
		p.logger.Warn("UDP send queue full, dropping datagram",
			"remote_addr", dst.String(),
			"bytes", n,
			"queue_size", cap(p.sendq))
		if p.observer != nil {
			p.observer.RecordSend("queue_full", 0)
		}
	}
}

func (p *UDPPipeline) sendLoop(conn *net.UDPConn) {
	defer p.loops.Done()

	for {
		select {
		case <-p.done:
			return
		case m := <-p.sendq:
			p.write(conn, m)
		}
	}
}

func (p *UDPPipeline) write(conn *net.UDPConn, m outbound) {
	start := time.Now()
	_, err := conn.WriteToUDP(m.data, m.dst)
	elapsed := time.Since(start)

	result := "ok"
	switch {
	case err == nil:
		p.sent.Add(1)
	case errors.Is(err, net.ErrClosed):
		return
	default:
		result = "error"
		p.logger.Error("UDP send failed", "remote_addr", m.dst.String(), "error", err)
	}

	if elapsed > p.cfg.SendWarnThreshold {
		p.logger.Warn("UDP send took too long",
			"duration", elapsed,
			"threshold", p.cfg.SendWarnThreshold,
			"remote_addr", m.dst.String())
	}
	if p.observer != nil {
		p.observer.RecordSend(result, elapsed)
	}
}

// Close closes both sockets and waits for the loops to exit and for
// in-flight handlers to finish, up to the drain timeout. It is safe to call
// more than once and before Bind.
func (p *UDPPipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.done)

		p.mu.Lock()
		in, out := p.in, p.out
		p.mu.Unlock()

		if in != nil {
			if cerr := in.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
				err = cerr
			}
		}
		if out != nil {
			if cerr := out.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
				err = cerr
			}
		}

		p.loops.Wait()

		drained := make(chan struct{})
		go func() {
			p.handlers.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(p.drainTimeout):
			p.logger.Warn("UDP handlers still running after close", "in_flight", p.inFlight.Load())
		}

		stats := p.Stats()
		p.logger.Info("UDP pipeline stopped",
			"received", stats.Received,
			"delivered", stats.Delivered,
			"dropped", stats.TotalDropped(),
			"sent", stats.Sent)
	})
	return err
}

// LocalAddr returns the inbound socket address, or nil before Bind.
func (p *UDPPipeline) LocalAddr() *net.UDPAddr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.in == nil {
		return nil
	}
	return p.in.LocalAddr().(*net.UDPAddr)
}

// OutboundAddr returns the outbound socket address, or nil before Bind.
func (p *UDPPipeline) OutboundAddr() *net.UDPAddr {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return nil
	}
	return p.out.LocalAddr().(*net.UDPAddr)
}

// InFlight returns the number of datagram handlers currently running.
func (p *UDPPipeline) InFlight() int64 {
	return p.inFlight.Load()
}

// Stats returns a snapshot of the pipeline counters.
func (p *UDPPipeline) Stats() Stats {
	s := Stats{
		Received:    p.received.Load(),
		Delivered:   p.delivered.Load(),
		Sent:        p.sent.Load(),
		SendDropped: p.sendDropped.Load(),
		InFlight:    p.inFlight.Load(),
		Dropped:     make(map[DropReason]uint64, len(p.dropped)),
	}
	for r, c := range p.dropped {
		s.Dropped[r] = c.Load()
	}
	return s
}
