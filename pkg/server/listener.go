package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ConnectionHandler takes ownership of an accepted TCP connection. The
// context is cancelled when the server stops.
type ConnectionHandler interface {
	HandleConn(ctx context.Context, conn net.Conn)
}

// ConnectionHandlerFunc adapts a function to ConnectionHandler.
type ConnectionHandlerFunc func(ctx context.Context, conn net.Conn)

func (f ConnectionHandlerFunc) HandleConn(ctx context.Context, conn net.Conn) { f(ctx, conn) }

// acceptor runs the TCP accept loop. Connections arriving while the server
// is not open are closed immediately.
type acceptor struct {
	ln      net.Listener
	handler ConnectionHandler
	open    func() bool
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newAcceptor(ln net.Listener, handler ConnectionHandler, open func() bool, logger *slog.Logger) *acceptor {
	return &acceptor{
		ln:      ln,
		handler: handler,
		open:    open,
		logger:  logger,
	}
}

func (a *acceptor) start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.serve(ctx)
}

func (a *acceptor) serve(ctx context.Context) {
	defer close(a.done)

	var delay time.Duration
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}
			a.logger.Error("accept failed", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		if !a.open() || a.handler == nil {
			conn.Close()
			continue
		}
		go a.handler.HandleConn(ctx, conn)
	}
}

// close stops accepting and waits for the loop to exit. It is safe to call
// on an acceptor that was never started.
func (a *acceptor) close() error {
	var err error
	a.once.Do(func() {
		err = a.ln.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
		if a.cancel != nil {
			a.cancel()
			<-a.done
		}
	})
	return err
}
