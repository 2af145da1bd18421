package events

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Event names a lifecycle notification.
type Event string

// Lifecycle events raised by the server.
const (
	Started         Event = "server.started"
	Stopped         Event = "server.stopped"
	WorldSave       Event = "world.save"
	ScriptsLoaded   Event = "scripts.loaded"
	ScriptsUnloaded Event = "scripts.unloaded"
	ScriptsChanged  Event = "scripts.changed"
)

// Handler reacts to an event. sender is the raising component and args is
// event-specific (nil for most lifecycle events).
type Handler func(ctx context.Context, e Event, sender, args any)

// Registration binds a handler to an event. Script components return a list
// of these at startup.
type Registration struct {
	Event   Event
	Name    string
	Handler Handler
}

type entry struct {
	name    string
	handler Handler
}

// Bus dispatches lifecycle events to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Event][]entry
	logger   *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default().With("component", "events")
	}
	return &Bus{
		handlers: make(map[Event][]entry),
		logger:   logger,
	}
}

// Subscribe adds h for e. Handlers run in subscription order.
func (b *Bus) Subscribe(e Event, name string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers[e] = append(b.handlers[e], entry{name: name, handler: h})
	b.mu.Unlock()
}

// Register subscribes every registration in order.
func (b *Bus) Register(regs ...Registration) {
	for _, r := range regs {
		b.Subscribe(r.Event, r.Name, r.Handler)
	}
}

// Notify runs the handlers for e synchronously and returns how many ran
// without panicking. A panicking handler is logged and skipped.
func (b *Bus) Notify(ctx context.Context, e Event, sender, args any) int {
	b.mu.RLock()
	list := append([]entry(nil), b.handlers[e]...)
	b.mu.RUnlock()

	ok := 0
	for _, en := range list {
		if err := b.invoke(ctx, e, en, sender, args); err != nil {
			b.logger.Error("event handler panicked",
				"event", string(e),
				"handler", en.name,
				"error", err)
			continue
		}
		ok++
	}
	return ok
}

func (b *Bus) invoke(ctx context.Context, e Event, en entry, sender, args any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v\n%s", r, debug.Stack())
		}
	}()
	en.handler(ctx, e, sender, args)
	return nil
}

// Count returns the number of handlers subscribed to e.
func (b *Bus) Count(e Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[e])
}

// RemoveAll drops every handler.
func (b *Bus) RemoveAll() {
	b.mu.Lock()
	b.handlers = make(map[Event][]entry)
	b.mu.Unlock()
}
