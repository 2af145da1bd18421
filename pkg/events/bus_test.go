package events

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestBus_NotifyOrder(t *testing.T) {
	bus := NewBus(nil)
	var order []string

	bus.Subscribe(Started, "first", func(ctx context.Context, e Event, sender, args any) {
		order = append(order, "first")
	})
	bus.Register(
		Registration{Event: Started, Name: "second", Handler: func(ctx context.Context, e Event, sender, args any) {
			order = append(order, "second")
		}},
		Registration{Event: Stopped, Name: "other", Handler: func(ctx context.Context, e Event, sender, args any) {
			order = append(order, "other")
		}},
	)

	if n := bus.Notify(context.Background(), Started, nil, nil); n != 2 {
		t.Errorf("Notify ran %d handlers, want 2", n)
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("order = %v", order)
	}
}

func TestBus_PanicIsolated(t *testing.T) {
	logs := &bytes.Buffer{}
	bus := NewBus(slog.New(slog.NewTextHandler(logs, nil)))
	ran := false

	bus.Subscribe(WorldSave, "boom", func(ctx context.Context, e Event, sender, args any) {
		panic("handler exploded")
	})
	bus.Subscribe(WorldSave, "after", func(ctx context.Context, e Event, sender, args any) {
		ran = true
	})

	if n := bus.Notify(context.Background(), WorldSave, nil, 12); n != 1 {
		t.Errorf("Notify = %d, want 1", n)
	}
	if !ran {
		t.Error("handler after the panicking one did not run")
	}
	if !strings.Contains(logs.String(), "handler exploded") {
		t.Errorf("panic not logged: %s", logs.String())
	}
}

func TestBus_Args(t *testing.T) {
	bus := NewBus(nil)
	var gotSender, gotArgs any

	bus.Subscribe(WorldSave, "capture", func(ctx context.Context, e Event, sender, args any) {
		gotSender, gotArgs = sender, args
	})
	bus.Notify(context.Background(), WorldSave, "server", 42)

	if gotSender != "server" || gotArgs != 42 {
		t.Errorf("sender=%v args=%v", gotSender, gotArgs)
	}
}

func TestBus_RemoveAll(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe(Started, "a", func(context.Context, Event, any, any) {})
	bus.Subscribe(Stopped, "b", func(context.Context, Event, any, any) {})
	bus.Subscribe(Stopped, "nil", nil)

	if bus.Count(Stopped) != 1 {
		t.Errorf("Count(Stopped) = %d, want 1", bus.Count(Stopped))
	}

	bus.RemoveAll()
	if bus.Count(Started)+bus.Count(Stopped) != 0 {
		t.Error("handlers left after RemoveAll")
	}
	if n := bus.Notify(context.Background(), Started, nil, nil); n != 0 {
		t.Errorf("Notify after RemoveAll ran %d handlers", n)
	}
}
