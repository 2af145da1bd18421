package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithBootID(ctx, "b-123")
	if got := GetBootID(ctx); got != "b-123" {
		t.Errorf("GetBootID() = %q, want %q", got, "b-123")
	}

	ctx = WithStep(ctx, "CheckDatabaseVersion")
	if got := GetStep(ctx); got != "CheckDatabaseVersion" {
		t.Errorf("GetStep() = %q, want %q", got, "CheckDatabaseVersion")
	}

	ctx = WithSessionID(ctx, 7)
	if got, ok := GetSessionID(ctx); !ok || got != 7 {
		t.Errorf("GetSessionID() = %d, %v, want 7, true", got, ok)
	}

	ctx = WithRemoteAddr(ctx, "10.0.0.1:5000")
	if got := GetRemoteAddr(ctx); got != "10.0.0.1:5000" {
		t.Errorf("GetRemoteAddr() = %q, want %q", got, "10.0.0.1:5000")
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()

	if got := GetBootID(ctx); got != "" {
		t.Errorf("GetBootID() = %q, want empty", got)
	}
	if _, ok := GetSessionID(ctx); ok {
		t.Error("GetSessionID() reported a value on an empty context")
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}
}

func TestExtractContextFields_Order(t *testing.T) {
	ctx := WithSessionID(WithBootID(context.Background(), "b"), 3)

	fields := extractContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != "boot_id" || fields[1].Key != "session_id" {
		t.Errorf("unexpected field order: %v", fields)
	}
}
