package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// BootIDKey is the context key for the per-run boot identifier.
	BootIDKey contextKey = "boot_id"

	// StepKey is the context key for the current startup or shutdown step.
	StepKey contextKey = "step"

	// SessionKey is the context key for session identifiers.
	SessionKey contextKey = "session_id"

	// RemoteAddrKey is the context key for a client's network endpoint.
	RemoteAddrKey contextKey = "remote_addr"
)

// WithBootID adds the boot identifier to the context.
func WithBootID(ctx context.Context, bootID string) context.Context {
	return context.WithValue(ctx, BootIDKey, bootID)
}

// GetBootID retrieves the boot identifier from the context.
func GetBootID(ctx context.Context) string {
	if id, ok := ctx.Value(BootIDKey).(string); ok {
		return id
	}
	return ""
}

// WithStep adds the name of the running lifecycle step to the context.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, StepKey, step)
}

// GetStep retrieves the lifecycle step from the context.
func GetStep(ctx context.Context) string {
	if step, ok := ctx.Value(StepKey).(string); ok {
		return step
	}
	return ""
}

// WithSessionID adds a session identifier to the context.
func WithSessionID(ctx context.Context, id uint16) context.Context {
	return context.WithValue(ctx, SessionKey, id)
}

// GetSessionID retrieves the session identifier from the context.
func GetSessionID(ctx context.Context) (uint16, bool) {
	id, ok := ctx.Value(SessionKey).(uint16)
	return id, ok
}

// WithRemoteAddr adds a client endpoint to the context.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}

// GetRemoteAddr retrieves the client endpoint from the context.
func GetRemoteAddr(ctx context.Context) string {
	if addr, ok := ctx.Value(RemoteAddrKey).(string); ok {
		return addr
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
func extractContextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr

	if id := GetBootID(ctx); id != "" {
		fields = append(fields, slog.String(string(BootIDKey), id))
	}
	if step := GetStep(ctx); step != "" {
		fields = append(fields, slog.String(string(StepKey), step))
	}
	if id, ok := GetSessionID(ctx); ok {
		fields = append(fields, slog.Int(string(SessionKey), int(id)))
	}
	if addr := GetRemoteAddr(ctx); addr != "" {
		fields = append(fields, slog.String(string(RemoteAddrKey), addr))
	}

	return fields
}
