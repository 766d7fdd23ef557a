package correlation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Header is the HTTP header used to propagate a request's correlation ID.
const Header = "X-Request-ID"

const maxInboundLen = 64

type contextKey struct{}

// NewID generates a 16-character hex correlation ID.
func NewID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromInbound returns the caller-supplied ID when it is short and made of
// safe characters, otherwise a fresh ID.
func FromInbound(v string) string {
	if v == "" || len(v) > maxInboundLen {
		return NewID()
	}
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return NewID()
		}
	}
	return v
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ID extracts the correlation ID from ctx, returning ("", false) if not present.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// Detach returns a background context that keeps ctx's correlation ID.
// Used for work that outlives the request, such as auto-replies.
func Detach(ctx context.Context) context.Context {
	if id, ok := ID(ctx); ok {
		return WithID(context.Background(), id)
	}
	return context.Background()
}

// Handler is a slog.Handler that adds "correlation_id" to every record
// whose context carries one.
type Handler struct {
	inner slog.Handler
}

func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
