package middleware

import (
	"context"

	"golang.org/x/text/language"
)

// context keys are unexported to avoid collisions
type ctxKey string

const (
	ctxKeyHTMX    ctxKey = "htmx"
	ctxKeySession ctxKey = "session"
	ctxKeyLocale  ctxKey = "locale"
)

// WithHTMX attaches the htmx request details.
func WithHTMX(ctx context.Context, h *HTMXRequest) context.Context {
	return context.WithValue(ctx, ctxKeyHTMX, h)
}

// HTMXFromContext returns the htmx details when the request came from htmx.
func HTMXFromContext(ctx context.Context) (*HTMXRequest, bool) {
	h, ok := ctx.Value(ctxKeyHTMX).(*HTMXRequest)
	return h, ok && h != nil
}

// IsHTMX reports whether the request came from htmx.
func IsHTMX(ctx context.Context) bool {
	_, ok := HTMXFromContext(ctx)
	return ok
}

// WithSession stores session data in context
func WithSession(ctx context.Context, s *SessionData) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

// SessionFromContext returns the session attached by Sessions.Middleware, if any.
func SessionFromContext(ctx context.Context) (*SessionData, bool) {
	s, ok := ctx.Value(ctxKeySession).(*SessionData)
	return s, ok && s != nil
}

// WithLocale stores the negotiated display locale.
func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKeyLocale, tag)
}
