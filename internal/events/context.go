package events

import "context"

type (
	sessionIDKey struct{}
	sourceKey    struct{}
)

// ContextWithSessionID returns a new context carrying the session ID.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext extracts the session ID from the context, or "" if absent.
func SessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}

// ContextWithSource records which surface a request arrived through.
func ContextWithSource(ctx context.Context, src EventSource) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFromContext returns the source recorded in ctx, or fallback.
func SourceFromContext(ctx context.Context, fallback EventSource) EventSource {
	if src, ok := ctx.Value(sourceKey{}).(EventSource); ok {
		return src
	}
	return fallback
}

// NewContextEvent builds a typed event stamped with the session and source
// carried by ctx.
func NewContextEvent(ctx context.Context, fallback EventSource, payload EventPayload) Event {
	return NewTypedEventWithSession(SourceFromContext(ctx, fallback), payload, SessionIDFromContext(ctx))
}
