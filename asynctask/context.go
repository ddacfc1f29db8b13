package asynctask

import "context"

type ctxKey struct{}

// WithContext attaches a batch Manager to ctx, the way the HTTP handler for
// a feed refresh stashes its per-request Manager before fanning fetches out
// across goroutines that only have the request context to work with.
func WithContext(ctx context.Context, manager *Manager) context.Context {
	return context.WithValue(ctx, ctxKey{}, manager)
}

// FromContext retrieves the Manager attached by WithContext. If none is
// attached it falls back to a fresh default Manager rather than panicking,
// since a missing Manager most likely means a handler is being exercised
// directly in a test without the usual middleware setup.
func FromContext(ctx context.Context) *Manager {
	if manager, ok := ctx.Value(ctxKey{}).(*Manager); ok {
		return manager
	}
	return NewManager()
}
