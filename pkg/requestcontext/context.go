// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; handlers and services only read them. Keeping
// the package free of net/http lets services import it without pulling in
// transport code.
//
// Usage in services (read values):
//
//	identity, ok := requestcontext.Identity(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithIdentity(ctx, testIdentity)
package requestcontext

import (
	"context"
	"time"

	id "policygate/pkg/domain"
)

// UserIdentity is the typed identity extracted from a validated token. It
// replaces re-parsing loose claim maps at each call site.
type UserIdentity struct {
	UserID id.UserID
	Email  string
	Name   string
	Role   id.Role
}

type (
	identityKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Identity retrieves the authenticated identity from the context. The second
// return is false when no auth middleware ran.
func Identity(ctx context.Context) (UserIdentity, bool) {
	ident, ok := ctx.Value(identityKey{}).(UserIdentity)
	return ident, ok
}

// WithIdentity injects an authenticated identity into the context.
func WithIdentity(ctx context.Context, ident UserIdentity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// RequestID retrieves the request correlation id, or "" if unset.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}

// WithRequestID injects a request correlation id into the context.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// Now returns the request time if one was injected, else time.Now(). Tests
// pin the clock with WithTime so timestamps are deterministic.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
