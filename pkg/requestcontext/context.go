// Package requestcontext carries request-scoped values (the authenticated
// caller, the request id and the request clock) without importing net/http.
// Middleware writes them, services read them.
package requestcontext

import (
	"context"
	"time"

	id "tipjar/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Caller returns the authenticated wallet. ok is false when the request
// carried no token or the identity is the zero address.
func Caller(ctx context.Context) (id.Identity, bool) {
	caller, ok := ctx.Value(callerKey{}).(id.Identity)
	if !ok || caller.IsNil() {
		return id.Identity{}, false
	}
	return caller, true
}

func WithCaller(ctx context.Context, caller id.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// RequestID returns the id minted by the request middleware, or "".
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDKey{}).(string)
	return reqID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the time stamped on the request. Outside a request (startup,
// workers) it is the wall clock in UTC.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

// WithTime pins the clock seen by everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
