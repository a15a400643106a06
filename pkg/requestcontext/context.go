// Package requestcontext provides HTTP-independent accessors for
// request-scoped values.
//
// Middleware sets values, services read them. The package stays free of
// net/http so services and the scheduler sweep can import it without pulling
// in transport code. Actor identity is always threaded explicitly through
// context rather than held in any ambient global - the audit ledger's
// attribution invariant depends on it holding under concurrent and
// scheduler-driven callers.
//
// Usage in services (read values):
//
//	actorID := requestcontext.ActorID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithActorID(ctx, actorID)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "disciplina/pkg/domain"
)

type (
	actorIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// ActorID retrieves the authenticated actor's employee ID from the context.
// Returns the zero value (nil UUID) if not set.
func ActorID(ctx context.Context) id.EmployeeID {
	if actorID, ok := ctx.Value(actorIDKey{}).(id.EmployeeID); ok {
		return actorID
	}
	return id.EmployeeID{}
}

// WithActorID injects an actor employee ID into the context.
func WithActorID(ctx context.Context, actorID id.EmployeeID) context.Context {
	return context.WithValue(ctx, actorIDKey{}, actorID)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI, tests that don't care).
// Deadline guards evaluate against this, which is what makes "elapsed"
// simulatable in tests without real time passing.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
