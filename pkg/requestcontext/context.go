// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the acting identity (actor id, role, table) resolved from the
// actor token; services read them back without importing net/http.
//
// Usage in services (read values):
//
//	role := requestcontext.ActorRole(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithActor(ctx, actorID, "kitchen", "")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "dinein/pkg/domain"
)

type (
	actorIDKey     struct{}
	actorRoleKey   struct{}
	tableIDKey     struct{}
	customerIDKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyActorRole   = actorRoleKey{}
	ContextKeyTableID     = tableIDKey{}
	ContextKeyCustomerID  = customerIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Actor context
// -----------------------------------------------------------------------------

// ActorID returns the acting user, or the nil ID for anonymous guests.
func ActorID(ctx context.Context) id.ActorID {
	if v, ok := ctx.Value(ContextKeyActorID).(id.ActorID); ok {
		return v
	}
	return id.ActorID{}
}

// ActorRole returns the raw role string supplied by the auth collaborator.
func ActorRole(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyActorRole).(string); ok {
		return v
	}
	return ""
}

// TableID returns the table a guest session is bound to, if any.
func TableID(ctx context.Context) id.TableID {
	if v, ok := ctx.Value(ContextKeyTableID).(id.TableID); ok {
		return v
	}
	return ""
}

// CustomerID returns the authenticated guest's customer ID, if any.
func CustomerID(ctx context.Context) id.CustomerID {
	if v, ok := ctx.Value(ContextKeyCustomerID).(id.CustomerID); ok {
		return v
	}
	return id.CustomerID{}
}

// WithActor injects the acting identity into the context.
func WithActor(ctx context.Context, actorID id.ActorID, role string, tableID id.TableID) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActorID, actorID)
	ctx = context.WithValue(ctx, ContextKeyActorRole, role)
	if tableID != "" {
		ctx = context.WithValue(ctx, ContextKeyTableID, tableID)
	}
	return ctx
}

// WithCustomerID injects the authenticated guest's customer ID.
func WithCustomerID(ctx context.Context, customerID id.CustomerID) context.Context {
	return context.WithValue(ctx, ContextKeyCustomerID, customerID)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
