package models

import (
	"context"

	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/requestcontext"
)

// Actor is who is calling, as resolved from the actor token. Guests are bound
// to the table their session was opened at.
type Actor struct {
	ID      id.ActorID
	Role    Role
	TableID id.TableID
}

// CanSee reports whether the actor may read or act on an order of tableID.
// Staff see every table; guests only their own.
func (a Actor) CanSee(tableID id.TableID) bool {
	if a.Role == RoleGuest {
		return a.TableID != "" && a.TableID == tableID
	}
	return a.Role.IsStaff()
}

// ActorFromContext rebuilds the acting identity that the actor middleware
// placed on the request context.
func ActorFromContext(ctx context.Context) (Actor, error) {
	raw := requestcontext.ActorRole(ctx)
	if raw == "" {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "actor token required")
	}
	role, err := ParseRole(raw)
	if err != nil {
		return Actor{}, err
	}
	return Actor{
		ID:      requestcontext.ActorID(ctx),
		Role:    role,
		TableID: requestcontext.TableID(ctx),
	}, nil
}
