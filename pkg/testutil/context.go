package testutil

import (
	"net/http"

	id "dinein/pkg/domain"
	"dinein/pkg/requestcontext"
)

// AsActor attaches an actor identity to the request context, as the actor
// middleware would after validating a token.
func AsActor(req *http.Request, actorID id.ActorID, role string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), actorID, role, "")
	return req.WithContext(ctx)
}

// AsGuest attaches a guest identity bound to a table. customerID may be the nil
// ID for anonymous guests.
func AsGuest(req *http.Request, tableID id.TableID, customerID id.CustomerID) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), id.ActorID{}, "guest", tableID)
	if !customerID.IsNil() {
		ctx = requestcontext.WithCustomerID(ctx, customerID)
	}
	return req.WithContext(ctx)
}
