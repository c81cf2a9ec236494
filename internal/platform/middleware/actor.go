package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"dinein/internal/platform/actortoken"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/httputil"
	"dinein/pkg/requestcontext"
)

// ActorValidator validates an actor token.
type ActorValidator interface {
	Validate(tokenString string) (*actortoken.Actor, error)
}

// RequireActor resolves the bearer token into the request's actor identity.
func RequireActor(validator ActorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			actor, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithActor(ctx, actor.ID, actor.Role, actor.TableID)
			if !actor.CustomerID.IsNil() {
				ctx = requestcontext.WithCustomerID(ctx, actor.CustomerID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole admits only the listed roles. Use after RequireActor.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(roles, requestcontext.ActorRole(r.Context())) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "role not permitted for this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
