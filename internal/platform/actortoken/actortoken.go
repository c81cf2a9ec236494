// Package actortoken validates the signed actor tokens issued by the auth
// service. The token is the only source of actor identity: role, actor id and,
// for guests, the table the session is bound to.
package actortoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
)

// Claims is the token payload.
type Claims struct {
	ActorID    string `json:"actor_id,omitempty"`
	Role       string `json:"role"`
	TableID    string `json:"table_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the validated identity extracted from a token.
type Actor struct {
	ID         id.ActorID
	Role       string
	TableID    id.TableID
	CustomerID id.CustomerID
}

var knownRoles = map[string]bool{"guest": true, "waiter": true, "kitchen": true, "admin": true}

// Service signs and validates actor tokens with a shared HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
}

func New(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs a token for actor. The production issuer is the auth service;
// this exists for tests and local tooling.
func (s *Service) Issue(actor Actor, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:    actor.Role,
		TableID: string(actor.TableID),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	if !actor.ID.IsNil() {
		claims.ActorID = actor.ID.String()
	}
	if !actor.CustomerID.IsNil() {
		claims.CustomerID = actor.CustomerID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// Validate parses and verifies tokenString and returns the actor it names.
func (s *Service) Validate(tokenString string) (*Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims.actor()
}

func (c *Claims) actor() (*Actor, error) {
	if !knownRoles[c.Role] {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown actor role")
	}
	actor := &Actor{Role: c.Role}
	if c.ActorID != "" {
		actorID, err := id.ParseActorID(c.ActorID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid actor id claim")
		}
		actor.ID = actorID
	}
	if c.CustomerID != "" {
		customerID, err := id.ParseCustomerID(c.CustomerID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid customer id claim")
		}
		actor.CustomerID = customerID
	}
	if c.TableID != "" {
		tableID, err := id.ParseTableID(c.TableID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid table claim")
		}
		actor.TableID = tableID
	}
	// Guest sessions are always bound to a table; staff tokens are not.
	if c.Role == "guest" && actor.TableID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "guest token without table")
	}
	if c.Role != "guest" && actor.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "staff token without actor id")
	}
	return actor, nil
}
