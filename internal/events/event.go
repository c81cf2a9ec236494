// Package events streams order lifecycle notifications to the message bus.
// Polling stays authoritative; events let boards refresh sooner.
package events

import (
	"time"

	"github.com/google/uuid"

	id "dinein/pkg/domain"
)

type Type string

const (
	TypeOrderCreated       Type = "order.created"
	TypeOrderStatusChanged Type = "order.status_changed"
	TypeOrderSettled       Type = "order.settled"
)

// Event is transport-agnostic. TableID is the partition key so every event for
// a table is delivered in order.
type Event struct {
	ID         string       `json:"id"`
	Type       Type         `json:"type"`
	TableID    id.TableID   `json:"table_id"`
	OrderIDs   []id.OrderID `json:"order_ids"`
	From       string       `json:"from,omitempty"`
	To         string       `json:"to,omitempty"`
	Version    int64        `json:"version,omitempty"`
	ActorRole  string       `json:"actor_role,omitempty"`
	Amount     int64        `json:"amount,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func newEventID() string {
	return uuid.NewString()
}
