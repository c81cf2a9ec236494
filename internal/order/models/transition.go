package models

import (
	"slices"
	"strings"
	"time"

	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
)

// Transition is a requested status change and who asked for it.
type Transition struct {
	To            Status
	ActorID       id.ActorID
	Role          Role
	Reason        string
	PaymentMethod PaymentMethod
}

// StatusChange is an applied transition, as persisted in the status log.
type StatusChange struct {
	OrderID       id.OrderID    `json:"order_id"`
	From          Status        `json:"from"`
	To            Status        `json:"to"`
	ActorID       id.ActorID    `json:"actor_id"`
	Role          Role          `json:"actor_role"`
	Reason        string        `json:"reason,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Version       int64         `json:"version"`
	At            time.Time     `json:"at"`
}

// CheckTransition validates moving an order in status from according to t.
// noop is true when the order is already at the requested status; that is a
// success, not a transition.
func CheckTransition(from Status, t Transition) (noop bool, err error) {
	if from == t.To {
		return true, nil
	}
	rule, ok := transitions[edge{from, t.To}]
	if !ok {
		return false, dErrors.New(dErrors.CodeInvalidTransition,
			"cannot move order from "+string(from)+" to "+string(t.To))
	}
	if !slices.Contains(rule.roles, t.Role) {
		return false, dErrors.New(dErrors.CodeForbidden,
			string(t.Role)+" may not move order from "+string(from)+" to "+string(t.To))
	}
	if rule.requireReason && strings.TrimSpace(t.Reason) == "" {
		return false, dErrors.New(dErrors.CodeMissingReason, "a reason is required to cancel an order")
	}
	if t.To == StatusPaid && t.PaymentMethod == "" {
		return false, dErrors.New(dErrors.CodeInvalidInput, "payment method is required")
	}
	return false, nil
}

// PlanTransition validates t against the expected current status and returns
// the change a store should apply atomically. Version is filled in by the store.
func PlanTransition(orderID id.OrderID, expected Status, t Transition, now time.Time) (StatusChange, bool, error) {
	noop, err := CheckTransition(expected, t)
	if err != nil || noop {
		return StatusChange{}, noop, err
	}
	change := StatusChange{
		OrderID: orderID,
		From:    expected,
		To:      t.To,
		ActorID: t.ActorID,
		Role:    t.Role,
		Reason:  strings.TrimSpace(t.Reason),
		At:      now,
	}
	if t.To == StatusPaid {
		change.PaymentMethod = t.PaymentMethod
	}
	return change, false, nil
}

// ApplyChange mutates the order to reflect change. Callers must have
// validated the change and checked o.Status == change.From.
func (o *Order) ApplyChange(change StatusChange) {
	o.Status = change.To
	o.UpdatedAt = change.At
	o.Version++
	switch change.To {
	case StatusPaid:
		if o.PaidAt == nil {
			at := change.At
			o.PaidAt = &at
		}
		o.PaymentMethod = change.PaymentMethod
	case StatusCancelled:
		o.CancelReason = change.Reason
	}
}

// Apply validates and applies t in one step. changed is false for the
// same-status no-op.
func (o *Order) Apply(t Transition, now time.Time) (changed bool, err error) {
	change, noop, err := PlanTransition(o.ID, o.Status, t, now)
	if err != nil || noop {
		return false, err
	}
	o.ApplyChange(change)
	return true, nil
}
