package models

import (
	"slices"
	"strings"

	dErrors "dinein/pkg/domain-errors"
)

// Status is the lifecycle state of an order. Order.Status is the single source
// of truth; item display state is derived from it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusServed    Status = "served"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending, StatusAccepted, StatusPreparing, StatusReady, StatusServed, StatusPaid, StatusCancelled,
}

// KitchenStatuses are the statuses shown on the kitchen board, in column order.
var KitchenStatuses = []Status{StatusAccepted, StatusPreparing, StatusReady}

// WaiterStatuses are the statuses shown on the waiter board, in column order.
var WaiterStatuses = []Status{StatusPending, StatusAccepted, StatusPreparing, StatusReady, StatusServed}

// ActiveStatuses are all non-terminal statuses.
var ActiveStatuses = WaiterStatuses

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(allStatuses, st) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown order status: "+s)
	}
	return st, nil
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Role is the kind of actor requesting a transition.
type Role string

const (
	RoleGuest   Role = "guest"
	RoleWaiter  Role = "waiter"
	RoleKitchen Role = "kitchen"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleGuest, RoleWaiter, RoleKitchen, RoleAdmin:
		return r, nil
	}
	return "", dErrors.New(dErrors.CodeForbidden, "unknown actor role")
}

func (r Role) IsStaff() bool {
	return r == RoleWaiter || r == RoleKitchen || r == RoleAdmin
}

type edge struct {
	from, to Status
}

type edgeRule struct {
	roles         []Role
	requireReason bool
}

// transitions is the complete lifecycle graph. Anything not listed is an
// invalid transition regardless of role.
var transitions = map[edge]edgeRule{
	{StatusPending, StatusAccepted}:   {roles: []Role{RoleWaiter, RoleKitchen, RoleAdmin}},
	{StatusPending, StatusCancelled}:  {roles: []Role{RoleWaiter, RoleKitchen, RoleAdmin}, requireReason: true},
	{StatusAccepted, StatusCancelled}: {roles: []Role{RoleWaiter, RoleKitchen, RoleAdmin}, requireReason: true},
	{StatusAccepted, StatusPreparing}: {roles: []Role{RoleKitchen, RoleAdmin}},
	{StatusPreparing, StatusReady}:    {roles: []Role{RoleKitchen, RoleAdmin}},
	{StatusReady, StatusServed}:       {roles: []Role{RoleWaiter, RoleAdmin}},
	// Only reachable through payment settlement.
	{StatusServed, StatusPaid}: {roles: []Role{RoleGuest, RoleWaiter, RoleAdmin}},
}

// CanTransitionTo reports whether (s, to) is an edge of the lifecycle graph.
func (s Status) CanTransitionTo(to Status) bool {
	_, ok := transitions[edge{s, to}]
	return ok
}

// AllowedRoles returns the roles permitted to move an order from -> to.
func AllowedRoles(from, to Status) []Role {
	rule, ok := transitions[edge{from, to}]
	if !ok {
		return nil
	}
	return slices.Clone(rule.roles)
}
