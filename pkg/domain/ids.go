package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "dinein/pkg/domain-errors"
)

// Typed identifiers keep order, customer and actor IDs from being mixed up at
// compile time. Construct them with the Parse functions at trust boundaries.
type (
	OrderID     uuid.UUID
	OrderItemID uuid.UUID
	CustomerID  uuid.UUID
	ActorID     uuid.UUID
)

// TableID is the short code printed on a physical table ("A12", "patio-3").
// Invariant: 1..32 characters of letters, digits, '-' or '_'.
type TableID string

// MenuItemID references an entry in the external menu catalog.
type MenuItemID string

// ModifierOptionID references a modifier option in the external menu catalog.
type ModifierOptionID string

const maxCodeLength = 32

func (id OrderID) String() string     { return uuid.UUID(id).String() }
func (id OrderItemID) String() string { return uuid.UUID(id).String() }
func (id CustomerID) String() string  { return uuid.UUID(id).String() }
func (id ActorID) String() string     { return uuid.UUID(id).String() }
func (id TableID) String() string     { return string(id) }

func (id OrderID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id OrderItemID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CustomerID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

func (id OrderID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id CustomerID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ActorID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id OrderItemID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *OrderID) UnmarshalText(b []byte) error {
	parsed, err := ParseOrderID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UnmarshalText accepts the nil ID, which marks an anonymous guest.
func (id *CustomerID) UnmarshalText(b []byte) error {
	u, err := parseNullable(string(b), "customer ID")
	if err != nil {
		return err
	}
	*id = CustomerID(u)
	return nil
}

func (id *ActorID) UnmarshalText(b []byte) error {
	u, err := parseNullable(string(b), "actor ID")
	if err != nil {
		return err
	}
	*id = ActorID(u)
	return nil
}

func (id *OrderItemID) UnmarshalText(b []byte) error {
	u, err := parseUUID(string(b), "order item ID")
	if err != nil {
		return err
	}
	*id = OrderItemID(u)
	return nil
}

func parseNullable(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}

func NewOrderID() OrderID         { return OrderID(uuid.New()) }
func NewOrderItemID() OrderItemID { return OrderItemID(uuid.New()) }

func ParseOrderID(s string) (OrderID, error) {
	u, err := parseUUID(s, "order ID")
	return OrderID(u), err
}

func ParseCustomerID(s string) (CustomerID, error) {
	u, err := parseUUID(s, "customer ID")
	return CustomerID(u), err
}

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor ID")
	return ActorID(u), err
}

// ParseTableID validates a table code.
func ParseTableID(s string) (TableID, error) {
	if err := validateCode(s, "table ID"); err != nil {
		return "", err
	}
	return TableID(s), nil
}

// ParseMenuItemID validates a catalog menu item reference.
func ParseMenuItemID(s string) (MenuItemID, error) {
	if err := validateCode(s, "menu item ID"); err != nil {
		return "", err
	}
	return MenuItemID(s), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func validateCode(s, label string) error {
	if strings.TrimSpace(s) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	if len(s) > maxCodeLength {
		return dErrors.New(dErrors.CodeInvalidInput, label+" is too long")
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
		}
	}
	return nil
}
