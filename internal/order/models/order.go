package models

import (
	"slices"
	"strings"
	"time"

	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
)

// Money is an amount in the smallest currency unit.
type Money int64

const maxNotesLength = 500

// PaymentMethod records how a settled order was paid.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
	PaymentQRIS    PaymentMethod = "qris"
	PaymentEWallet PaymentMethod = "ewallet"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PaymentCash, PaymentCard, PaymentQRIS, PaymentEWallet:
		return m, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported payment method: "+s)
}

// Order is one placement of menu items against one table at one time.
//
// Invariants:
//   - TotalAmount equals the sum of Items[*].TotalPrice
//   - Items are fixed at creation; more food means a new Order for the table
//   - Status changes only through Transition; Version counts applied transitions
//   - PaidAt is set exactly once, on served -> paid
//   - Paid and cancelled orders are immutable
type Order struct {
	ID            id.OrderID    `json:"id"`
	TableID       id.TableID    `json:"table_id"`
	CustomerID    id.CustomerID `json:"customer_id"`
	CustomerName  string        `json:"customer_name,omitempty"`
	Status        Status        `json:"status"`
	Items         []OrderItem   `json:"items"`
	TotalAmount   Money         `json:"total_amount"`
	Notes         string        `json:"notes,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	CancelReason  string        `json:"cancel_reason,omitempty"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

// OrderItem is one line of an order. Prices are snapshotted from the catalog
// when the order is placed and never re-read.
type OrderItem struct {
	ID           id.OrderItemID      `json:"id"`
	MenuItemID   id.MenuItemID       `json:"menu_item_id"`
	Name         string              `json:"name"`
	Quantity     int                 `json:"quantity"`
	PricePerUnit Money               `json:"price_per_unit"`
	Modifiers    []ModifierSelection `json:"modifiers_selected"`
	TotalPrice   Money               `json:"total_price"`
}

// ModifierSelection is a chosen modifier option with its snapshotted delta.
type ModifierSelection struct {
	OptionID   id.ModifierOptionID `json:"option_id"`
	Group      string              `json:"group"`
	Name       string              `json:"name"`
	PriceDelta Money               `json:"price_delta"`
}

// NewOrderItem builds an item and fixes its total. Modifier deltas apply per
// unit, so they scale with quantity.
func NewOrderItem(menuItemID id.MenuItemID, name string, quantity int, pricePerUnit Money, modifiers []ModifierSelection) (OrderItem, error) {
	if quantity < 1 {
		return OrderItem{}, dErrors.New(dErrors.CodeInvalidInput, "quantity must be at least 1")
	}
	if pricePerUnit < 0 {
		return OrderItem{}, dErrors.New(dErrors.CodeInvalidInput, "price must not be negative")
	}
	unit := pricePerUnit
	for _, m := range modifiers {
		unit += m.PriceDelta
	}
	if unit < 0 {
		return OrderItem{}, dErrors.New(dErrors.CodeInvalidInput, "modifiers reduce item price below zero")
	}
	return OrderItem{
		ID:           id.NewOrderItemID(),
		MenuItemID:   menuItemID,
		Name:         name,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Modifiers:    slices.Clone(modifiers),
		TotalPrice:   unit * Money(quantity),
	}, nil
}

// DisplayStatus is the status shown for an item. Items have no status of their
// own.
func (i OrderItem) DisplayStatus(o *Order) Status {
	return o.Status
}

// ModifierAdjustment is the total contributed by modifiers across the quantity.
func (i OrderItem) ModifierAdjustment() Money {
	return i.TotalPrice - i.PricePerUnit*Money(i.Quantity)
}

// NewOrder places a pending order. customerID is the nil ID for anonymous
// guests, who give a name instead.
func NewOrder(orderID id.OrderID, tableID id.TableID, customerID id.CustomerID, customerName, notes string, items []OrderItem, now time.Time) (*Order, error) {
	if tableID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "table is required")
	}
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "order must contain at least one item")
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "notes are too long")
	}
	customerName = strings.TrimSpace(customerName)
	if customerID.IsNil() && customerName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "anonymous orders need a customer name")
	}

	var total Money
	for _, item := range items {
		total += item.TotalPrice
	}
	return &Order{
		ID:           orderID,
		TableID:      tableID,
		CustomerID:   customerID,
		CustomerName: customerName,
		Status:       StatusPending,
		Items:        slices.Clone(items),
		TotalAmount:  total,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (o *Order) IsAnonymous() bool { return o.CustomerID.IsNil() }

// IsPayable reports whether the order belongs on the table bill.
func (o *Order) IsPayable() bool { return o.Status == StatusServed }

// Elapsed is the time since the order was placed.
func (o *Order) Elapsed(now time.Time) time.Duration {
	if now.Before(o.CreatedAt) {
		return 0
	}
	return now.Sub(o.CreatedAt)
}

// ItemsTotal recomputes the sum of item totals.
func (o *Order) ItemsTotal() Money {
	var total Money
	for _, item := range o.Items {
		total += item.TotalPrice
	}
	return total
}

// CheckInvariants verifies the amount and item invariants.
func (o *Order) CheckInvariants() error {
	if o.ItemsTotal() != o.TotalAmount {
		return dErrors.New(dErrors.CodeInvariantViolation, "order total does not match its items")
	}
	if o.Status == StatusPaid && o.PaidAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "paid order without paid_at")
	}
	if o.Status != StatusPaid && o.PaidAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "paid_at set on unpaid order")
	}
	return nil
}

// CanUpdateNotes allows note edits only before the kitchen has seen the order.
func (o *Order) CanUpdateNotes(notes string) error {
	if o.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidTransition, "notes can only be changed while the order is pending")
	}
	if len(strings.TrimSpace(notes)) > maxNotesLength {
		return dErrors.New(dErrors.CodeInvalidInput, "notes are too long")
	}
	return nil
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.Modifiers = slices.Clone(item.Modifiers)
		c.Items[i] = item
	}
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		c.PaidAt = &paidAt
	}
	return &c
}
