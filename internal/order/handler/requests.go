package handler

import (
	"strings"

	"dinein/internal/order/models"
	"dinein/internal/order/service"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
)

const maxOptionsPerItem = 10

// CreateOrderRequest is the body of POST /tables/{tableID}/orders.
type CreateOrderRequest struct {
	CustomerID   string        `json:"customer_id,omitempty"`
	CustomerName string        `json:"customer_name,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	Items        []ItemRequest `json:"items"`

	parsedCustomerID id.CustomerID
	parsedItems      []service.ItemRequest
}

type ItemRequest struct {
	MenuItemID        string   `json:"menu_item_id"`
	Quantity          int      `json:"quantity"`
	ModifierOptionIDs []string `json:"modifier_option_ids,omitempty"`
}

// Validate normalizes and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateOrderRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Items) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "an order needs at least one item")
	}
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.Notes = strings.TrimSpace(r.Notes)

	if r.CustomerID = strings.TrimSpace(r.CustomerID); r.CustomerID != "" {
		customerID, err := id.ParseCustomerID(r.CustomerID)
		if err != nil {
			return err
		}
		r.parsedCustomerID = customerID
	}

	r.parsedItems = make([]service.ItemRequest, 0, len(r.Items))
	for _, item := range r.Items {
		menuItemID, err := id.ParseMenuItemID(strings.TrimSpace(item.MenuItemID))
		if err != nil {
			return err
		}
		if len(item.ModifierOptionIDs) > maxOptionsPerItem {
			return dErrors.New(dErrors.CodeInvalidInput, "too many modifiers for "+string(menuItemID))
		}
		options := make([]id.ModifierOptionID, 0, len(item.ModifierOptionIDs))
		for _, opt := range item.ModifierOptionIDs {
			options = append(options, id.ModifierOptionID(strings.TrimSpace(opt)))
		}
		r.parsedItems = append(r.parsedItems, service.ItemRequest{
			MenuItemID: menuItemID,
			Quantity:   item.Quantity,
			OptionIDs:  options,
		})
	}
	return nil
}

// TransitionRequest is the body of POST /orders/{orderID}/status.
type TransitionRequest struct {
	ExpectedStatus string `json:"expected_status"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`

	parsedExpected models.Status
	parsedTo       models.Status
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	expected, err := models.ParseStatus(strings.TrimSpace(r.ExpectedStatus))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "expected_status must be a known order status")
	}
	to, err := models.ParseStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "status must be a known order status")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	r.parsedExpected = expected
	r.parsedTo = to
	return nil
}

// UpdateNotesRequest is the body of PATCH /orders/{orderID}/notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

func (r *UpdateNotesRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}
