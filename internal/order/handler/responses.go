package handler

import (
	"time"

	"dinein/internal/order/models"
	"dinein/internal/order/service"
)

// OrderResponse is the wire shape of an order.
type OrderResponse struct {
	ID            string         `json:"id"`
	TableID       string         `json:"table_id"`
	CustomerID    string         `json:"customer_id,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	Status        string         `json:"status"`
	Items         []ItemResponse `json:"items"`
	TotalAmount   int64          `json:"total_amount"`
	Notes         string         `json:"notes,omitempty"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	CancelReason  string         `json:"cancel_reason,omitempty"`
	Version       int64          `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
}

type ItemResponse struct {
	ID                string             `json:"id"`
	MenuItemID        string             `json:"menu_item_id"`
	Name              string             `json:"name"`
	Quantity          int                `json:"quantity"`
	PricePerUnit      int64              `json:"price_per_unit"`
	ModifiersSelected []ModifierResponse `json:"modifiers_selected"`
	TotalPrice        int64              `json:"total_price"`
	Status            string             `json:"status"`
}

type ModifierResponse struct {
	OptionID   string `json:"option_id"`
	Group      string `json:"group"`
	Name       string `json:"name"`
	PriceDelta int64  `json:"price_delta"`
}

type TransitionResponse struct {
	Order   OrderResponse `json:"order"`
	Changed bool          `json:"changed"`
}

type HistoryEntryResponse struct {
	From          string    `json:"from"`
	To            string    `json:"to"`
	ActorID       string    `json:"actor_id,omitempty"`
	ActorRole     string    `json:"actor_role"`
	Reason        string    `json:"reason,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Version       int64     `json:"version"`
	At            time.Time `json:"at"`
}

// FromOrder converts an order for the wire. Items report the order's status.
func FromOrder(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID.String(),
		TableID:       string(o.TableID),
		CustomerName:  o.CustomerName,
		Status:        string(o.Status),
		Items:         make([]ItemResponse, 0, len(o.Items)),
		TotalAmount:   int64(o.TotalAmount),
		Notes:         o.Notes,
		PaymentMethod: string(o.PaymentMethod),
		CancelReason:  o.CancelReason,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		PaidAt:        o.PaidAt,
	}
	if !o.CustomerID.IsNil() {
		resp.CustomerID = o.CustomerID.String()
	}
	for _, item := range o.Items {
		mods := make([]ModifierResponse, 0, len(item.Modifiers))
		for _, m := range item.Modifiers {
			mods = append(mods, ModifierResponse{
				OptionID:   string(m.OptionID),
				Group:      m.Group,
				Name:       m.Name,
				PriceDelta: int64(m.PriceDelta),
			})
		}
		resp.Items = append(resp.Items, ItemResponse{
			ID:                item.ID.String(),
			MenuItemID:        string(item.MenuItemID),
			Name:              item.Name,
			Quantity:          item.Quantity,
			PricePerUnit:      int64(item.PricePerUnit),
			ModifiersSelected: mods,
			TotalPrice:        int64(item.TotalPrice),
			Status:            string(item.DisplayStatus(o)),
		})
	}
	return resp
}

func FromOrders(orders []*models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromOrder(o))
	}
	return out
}

func fromTransition(res *service.TransitionResult) TransitionResponse {
	return TransitionResponse{Order: FromOrder(res.Order), Changed: res.Changed}
}

func fromHistory(changes []models.StatusChange) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(changes))
	for _, c := range changes {
		entry := HistoryEntryResponse{
			From:          string(c.From),
			To:            string(c.To),
			ActorRole:     string(c.Role),
			Reason:        c.Reason,
			PaymentMethod: string(c.PaymentMethod),
			Version:       c.Version,
			At:            c.At,
		}
		if !c.ActorID.IsNil() {
			entry.ActorID = c.ActorID.String()
		}
		out = append(out, entry)
	}
	return out
}
