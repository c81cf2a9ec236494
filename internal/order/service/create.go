package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"dinein/internal/events"
	"dinein/internal/menu"
	"dinein/internal/order/models"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/sentinel"
	"dinein/pkg/requestcontext"
)

const (
	maxItemsPerOrder = 50
	maxQuantity      = 99
)

// CreateOrderRequest places one round of items for a table.
type CreateOrderRequest struct {
	TableID      id.TableID
	CustomerID   id.CustomerID
	CustomerName string
	Notes        string
	Items        []ItemRequest
}

type ItemRequest struct {
	MenuItemID id.MenuItemID
	Quantity   int
	OptionIDs  []id.ModifierOptionID
}

// CreateOrder snapshots prices from the catalog and stores a pending order.
// Guests may only order for the table their session is bound to.
func (s *Service) CreateOrder(ctx context.Context, actor models.Actor, req CreateOrderRequest) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "order.Create", attribute.String("table_id", string(req.TableID)))
	defer func() { endSpan(span, err) }()

	if !actor.CanSee(req.TableID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot order for another table")
	}
	if len(req.Items) > maxItemsPerOrder {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "too many items in one order")
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, r := range req.Items {
		item, err := s.snapshotItem(ctx, r)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	order, err = models.NewOrder(id.NewOrderID(), req.TableID, req.CustomerID, req.CustomerName, req.Notes, items, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, order); err != nil {
		return nil, wrapStoreErr(err, "create order")
	}

	s.metrics.IncrementCreated()
	s.emit(ctx, events.Event{
		Type:      events.TypeOrderCreated,
		TableID:   order.TableID,
		OrderIDs:  []id.OrderID{order.ID},
		To:        string(order.Status),
		ActorRole: string(actor.Role),
		Amount:    int64(order.TotalAmount),
	})
	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID.String(),
		"table_id", order.TableID,
		"items", len(order.Items),
		"total_amount", int64(order.TotalAmount),
		"request_id", requestcontext.RequestID(ctx),
	)
	return order, nil
}

func (s *Service) snapshotItem(ctx context.Context, r ItemRequest) (models.OrderItem, error) {
	if r.Quantity < 1 || r.Quantity > maxQuantity {
		return models.OrderItem{}, dErrors.New(dErrors.CodeInvalidInput, "quantity must be between 1 and 99")
	}
	entry, err := s.catalog.Lookup(ctx, r.MenuItemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.OrderItem{}, dErrors.New(dErrors.CodeInvalidInput, "unknown menu item: "+string(r.MenuItemID))
		}
		return models.OrderItem{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read menu")
	}
	if !entry.Available {
		return models.OrderItem{}, dErrors.New(dErrors.CodeConflict, entry.Name+" is not available")
	}

	modifiers := make([]models.ModifierSelection, 0, len(r.OptionIDs))
	seen := make(map[id.ModifierOptionID]bool, len(r.OptionIDs))
	for _, optionID := range r.OptionIDs {
		if seen[optionID] {
			return models.OrderItem{}, dErrors.New(dErrors.CodeInvalidInput, "modifier chosen twice: "+string(optionID))
		}
		seen[optionID] = true
		opt, ok := entry.Option(optionID)
		if !ok {
			return models.OrderItem{}, dErrors.New(dErrors.CodeInvalidInput, "modifier not offered for "+entry.Name+": "+string(optionID))
		}
		modifiers = append(modifiers, selection(opt))
	}
	return models.NewOrderItem(entry.ID, entry.Name, r.Quantity, models.Money(entry.Price), modifiers)
}

func selection(opt menu.ModifierOption) models.ModifierSelection {
	return models.ModifierSelection{
		OptionID:   opt.ID,
		Group:      opt.Group,
		Name:       opt.Name,
		PriceDelta: models.Money(opt.PriceDelta),
	}
}
