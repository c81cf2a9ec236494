package service

import (
	"context"

	"dinein/internal/order/models"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/requestcontext"
)

// Get returns an order the actor may see. Orders of other tables read as not
// found for guests.
func (s *Service) Get(ctx context.Context, actor models.Actor, orderID id.OrderID) (*models.Order, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, wrapStoreErr(err, "load order")
	}
	if !actor.CanSee(order.TableID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// ListTableOrders returns a table's orders, oldest first. activeOnly drops
// paid and cancelled orders, which is what the guest order list polls.
func (s *Service) ListTableOrders(ctx context.Context, actor models.Actor, tableID id.TableID, activeOnly bool) ([]*models.Order, error) {
	if !actor.CanSee(tableID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot view another table")
	}
	var statuses []models.Status
	if activeOnly {
		statuses = models.ActiveStatuses
	}
	orders, err := s.store.ListByTable(ctx, tableID, statuses)
	if err != nil {
		return nil, wrapStoreErr(err, "list orders")
	}
	return orders, nil
}

// History returns the applied transitions of an order, oldest first.
func (s *Service) History(ctx context.Context, actor models.Actor, orderID id.OrderID) ([]models.StatusChange, error) {
	if _, err := s.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}
	history, err := s.store.History(ctx, orderID)
	if err != nil {
		return nil, wrapStoreErr(err, "load history")
	}
	return history, nil
}

// UpdateNotes edits the kitchen notes of a pending order.
func (s *Service) UpdateNotes(ctx context.Context, actor models.Actor, orderID id.OrderID, notes string) (*models.Order, error) {
	order, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CanUpdateNotes(notes); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateNotes(ctx, orderID, notes, requestcontext.Now(ctx))
	if err != nil {
		return nil, wrapStoreErr(err, "update notes")
	}
	s.logger.InfoContext(ctx, "order notes updated",
		"order_id", orderID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return updated, nil
}
