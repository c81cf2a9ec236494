package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"dinein/internal/order/models"
	id "dinein/pkg/domain"
	"dinein/pkg/platform/sentinel"
)

// InMemory keeps orders in process. The write lock makes every
// compare-and-transition a critical section, so racing callers see exactly
// one winner. Returned orders are copies.
type InMemory struct {
	mu      sync.RWMutex
	orders  map[id.OrderID]*models.Order
	history map[id.OrderID][]models.StatusChange
}

func NewInMemory() *InMemory {
	return &InMemory{
		orders:  make(map[id.OrderID]*models.Order),
		history: make(map[id.OrderID][]models.StatusChange),
	}
}

func (s *InMemory) Create(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s: %w", order.ID, sentinel.ErrConflict)
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, orderID id.OrderID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}
	return order.Clone(), nil
}

// ListByTable returns a table's orders, oldest first. No statuses means all.
func (s *InMemory) ListByTable(_ context.Context, tableID id.TableID, statuses []models.Status) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Order
	for _, order := range s.orders {
		if order.TableID != tableID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, order.Status) {
			continue
		}
		out = append(out, order.Clone())
	}
	sortByCreated(out)
	return out, nil
}

// ListByStatus returns every order in one of statuses, oldest first.
func (s *InMemory) ListByStatus(_ context.Context, statuses []models.Status) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Order
	for _, order := range s.orders {
		if slices.Contains(statuses, order.Status) {
			out = append(out, order.Clone())
		}
	}
	sortByCreated(out)
	return out, nil
}

// CompareAndTransition applies change only if the order is still at
// change.From. When it is not, it returns the current order and applied=false.
func (s *InMemory) CompareAndTransition(_ context.Context, change models.StatusChange) (*models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[change.OrderID]
	if !ok {
		return nil, false, fmt.Errorf("order %s: %w", change.OrderID, sentinel.ErrNotFound)
	}
	if order.Status != change.From {
		return order.Clone(), false, nil
	}
	order.ApplyChange(change)
	change.Version = order.Version
	s.history[order.ID] = append(s.history[order.ID], change)
	return order.Clone(), true, nil
}

func (s *InMemory) History(_ context.Context, orderID id.OrderID) ([]models.StatusChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.orders[orderID]; !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}
	return slices.Clone(s.history[orderID]), nil
}

// UpdateNotes changes notes only while the order is pending.
func (s *InMemory) UpdateNotes(_ context.Context, orderID id.OrderID, notes string, now time.Time) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, sentinel.ErrNotFound)
	}
	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, order.Status, sentinel.ErrInvalidState)
	}
	order.Notes = strings.TrimSpace(notes)
	order.UpdatedAt = now
	return order.Clone(), nil
}

func sortByCreated(orders []*models.Order) {
	slices.SortFunc(orders, func(a, b *models.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
