// Package board answers the kitchen and waiter polling views. Views only read;
// a short-lived snapshot cache absorbs the polling load.
package board

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"dinein/internal/order/models"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/requestcontext"
)

// OrderReader is the read side of the order store.
type OrderReader interface {
	ListByStatus(ctx context.Context, statuses []models.Status) ([]*models.Order, error)
	ListByTable(ctx context.Context, tableID id.TableID, statuses []models.Status) ([]*models.Order, error)
}

// SnapshotCache holds recent query results. Get reports ok=false on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (orders []*models.Order, ok bool, err error)
	Set(ctx context.Context, key string, orders []*models.Order) error
}

// Entry is one order on a board with the time since it was placed.
type Entry struct {
	Order   *models.Order
	Elapsed time.Duration
}

// KitchenQueue groups active kitchen orders by stage, oldest first.
type KitchenQueue struct {
	Accepted  []Entry
	Preparing []Entry
	Ready     []Entry
}

func (q *KitchenQueue) Len() int {
	return len(q.Accepted) + len(q.Preparing) + len(q.Ready)
}

// WaiterFilter narrows the waiter board. Zero values mean no restriction.
type WaiterFilter struct {
	TableID  id.TableID
	Statuses []models.Status
}

type Option func(*Views)

func WithCache(c SnapshotCache) Option {
	return func(v *Views) {
		v.cache = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Views) {
		v.logger = logger
	}
}

// Views serves KitchenView.ListActive and WaiterView.List.
type Views struct {
	orders OrderReader
	cache  SnapshotCache
	logger *slog.Logger
}

func New(orders OrderReader, opts ...Option) *Views {
	v := &Views{orders: orders, logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ListActive returns accepted, preparing and ready orders grouped by status.
func (v *Views) ListActive(ctx context.Context) (*KitchenQueue, error) {
	orders, err := v.load(ctx, "board:kitchen", func(ctx context.Context) ([]*models.Order, error) {
		return v.orders.ListByStatus(ctx, models.KitchenStatuses)
	})
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	queue := &KitchenQueue{}
	for _, o := range orders {
		entry := Entry{Order: o, Elapsed: o.Elapsed(now)}
		switch o.Status {
		case models.StatusAccepted:
			queue.Accepted = append(queue.Accepted, entry)
		case models.StatusPreparing:
			queue.Preparing = append(queue.Preparing, entry)
		case models.StatusReady:
			queue.Ready = append(queue.Ready, entry)
		}
	}
	return queue, nil
}

// List returns waiter-relevant orders, optionally for one table and a subset
// of statuses.
func (v *Views) List(ctx context.Context, filter WaiterFilter) ([]Entry, error) {
	statuses := models.WaiterStatuses
	if len(filter.Statuses) > 0 {
		for _, st := range filter.Statuses {
			if !slices.Contains(models.WaiterStatuses, st) {
				return nil, dErrors.New(dErrors.CodeInvalidInput, "status not shown on the waiter board: "+string(st))
			}
		}
		statuses = filter.Statuses
	}

	key := waiterKey(filter.TableID, statuses)
	orders, err := v.load(ctx, key, func(ctx context.Context) ([]*models.Order, error) {
		if filter.TableID != "" {
			return v.orders.ListByTable(ctx, filter.TableID, statuses)
		}
		return v.orders.ListByStatus(ctx, statuses)
	})
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	entries := make([]Entry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, Entry{Order: o, Elapsed: o.Elapsed(now)})
	}
	return entries, nil
}

func (v *Views) load(ctx context.Context, key string, query func(context.Context) ([]*models.Order, error)) ([]*models.Order, error) {
	if v.cache != nil {
		orders, ok, err := v.cache.Get(ctx, key)
		if err != nil {
			v.logger.WarnContext(ctx, "board cache read failed", "key", key, "error", err)
		} else if ok {
			return orders, nil
		}
	}

	orders, err := query(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load board")
	}
	if v.cache != nil {
		if err := v.cache.Set(ctx, key, orders); err != nil {
			v.logger.WarnContext(ctx, "board cache write failed", "key", key, "error", err)
		}
	}
	return orders, nil
}

func waiterKey(tableID id.TableID, statuses []models.Status) string {
	parts := make([]string, 0, len(statuses))
	for _, st := range statuses {
		parts = append(parts, string(st))
	}
	slices.Sort(parts)
	return "board:waiter:" + string(tableID) + ":" + strings.Join(parts, ",")
}
