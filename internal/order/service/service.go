package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dinein/internal/events"
	"dinein/internal/menu"
	ordermetrics "dinein/internal/order/metrics"
	"dinein/internal/order/models"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/sentinel"
)

// Store is the order persistence port. CompareAndTransition is the only write
// that changes status.
type Store interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	ListByTable(ctx context.Context, tableID id.TableID, statuses []models.Status) ([]*models.Order, error)
	CompareAndTransition(ctx context.Context, change models.StatusChange) (*models.Order, bool, error)
	History(ctx context.Context, orderID id.OrderID) ([]models.StatusChange, error)
	UpdateNotes(ctx context.Context, orderID id.OrderID, notes string, now time.Time) (*models.Order, error)
}

// EventEmitter receives order events. Emit must not block.
type EventEmitter interface {
	Emit(ctx context.Context, event events.Event)
}

var tracer = otel.Tracer("dinein/order")

// Service owns order placement and every status change.
type Service struct {
	store   Store
	catalog menu.Catalog
	logger  *slog.Logger
	metrics *ordermetrics.Metrics
	events  EventEmitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *ordermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEvents(e EventEmitter) Option {
	return func(s *Service) {
		s.events = e
	}
}

func New(store Store, catalog menu.Catalog, opts ...Option) *Service {
	s := &Service{store: store, catalog: catalog, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.events != nil {
		s.events.Emit(ctx, event)
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

// wrapStoreErr translates store sentinels into domain errors.
func wrapStoreErr(err error, action string) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "order not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "order already exists")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidTransition, "order can no longer be changed")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, action+" timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}
