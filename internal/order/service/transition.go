package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"dinein/internal/events"
	"dinein/internal/order/models"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/requestcontext"
)

// TransitionRequest asks to move an order from Expected to To. Expected is
// the status the caller last observed.
type TransitionRequest struct {
	OrderID  id.OrderID
	Expected models.Status
	To       models.Status
	Actor    models.Actor
	Reason   string
}

// TransitionResult distinguishes an applied transition from a retry of one
// that already happened.
type TransitionResult struct {
	Order   *models.Order
	Changed bool
}

// TransitionStatus validates the requested edge against the expected status
// and applies it with a single compare-and-transition. A caller whose
// expectation is stale gets StaleState and must re-fetch, unless the order
// already sits at the requested status, which is reported as an unchanged
// success.
func (s *Service) TransitionStatus(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if req.To == models.StatusPaid {
		s.metrics.IncrementOutcome("rejected")
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "orders are marked paid through payment settlement")
	}
	return s.transition(ctx, req.OrderID, req.Expected, models.Transition{
		To:      req.To,
		ActorID: req.Actor.ID,
		Role:    req.Actor.Role,
		Reason:  req.Reason,
	}, req.Actor)
}

// MarkPaid moves a served order to paid. Only payment settlement calls it.
func (s *Service) MarkPaid(ctx context.Context, orderID id.OrderID, actor models.Actor, method models.PaymentMethod) (*TransitionResult, error) {
	return s.transition(ctx, orderID, models.StatusServed, models.Transition{
		To:            models.StatusPaid,
		ActorID:       actor.ID,
		Role:          actor.Role,
		PaymentMethod: method,
	}, actor)
}

func (s *Service) transition(ctx context.Context, orderID id.OrderID, expected models.Status, t models.Transition, actor models.Actor) (result *TransitionResult, err error) {
	ctx, span := startSpan(ctx, "order.Transition",
		attribute.String("order_id", orderID.String()),
		attribute.String("expected", string(expected)),
		attribute.String("to", string(t.To)),
		attribute.String("role", string(t.Role)),
	)
	defer func() { endSpan(span, err) }()

	if actor.Role == models.RoleGuest {
		// Guests only act on their own table; look the order up first so a
		// foreign order reads as missing.
		current, err := s.store.FindByID(ctx, orderID)
		if err != nil {
			return nil, wrapStoreErr(err, "load order")
		}
		if !actor.CanSee(current.TableID) {
			return nil, dErrors.New(dErrors.CodeNotFound, "order not found")
		}
	}

	change, noop, err := models.PlanTransition(orderID, expected, t, requestcontext.Now(ctx))
	if err != nil {
		s.metrics.IncrementOutcome("rejected")
		return nil, err
	}
	if noop {
		return s.confirmNoop(ctx, orderID, t.To)
	}

	start := time.Now()
	order, applied, err := s.store.CompareAndTransition(ctx, change)
	s.metrics.ObserveTransitionLatency(time.Since(start))
	if err != nil {
		return nil, wrapStoreErr(err, "transition order")
	}
	if !applied {
		if order.Status == t.To {
			// Someone (or an earlier attempt of this request) already did it.
			s.metrics.IncrementOutcome("noop")
			return &TransitionResult{Order: order, Changed: false}, nil
		}
		s.metrics.IncrementOutcome("stale")
		return nil, dErrors.New(dErrors.CodeStaleState,
			"order is "+string(order.Status)+", not "+string(expected)+"; refresh and retry")
	}

	s.metrics.IncrementTransition(string(change.From), string(change.To), string(change.Role))
	s.emit(ctx, events.Event{
		Type:      events.TypeOrderStatusChanged,
		TableID:   order.TableID,
		OrderIDs:  []id.OrderID{order.ID},
		From:      string(change.From),
		To:        string(change.To),
		Version:   order.Version,
		ActorRole: string(change.Role),
	})
	s.logger.InfoContext(ctx, "order status changed",
		"order_id", order.ID.String(),
		"from", change.From,
		"to", change.To,
		"actor_role", change.Role,
		"version", order.Version,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &TransitionResult{Order: order, Changed: true}, nil
}

// confirmNoop handles expected == to: success if the order is there, stale
// otherwise.
func (s *Service) confirmNoop(ctx context.Context, orderID id.OrderID, to models.Status) (*TransitionResult, error) {
	order, err := s.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, wrapStoreErr(err, "load order")
	}
	if order.Status != to {
		s.metrics.IncrementOutcome("stale")
		return nil, dErrors.New(dErrors.CodeStaleState, "order is "+string(order.Status)+"; refresh and retry")
	}
	s.metrics.IncrementOutcome("noop")
	return &TransitionResult{Order: order, Changed: false}, nil
}
