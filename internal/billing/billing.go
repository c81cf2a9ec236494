// Package billing computes table bills and settles payments. Settlement moves
// each order to paid on its own; a batch that partly fails leaves the settled
// orders paid and reports the rest.
package billing

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dinein/internal/events"
	loyaltyservice "dinein/internal/loyalty/service"
	"dinein/internal/order/models"
	orderservice "dinein/internal/order/service"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/sentinel"
	"dinein/pkg/requestcontext"
)

const (
	maxOrdersPerSettlement = 100
	defaultAccrualTimeout  = 3 * time.Second
)

var tracer = otel.Tracer("dinein/billing")

// OrderReader is the read side of the order store.
type OrderReader interface {
	FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error)
	ListByTable(ctx context.Context, tableID id.TableID, statuses []models.Status) ([]*models.Order, error)
}

// Payer moves a served order to paid.
type Payer interface {
	MarkPaid(ctx context.Context, orderID id.OrderID, actor models.Actor, method models.PaymentMethod) (*orderservice.TransitionResult, error)
}

// Accruer credits loyalty points.
type Accruer interface {
	Accrue(ctx context.Context, customerID id.CustomerID, amount int64, reference string) (*loyaltyservice.AccrualResult, error)
}

type EventEmitter interface {
	Emit(ctx context.Context, event events.Event)
}

// Bill is what a table owes right now: its served orders.
type Bill struct {
	TableID    id.TableID
	Orders     []*models.Order
	GrandTotal models.Money
}

// SettleRequest pays a set of orders with one method.
type SettleRequest struct {
	OrderIDs []id.OrderID
	Method   models.PaymentMethod
	Actor    models.Actor
}

// FailedOrder names an order that did not end up paid and why.
type FailedOrder struct {
	OrderID id.OrderID
	Code    dErrors.Code
	Message string
}

// Accrual records the loyalty outcome for one customer of a settlement.
type Accrual struct {
	CustomerID id.CustomerID
	Amount     models.Money
	Points     int64
	Applied    bool
	Err        error
}

// Settlement is the per-order outcome of Settle.
type Settlement struct {
	Settled     []*models.Order
	AlreadyPaid []id.OrderID
	Failed      []FailedOrder
	Accruals    []Accrual
}

// FailedIDs lists the orders that are not paid.
func (s *Settlement) FailedIDs() []id.OrderID {
	out := make([]id.OrderID, 0, len(s.Failed))
	for _, f := range s.Failed {
		out = append(out, f.OrderID)
	}
	return out
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEvents(e EventEmitter) Option {
	return func(s *Service) {
		s.events = e
	}
}

// WithAccrualTimeout bounds each loyalty call made during settlement.
func WithAccrualTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.accrualTimeout = d
		}
	}
}

// Service implements TableBillAggregator and PaymentSettlement.
type Service struct {
	orders         OrderReader
	payer          Payer
	loyalty        Accruer
	events         EventEmitter
	logger         *slog.Logger
	accrualTimeout time.Duration
}

func New(orders OrderReader, payer Payer, loyalty Accruer, opts ...Option) *Service {
	s := &Service{
		orders:         orders,
		payer:          payer,
		loyalty:        loyalty,
		logger:         slog.Default(),
		accrualTimeout: defaultAccrualTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeBill sums the served orders of a table. Orders still in the kitchen
// and orders already paid are not on the bill. An empty bill is valid.
func (s *Service) ComputeBill(ctx context.Context, actor models.Actor, tableID id.TableID) (*Bill, error) {
	if !actor.CanSee(tableID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot view another table's bill")
	}
	served, err := s.orders.ListByTable(ctx, tableID, []models.Status{models.StatusServed})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load table orders")
	}
	bill := &Bill{TableID: tableID, Orders: served}
	for _, o := range served {
		bill.GrandTotal += o.TotalAmount
	}
	return bill, nil
}

// Settle pays each order independently. Orders already paid count as settled.
// Loyalty is accrued once per customer over the orders this call moved to
// paid; accrual failures are logged and never undo a payment. When any order
// is left unpaid the settlement is returned together with a
// partial_settlement error naming those orders.
func (s *Service) Settle(ctx context.Context, req SettleRequest) (result *Settlement, err error) {
	ctx, span := tracer.Start(ctx, "billing.Settle")
	span.SetAttributes(
		attribute.Int("orders", len(req.OrderIDs)),
		attribute.String("method", string(req.Method)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
	}()

	orderIDs, err := distinct(req.OrderIDs)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParsePaymentMethod(string(req.Method)); err != nil {
		return nil, err
	}

	result = &Settlement{}
	for _, orderID := range orderIDs {
		s.settleOne(ctx, orderID, req, result)
	}
	result.Accruals = s.accrue(ctx, result.Settled)
	s.emitSettled(ctx, req, result.Settled)

	s.logger.InfoContext(ctx, "settlement processed",
		"settled", len(result.Settled),
		"already_paid", len(result.AlreadyPaid),
		"failed", len(result.Failed),
		"method", req.Method,
		"actor_role", req.Actor.Role,
		"request_id", requestcontext.RequestID(ctx),
	)

	if len(result.Failed) > 0 {
		return result, dErrors.New(dErrors.CodePartialSettlement,
			"orders not settled: "+joinIDs(result.FailedIDs()))
	}
	return result, nil
}

// SettleTable settles every served order on the table's current bill.
func (s *Service) SettleTable(ctx context.Context, actor models.Actor, tableID id.TableID, method models.PaymentMethod) (*Settlement, error) {
	bill, err := s.ComputeBill(ctx, actor, tableID)
	if err != nil {
		return nil, err
	}
	if len(bill.Orders) == 0 {
		return &Settlement{}, nil
	}
	ids := make([]id.OrderID, 0, len(bill.Orders))
	for _, o := range bill.Orders {
		ids = append(ids, o.ID)
	}
	return s.Settle(ctx, SettleRequest{OrderIDs: ids, Method: method, Actor: actor})
}

func (s *Service) settleOne(ctx context.Context, orderID id.OrderID, req SettleRequest, result *Settlement) {
	current, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		code := dErrors.CodeInternal
		if errors.Is(err, sentinel.ErrNotFound) {
			code = dErrors.CodeNotFound
		}
		result.Failed = append(result.Failed, FailedOrder{OrderID: orderID, Code: code, Message: "order could not be loaded"})
		return
	}
	if current.Status == models.StatusPaid && req.Actor.CanSee(current.TableID) {
		result.AlreadyPaid = append(result.AlreadyPaid, orderID)
		return
	}

	res, err := s.payer.MarkPaid(ctx, orderID, req.Actor, req.Method)
	if err != nil {
		s.logger.WarnContext(ctx, "order not settled",
			"order_id", orderID.String(),
			"status", current.Status,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		result.Failed = append(result.Failed, FailedOrder{
			OrderID: orderID,
			Code:    dErrors.CodeOf(err),
			Message: dErrors.MessageOf(err),
		})
		return
	}
	if !res.Changed {
		result.AlreadyPaid = append(result.AlreadyPaid, orderID)
		return
	}
	result.Settled = append(result.Settled, res.Order)
}

// accrue credits each identified customer once for the orders settled here.
func (s *Service) accrue(ctx context.Context, settled []*models.Order) []Accrual {
	if s.loyalty == nil || len(settled) == 0 {
		return nil
	}
	type spend struct {
		amount models.Money
		orders []string
	}
	byCustomer := make(map[id.CustomerID]*spend)
	var customers []id.CustomerID
	for _, o := range settled {
		if o.IsAnonymous() {
			continue
		}
		sp, ok := byCustomer[o.CustomerID]
		if !ok {
			sp = &spend{}
			byCustomer[o.CustomerID] = sp
			customers = append(customers, o.CustomerID)
		}
		sp.amount += o.TotalAmount
		sp.orders = append(sp.orders, o.ID.String())
	}

	accruals := make([]Accrual, 0, len(customers))
	for _, customerID := range customers {
		sp := byCustomer[customerID]
		slices.Sort(sp.orders)
		reference := "settlement:" + strings.Join(sp.orders, ",")

		actx, cancel := context.WithTimeout(ctx, s.accrualTimeout)
		res, err := s.loyalty.Accrue(actx, customerID, int64(sp.amount), reference)
		cancel()

		accrual := Accrual{CustomerID: customerID, Amount: sp.amount, Err: err}
		if err != nil {
			s.logger.ErrorContext(ctx, "loyalty accrual failed; payment stands",
				"customer_id", customerID.String(),
				"amount", int64(sp.amount),
				"reference", reference,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		} else {
			accrual.Points = res.PointsEarned
			accrual.Applied = res.Applied
		}
		accruals = append(accruals, accrual)
	}
	return accruals
}

func (s *Service) emitSettled(ctx context.Context, req SettleRequest, settled []*models.Order) {
	if s.events == nil || len(settled) == 0 {
		return
	}
	byTable := make(map[id.TableID][]*models.Order)
	var tables []id.TableID
	for _, o := range settled {
		if _, ok := byTable[o.TableID]; !ok {
			tables = append(tables, o.TableID)
		}
		byTable[o.TableID] = append(byTable[o.TableID], o)
	}
	for _, tableID := range tables {
		orders := byTable[tableID]
		e := events.Event{
			Type:      events.TypeOrderSettled,
			TableID:   tableID,
			To:        string(models.StatusPaid),
			ActorRole: string(req.Actor.Role),
		}
		for _, o := range orders {
			e.OrderIDs = append(e.OrderIDs, o.ID)
			e.Amount += int64(o.TotalAmount)
		}
		s.events.Emit(ctx, e)
	}
}

func distinct(orderIDs []id.OrderID) ([]id.OrderID, error) {
	if len(orderIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no orders to settle")
	}
	if len(orderIDs) > maxOrdersPerSettlement {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "too many orders in one settlement")
	}
	seen := make(map[id.OrderID]bool, len(orderIDs))
	out := make([]id.OrderID, 0, len(orderIDs))
	for _, oid := range orderIDs {
		if seen[oid] {
			continue
		}
		seen[oid] = true
		out = append(out, oid)
	}
	return out, nil
}

func joinIDs(ids []id.OrderID) string {
	parts := make([]string, 0, len(ids))
	for _, oid := range ids {
		parts = append(parts, oid.String())
	}
	return strings.Join(parts, ", ")
}
