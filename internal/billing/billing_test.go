package billing

//go:generate mockgen -source=billing.go -destination=mocks/mocks.go -package=mocks Accruer,EventEmitter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dinein/internal/billing/mocks"
	"dinein/internal/events"
	loyaltymodels "dinein/internal/loyalty/models"
	loyaltyservice "dinein/internal/loyalty/service"
	loyaltystore "dinein/internal/loyalty/store"
	"dinein/internal/menu"
	"dinein/internal/order/models"
	orderservice "dinein/internal/order/service"
	orderstore "dinein/internal/order/store"
	"dinein/internal/platform/logger"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/requestcontext"
)

type BillingSuite struct {
	suite.Suite
	ctx      context.Context
	orders   *orderstore.InMemory
	accounts *loyaltystore.InMemory
	loyalty  *loyaltyservice.Service
	service  *Service
	waiter   models.Actor
}

func TestBillingSuite(t *testing.T) {
	suite.Run(t, new(BillingSuite))
}

func (s *BillingSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC))
	s.orders = orderstore.NewInMemory()
	s.accounts = loyaltystore.NewInMemory()
	s.loyalty = loyaltyservice.New(s.accounts, loyaltyservice.WithLogger(logger.Discard()))
	orders := orderservice.New(s.orders, menu.NewInMemory(), orderservice.WithLogger(logger.Discard()))
	s.service = New(s.orders, orders, s.loyalty, WithLogger(logger.Discard()))
	s.waiter = models.Actor{ID: id.ActorID(uuid.New()), Role: models.RoleWaiter}
}

func (s *BillingSuite) seed(table id.TableID, customer id.CustomerID, amount models.Money, status models.Status) *models.Order {
	item, err := models.NewOrderItem("sate-ayam", "Sate Ayam", 1, amount, nil)
	s.Require().NoError(err)
	o, err := models.NewOrder(id.NewOrderID(), table, customer, "Guest", "", []models.OrderItem{item}, requestcontext.Now(s.ctx))
	s.Require().NoError(err)
	o.Status = status
	s.Require().NoError(s.orders.Create(s.ctx, o))
	return o
}

func (s *BillingSuite) points(customer id.CustomerID) int64 {
	acct, err := s.accounts.FindAccount(s.ctx, customer)
	s.Require().NoError(err)
	return acct.TotalPoints
}

func (s *BillingSuite) TestComputeBill() {
	s.Run("only served orders count", func() {
		s.seed("A1", id.CustomerID{}, 100, models.StatusServed)
		s.seed("A1", id.CustomerID{}, 200, models.StatusServed)
		s.seed("A1", id.CustomerID{}, 300, models.StatusPaid)
		s.seed("A1", id.CustomerID{}, 400, models.StatusPreparing)
		s.seed("B2", id.CustomerID{}, 500, models.StatusServed)

		bill, err := s.service.ComputeBill(s.ctx, s.waiter, "A1")
		s.Require().NoError(err)
		s.Len(bill.Orders, 2)
		s.Equal(models.Money(300), bill.GrandTotal)
	})

	s.Run("empty table", func() {
		bill, err := s.service.ComputeBill(s.ctx, s.waiter, "Z9")
		s.Require().NoError(err)
		s.Empty(bill.Orders)
		s.Equal(models.Money(0), bill.GrandTotal)
	})

	s.Run("guest sees only own table", func() {
		_, err := s.service.ComputeBill(s.ctx, models.Actor{Role: models.RoleGuest, TableID: "B2"}, "A1")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *BillingSuite) TestSettle() {
	s.Run("pays orders and accrues once per customer", func() {
		customer := id.CustomerID(uuid.New())
		first := s.seed("C1", customer, 100000, models.StatusServed)
		second := s.seed("C1", customer, 50000, models.StatusServed)
		anon := s.seed("C1", id.CustomerID{}, 70000, models.StatusServed)

		result, err := s.service.Settle(s.ctx, SettleRequest{
			OrderIDs: []id.OrderID{first.ID, second.ID, anon.ID},
			Method:   models.PaymentQRIS,
			Actor:    s.waiter,
		})
		s.Require().NoError(err)
		s.Len(result.Settled, 3)
		s.Require().Len(result.Accruals, 1)
		s.Equal(int64(15), result.Accruals[0].Points)
		s.Equal(int64(15), s.points(customer))

		paid, err := s.orders.FindByID(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPaid, paid.Status)
		s.Equal(models.PaymentQRIS, paid.PaymentMethod)
		s.NotNil(paid.PaidAt)
	})

	s.Run("settling twice succeeds twice with a single accrual", func() {
		customer := id.CustomerID(uuid.New())
		order := s.seed("C2", customer, 150000, models.StatusServed)
		req := SettleRequest{OrderIDs: []id.OrderID{order.ID}, Method: models.PaymentCash, Actor: s.waiter}

		_, err := s.service.Settle(s.ctx, req)
		s.Require().NoError(err)
		again, err := s.service.Settle(s.ctx, req)
		s.Require().NoError(err)
		s.Empty(again.Settled)
		s.Equal([]id.OrderID{order.ID}, again.AlreadyPaid)
		s.Empty(again.Accruals)
		s.Equal(int64(15), s.points(customer))

		summary, err := s.loyalty.Summary(s.ctx, customer)
		s.Require().NoError(err)
		s.Equal(loyaltymodels.TierBronze, summary.Tier)
	})

	s.Run("partial settlement names the unpaid orders", func() {
		served := s.seed("C3", id.CustomerID{}, 20000, models.StatusServed)
		cooking := s.seed("C3", id.CustomerID{}, 30000, models.StatusPreparing)
		missing := id.NewOrderID()

		result, err := s.service.Settle(s.ctx, SettleRequest{
			OrderIDs: []id.OrderID{served.ID, cooking.ID, missing},
			Method:   models.PaymentCard,
			Actor:    s.waiter,
		})
		s.True(dErrors.HasCode(err, dErrors.CodePartialSettlement))
		s.Require().NotNil(result)
		s.Len(result.Settled, 1)
		s.ElementsMatch([]id.OrderID{cooking.ID, missing}, result.FailedIDs())
		s.Contains(err.Error(), cooking.ID.String())

		stillPaid, err := s.orders.FindByID(s.ctx, served.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPaid, stillPaid.Status)
	})

	s.Run("rejects empty and unknown methods", func() {
		_, err := s.service.Settle(s.ctx, SettleRequest{Method: models.PaymentCash, Actor: s.waiter})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.Settle(s.ctx, SettleRequest{OrderIDs: []id.OrderID{id.NewOrderID()}, Method: "barter", Actor: s.waiter})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("kitchen staff cannot take payment", func() {
		order := s.seed("C4", id.CustomerID{}, 20000, models.StatusServed)
		_, err := s.service.Settle(s.ctx, SettleRequest{
			OrderIDs: []id.OrderID{order.ID},
			Method:   models.PaymentCash,
			Actor:    models.Actor{ID: id.ActorID(uuid.New()), Role: models.RoleKitchen},
		})
		s.True(dErrors.HasCode(err, dErrors.CodePartialSettlement))
	})
}

func (s *BillingSuite) TestSettleTable() {
	customer := id.CustomerID(uuid.New())
	s.seed("D1", customer, 100000, models.StatusServed)
	s.seed("D1", customer, 50000, models.StatusServed)
	s.seed("D1", customer, 90000, models.StatusReady)

	guest := models.Actor{Role: models.RoleGuest, TableID: "D1"}
	result, err := s.service.SettleTable(s.ctx, guest, "D1", models.PaymentEWallet)
	s.Require().NoError(err)
	s.Len(result.Settled, 2)
	s.Equal(int64(15), s.points(customer))

	bill, err := s.service.ComputeBill(s.ctx, guest, "D1")
	s.Require().NoError(err)
	s.Equal(models.Money(0), bill.GrandTotal)

	empty, err := s.service.SettleTable(s.ctx, guest, "D1", models.PaymentEWallet)
	s.Require().NoError(err)
	s.Empty(empty.Settled)
}

func (s *BillingSuite) TestAccrualFailureKeepsPayment() {
	ctrl := gomock.NewController(s.T())
	accruer := mocks.NewMockAccruer(ctrl)
	emitter := mocks.NewMockEventEmitter(ctrl)
	orders := orderservice.New(s.orders, menu.NewInMemory(), orderservice.WithLogger(logger.Discard()))
	svc := New(s.orders, orders, accruer,
		WithLogger(logger.Discard()),
		WithEvents(emitter),
		WithAccrualTimeout(time.Second),
	)

	customer := id.CustomerID(uuid.New())
	order := s.seed("E1", customer, 120000, models.StatusServed)

	accruer.EXPECT().Accrue(gomock.Any(), customer, int64(120000), "settlement:"+order.ID.String()).
		Return(nil, errors.New("loyalty store unavailable"))
	emitter.EXPECT().Emit(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e events.Event) {
		s.Equal(events.TypeOrderSettled, e.Type)
		s.Equal(id.TableID("E1"), e.TableID)
		s.Equal(int64(120000), e.Amount)
	})

	result, err := svc.Settle(s.ctx, SettleRequest{OrderIDs: []id.OrderID{order.ID}, Method: models.PaymentCash, Actor: s.waiter})
	s.Require().NoError(err)
	s.Len(result.Settled, 1)
	s.Require().Len(result.Accruals, 1)
	s.Error(result.Accruals[0].Err)

	paid, err := s.orders.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPaid, paid.Status)
}
