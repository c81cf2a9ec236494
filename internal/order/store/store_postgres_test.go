package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"dinein/internal/order/models"
	id "dinein/pkg/domain"
	"dinein/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *Postgres
	ctx   context.Context
	now   time.Time
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = db
	s.mock = mock
	s.store = NewPostgres(db)
	s.ctx = context.Background()
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

var orderCols = []string{"id", "table_id", "customer_id", "customer_name", "status", "total_amount", "notes",
	"payment_method", "cancel_reason", "version", "created_at", "updated_at", "paid_at"}

var itemCols = []string{"id", "order_id", "menu_item_id", "name", "quantity", "price_per_unit", "modifiers", "total_price"}

func (s *PostgresStoreSuite) expectLoad(orderID id.OrderID, status models.Status, version int64, paidAt any) {
	s.mock.ExpectQuery(`SELECT id, table_id, customer_id, .* FROM orders WHERE id = \$1`).
		WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(
			orderID.String(), "A1", uuid.NewString(), "", string(status), int64(50000), "",
			nil, nil, version, s.now, s.now, paidAt,
		))
	s.mock.ExpectQuery(`FROM order_items WHERE order_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(
			uuid.NewString(), orderID.String(), "nasi-goreng", "Nasi Goreng", 2, int64(25000), []byte(`[]`), int64(50000),
		))
}

func (s *PostgresStoreSuite) TestCompareAndTransitionApplied() {
	orderID := id.NewOrderID()
	change := models.StatusChange{
		OrderID: orderID,
		From:    models.StatusPending,
		To:      models.StatusAccepted,
		ActorID: id.ActorID(uuid.New()),
		Role:    models.RoleKitchen,
		At:      s.now,
	}

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`UPDATE orders SET .* WHERE id = \$1 AND status = \$2\s+RETURNING version`).
		WithArgs(orderID.String(), "pending", "accepted", s.now, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(1)))
	s.mock.ExpectExec(`INSERT INTO order_status_log`).
		WithArgs(orderID.String(), "pending", "accepted", sqlmock.AnyArg(), "kitchen", "", int64(1), s.now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.mock.ExpectCommit()
	s.expectLoad(orderID, models.StatusAccepted, 1, nil)

	order, applied, err := s.store.CompareAndTransition(s.ctx, change)
	s.Require().NoError(err)
	s.True(applied)
	s.Equal(models.StatusAccepted, order.Status)
	s.Equal(int64(1), order.Version)
	s.Require().Len(order.Items, 1)
	s.Equal(models.Money(50000), order.Items[0].TotalPrice)
}

func (s *PostgresStoreSuite) TestCompareAndTransitionStale() {
	orderID := id.NewOrderID()
	change := models.StatusChange{
		OrderID: orderID,
		From:    models.StatusPending,
		To:      models.StatusCancelled,
		Role:    models.RoleWaiter,
		Reason:  "guest left",
		At:      s.now,
	}

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`UPDATE orders SET`).
		WithArgs(orderID.String(), "pending", "cancelled", s.now, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	s.mock.ExpectCommit()
	s.expectLoad(orderID, models.StatusAccepted, 1, nil)

	order, applied, err := s.store.CompareAndTransition(s.ctx, change)
	s.Require().NoError(err)
	s.False(applied)
	s.Equal(models.StatusAccepted, order.Status)
}

func (s *PostgresStoreSuite) TestCompareAndTransitionFrozenRow() {
	orderID := id.NewOrderID()
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`UPDATE orders SET`).
		WillReturnError(&pq.Error{Code: "23514", Message: "order is immutable"})
	s.mock.ExpectRollback()

	_, _, err := s.store.CompareAndTransition(s.ctx, models.StatusChange{
		OrderID: orderID, From: models.StatusServed, To: models.StatusPaid, At: s.now, PaymentMethod: models.PaymentCash,
	})
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestFindByIDNotFound() {
	orderID := id.NewOrderID()
	s.mock.ExpectQuery(`FROM orders WHERE id = \$1`).
		WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := s.store.FindByID(s.ctx, orderID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByIDPaid() {
	orderID := id.NewOrderID()
	paidAt := s.now.Add(time.Hour)
	s.expectLoad(orderID, models.StatusPaid, 5, paidAt)

	order, err := s.store.FindByID(s.ctx, orderID)
	s.Require().NoError(err)
	s.Require().NotNil(order.PaidAt)
	s.Equal(paidAt, *order.PaidAt)
}

func (s *PostgresStoreSuite) TestCreate() {
	item, err := models.NewOrderItem("es-teh", "Es Teh", 2, 8000, []models.ModifierSelection{{OptionID: "large", Name: "Large", PriceDelta: 2000}})
	s.Require().NoError(err)
	order, err := models.NewOrder(id.NewOrderID(), "A1", id.CustomerID{}, "Budi", "", []models.OrderItem{item}, s.now)
	s.Require().NoError(err)

	s.Run("inserts order and items in one transaction", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectExec(`INSERT INTO orders`).
			WithArgs(order.ID.String(), "A1", nil, "Budi", "pending", int64(20000), "", int64(0), s.now, s.now).
			WillReturnResult(sqlmock.NewResult(1, 1))
		s.mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(item.ID.String(), order.ID.String(), 0, "es-teh", "Es Teh", 2, int64(8000), sqlmock.AnyArg(), int64(20000)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		s.mock.ExpectCommit()

		s.Require().NoError(s.store.Create(s.ctx, order))
	})

	s.Run("duplicate id maps to conflict", func() {
		s.mock.ExpectBegin()
		s.mock.ExpectExec(`INSERT INTO orders`).WillReturnError(&pq.Error{Code: "23505"})
		s.mock.ExpectRollback()

		s.ErrorIs(s.store.Create(s.ctx, order), sentinel.ErrConflict)
	})
}

func (s *PostgresStoreSuite) TestUpdateNotesRejectedOutsidePending() {
	orderID := id.NewOrderID()
	s.mock.ExpectExec(`UPDATE orders SET notes = \$2, updated_at = \$3\s+WHERE id = \$1 AND status = 'pending'`).
		WithArgs(orderID.String(), "no ice", s.now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.expectLoad(orderID, models.StatusPaid, 5, s.now)

	_, err := s.store.UpdateNotes(s.ctx, orderID, "no ice", s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *PostgresStoreSuite) TestListByStatus() {
	first, second := id.NewOrderID(), id.NewOrderID()
	s.mock.ExpectQuery(`FROM orders WHERE status = ANY\(\$1\) ORDER BY created_at, id`).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(first.String(), "A1", nil, "Ani", "accepted", int64(100), "", nil, nil, int64(1), s.now, s.now, nil).
			AddRow(second.String(), "B2", nil, "Budi", "ready", int64(200), "", nil, nil, int64(3), s.now, s.now, nil))
	s.mock.ExpectQuery(`FROM order_items WHERE order_id = ANY\(\$1\)`).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(uuid.NewString(), first.String(), "a", "A", 1, int64(100), []byte(`[]`), int64(100)).
			AddRow(uuid.NewString(), second.String(), "b", "B", 2, int64(100), []byte(`[{"option_id":"x","group":"g","name":"X","price_delta":0}]`), int64(200)))

	orders, err := s.store.ListByStatus(s.ctx, models.KitchenStatuses)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)
	s.True(orders[0].IsAnonymous())
	s.Require().Len(orders[1].Items, 1)
	s.Require().Len(orders[1].Items[0].Modifiers, 1)
	s.Equal(id.ModifierOptionID("x"), orders[1].Items[0].Modifiers[0].OptionID)
}

func (s *PostgresStoreSuite) TestHistory() {
	orderID := id.NewOrderID()
	actor := uuid.New()
	s.mock.ExpectQuery(`SELECT EXISTS`).WithArgs(orderID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	s.mock.ExpectQuery(`FROM order_status_log WHERE order_id = \$1 ORDER BY version`).
		WillReturnRows(sqlmock.NewRows([]string{"from_status", "to_status", "actor_id", "actor_role", "reason", "version", "at"}).
			AddRow("pending", "accepted", actor.String(), "waiter", "", int64(1), s.now).
			AddRow("accepted", "cancelled", nil, "admin", "kitchen closed", int64(2), s.now))

	history, err := s.store.History(s.ctx, orderID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(id.ActorID(actor), history[0].ActorID)
	s.True(history[1].ActorID.IsNil())
	s.Equal("kitchen closed", history[1].Reason)
}
