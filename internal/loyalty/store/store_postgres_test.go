package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"dinein/internal/loyalty/models"
	id "dinein/pkg/domain"
	"dinein/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *Postgres
	ctx      context.Context
	now      time.Time
	customer id.CustomerID
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = db
	s.mock = mock
	s.store = NewPostgres(db)
	s.ctx = context.Background()
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.customer = id.CustomerID(uuid.New())
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func (s *PostgresStoreSuite) TestFindAccountNormalizesLegacyTier() {
	s.mock.ExpectQuery(`SELECT customer_id, total_points, tier, updated_at FROM loyalty_accounts WHERE customer_id = \$1`).
		WithArgs(s.customer.String()).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "total_points", "tier", "updated_at"}).
			AddRow(s.customer.String(), int64(1200), "Silver", s.now))

	acct, err := s.store.FindAccount(s.ctx, s.customer)
	s.Require().NoError(err)
	s.Equal(models.TierSilver, acct.Tier)
	s.Equal(int64(1200), acct.TotalPoints)
}

func (s *PostgresStoreSuite) TestLockAccountMissing() {
	s.mock.ExpectQuery(`FROM loyalty_accounts WHERE customer_id = \$1 FOR UPDATE`).
		WithArgs(s.customer.String()).
		WillReturnError(sql.ErrNoRows)

	_, err := s.store.LockAccount(s.ctx, s.customer)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestCreateAccountConflict() {
	s.mock.ExpectExec(`INSERT INTO loyalty_accounts .* ON CONFLICT \(customer_id\) DO NOTHING`).
		WithArgs(s.customer.String(), int64(0), "bronze", s.now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.store.CreateAccount(s.ctx, models.NewAccount(s.customer, s.now))
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestAppendLedger() {
	entry := models.LedgerEntry{CustomerID: s.customer, Reference: "settlement:x", Amount: 95000, Points: 9, CreatedAt: s.now}

	s.Run("inserted", func() {
		s.mock.ExpectExec(`INSERT INTO loyalty_ledger`).
			WithArgs(s.customer.String(), "settlement:x", int64(95000), int64(9), s.now).
			WillReturnResult(sqlmock.NewResult(1, 1))
		s.NoError(s.store.AppendLedger(s.ctx, entry))
	})

	s.Run("reference already on the ledger", func() {
		s.mock.ExpectExec(`INSERT INTO loyalty_ledger`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		s.True(errors.Is(s.store.AppendLedger(s.ctx, entry), sentinel.ErrAlreadyApplied))
	})

	s.Run("no account", func() {
		s.mock.ExpectExec(`INSERT INTO loyalty_ledger`).
			WillReturnError(&pq.Error{Code: "23503"})
		s.True(errors.Is(s.store.AppendLedger(s.ctx, entry), sentinel.ErrNotFound))
	})
}

func (s *PostgresStoreSuite) TestSaveAccount() {
	acct := models.NewAccount(s.customer, s.now)
	acct.Add(5000, s.now)

	s.mock.ExpectExec(`UPDATE loyalty_accounts SET total_points = \$2, tier = \$3, updated_at = \$4`).
		WithArgs(s.customer.String(), int64(5000), "gold", s.now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.store.SaveAccount(s.ctx, acct))
}
