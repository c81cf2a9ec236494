package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dinein/internal/loyalty/models"
	"dinein/internal/platform/postgres"
	id "dinein/pkg/domain"
	"dinein/pkg/platform/sentinel"
	"dinein/pkg/platform/tx"
)

// Postgres persists loyalty accounts and the accrual ledger. Writes join the
// ambient transaction when the context carries one.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const accountColumns = `customer_id, total_points, tier, updated_at`

func (s *Postgres) FindAccount(ctx context.Context, customerID id.CustomerID) (*models.Account, error) {
	return s.findAccount(ctx, customerID, `SELECT `+accountColumns+` FROM loyalty_accounts WHERE customer_id = $1`)
}

// LockAccount reads the account with a row lock held until the surrounding
// transaction ends.
func (s *Postgres) LockAccount(ctx context.Context, customerID id.CustomerID) (*models.Account, error) {
	return s.findAccount(ctx, customerID, `SELECT `+accountColumns+` FROM loyalty_accounts WHERE customer_id = $1 FOR UPDATE`)
}

func (s *Postgres) findAccount(ctx context.Context, customerID id.CustomerID, query string) (*models.Account, error) {
	var (
		rawID   string
		acct    models.Account
		rawTier string
	)
	err := tx.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, customerID.String()).
		Scan(&rawID, &acct.TotalPoints, &rawTier, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loyalty account %s: %w", customerID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find loyalty account: %w", err)
	}
	acct.CustomerID, err = id.ParseCustomerID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse customer id: %w", err)
	}
	acct.Tier, err = models.ParseTier(rawTier)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Postgres) CreateAccount(ctx context.Context, acct *models.Account) error {
	res, err := tx.ExecutorFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO loyalty_accounts (customer_id, total_points, tier, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id) DO NOTHING`,
		acct.CustomerID.String(), acct.TotalPoints, string(acct.Tier), acct.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loyalty account: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("insert loyalty account: %w", err)
	} else if n == 0 {
		return fmt.Errorf("loyalty account %s: %w", acct.CustomerID, sentinel.ErrConflict)
	}
	return nil
}

func (s *Postgres) SaveAccount(ctx context.Context, acct *models.Account) error {
	res, err := tx.ExecutorFor(ctx, s.db).ExecContext(ctx, `
		UPDATE loyalty_accounts SET total_points = $2, tier = $3, updated_at = $4
		WHERE customer_id = $1`,
		acct.CustomerID.String(), acct.TotalPoints, string(acct.Tier), acct.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update loyalty account: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update loyalty account: %w", err)
	} else if n == 0 {
		return fmt.Errorf("loyalty account %s: %w", acct.CustomerID, sentinel.ErrNotFound)
	}
	return nil
}

// AppendLedger records an accrual. A reference already on the ledger for the
// customer yields ErrAlreadyApplied without aborting the transaction.
func (s *Postgres) AppendLedger(ctx context.Context, entry models.LedgerEntry) error {
	res, err := tx.ExecutorFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO loyalty_ledger (customer_id, reference, amount, points, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, reference) DO NOTHING`,
		entry.CustomerID.String(), entry.Reference, entry.Amount, entry.Points, entry.CreatedAt,
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("loyalty account %s: %w", entry.CustomerID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	} else if n == 0 {
		return fmt.Errorf("accrual %s: %w", entry.Reference, sentinel.ErrAlreadyApplied)
	}
	return nil
}

func (s *Postgres) ListLedger(ctx context.Context, customerID id.CustomerID) ([]models.LedgerEntry, error) {
	rows, err := tx.ExecutorFor(ctx, s.db).QueryContext(ctx, `
		SELECT reference, amount, points, created_at FROM loyalty_ledger
		WHERE customer_id = $1 ORDER BY created_at, id`, customerID.String())
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e := models.LedgerEntry{CustomerID: customerID}
		var createdAt time.Time
		if err := rows.Scan(&e.Reference, &e.Amount, &e.Points, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.CreatedAt = createdAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
