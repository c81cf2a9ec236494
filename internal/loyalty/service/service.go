package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dinein/internal/loyalty/models"
	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/sentinel"
	"dinein/pkg/requestcontext"
)

// Store persists accounts and the accrual ledger.
type Store interface {
	FindAccount(ctx context.Context, customerID id.CustomerID) (*models.Account, error)
	LockAccount(ctx context.Context, customerID id.CustomerID) (*models.Account, error)
	CreateAccount(ctx context.Context, acct *models.Account) error
	SaveAccount(ctx context.Context, acct *models.Account) error
	AppendLedger(ctx context.Context, entry models.LedgerEntry) error
	ListLedger(ctx context.Context, customerID id.CustomerID) ([]models.LedgerEntry, error)
}

// SummaryCache holds read-side summaries. Get returns (nil, nil) on a miss.
type SummaryCache interface {
	Get(ctx context.Context, customerID id.CustomerID) (*models.Summary, error)
	Set(ctx context.Context, summary *models.Summary) error
	Invalidate(ctx context.Context, customerID id.CustomerID) error
}

// Service applies accruals and answers loyalty summaries.
type Service struct {
	store  Store
	tx     StoreTx
	cache  SummaryCache
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTx replaces the default in-memory lock with a database transaction
// runner.
func WithTx(t StoreTx) Option {
	return func(s *Service) {
		s.tx = t
	}
}

func WithCache(c SummaryCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = NewShardedTx(store)
	}
	return s
}

// AccrualResult reports what an accrual did. Applied is false when the
// reference had already been credited.
type AccrualResult struct {
	Account      *models.Account
	PointsEarned int64
	Applied      bool
}

// OpenAccount creates a Bronze account with no points. Opening an existing
// account returns it unchanged.
func (s *Service) OpenAccount(ctx context.Context, customerID id.CustomerID) (*models.Account, error) {
	if customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "customer id is required")
	}
	acct := models.NewAccount(customerID, requestcontext.Now(ctx))
	err := s.store.CreateAccount(ctx, acct)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "loyalty account opened",
			"customer_id", customerID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return acct, nil
	case errors.Is(err, sentinel.ErrConflict):
		existing, err := s.store.FindAccount(ctx, customerID)
		if err != nil {
			return nil, wrapStoreErr(err, "load loyalty account")
		}
		return existing, nil
	default:
		return nil, wrapStoreErr(err, "open loyalty account")
	}
}

// Accrue credits floor(amount / 10000) points under reference and recomputes
// the tier. The account is opened on first accrual. Repeating a reference
// credits nothing.
func (s *Service) Accrue(ctx context.Context, customerID id.CustomerID, amount int64, reference string) (*AccrualResult, error) {
	if customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "customer id is required")
	}
	if amount < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must not be negative")
	}
	if reference == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "accrual reference is required")
	}

	now := requestcontext.Now(ctx)
	result := &AccrualResult{PointsEarned: models.PointsEarned(amount)}
	err := s.tx.RunInTx(withTxCustomer(ctx, customerID), func(ctx context.Context, store Store) error {
		acct, err := lockOrOpen(ctx, store, customerID, now)
		if err != nil {
			return err
		}
		err = store.AppendLedger(ctx, models.LedgerEntry{
			CustomerID: customerID,
			Reference:  reference,
			Amount:     amount,
			Points:     result.PointsEarned,
			CreatedAt:  now,
		})
		if errors.Is(err, sentinel.ErrAlreadyApplied) {
			result.Account = acct
			return nil
		}
		if err != nil {
			return err
		}
		acct.Add(result.PointsEarned, now)
		if err := store.SaveAccount(ctx, acct); err != nil {
			return err
		}
		result.Account = acct
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "accrue loyalty points")
	}

	if !result.Applied {
		s.logger.InfoContext(ctx, "loyalty accrual already applied",
			"customer_id", customerID.String(),
			"reference", reference,
			"request_id", requestcontext.RequestID(ctx),
		)
		return result, nil
	}
	s.invalidate(ctx, customerID)
	s.logger.InfoContext(ctx, "loyalty points accrued",
		"customer_id", customerID.String(),
		"reference", reference,
		"points", result.PointsEarned,
		"total_points", result.Account.TotalPoints,
		"tier", result.Account.Tier,
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

func lockOrOpen(ctx context.Context, store Store, customerID id.CustomerID, now time.Time) (*models.Account, error) {
	acct, err := store.LockAccount(ctx, customerID)
	if err == nil || !errors.Is(err, sentinel.ErrNotFound) {
		return acct, err
	}
	if err := store.CreateAccount(ctx, models.NewAccount(customerID, now)); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return nil, err
	}
	return store.LockAccount(ctx, customerID)
}

// Summary returns points, tier and the distance to the next tier.
func (s *Service) Summary(ctx context.Context, customerID id.CustomerID) (*models.Summary, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, customerID)
		if err != nil {
			s.logger.WarnContext(ctx, "loyalty summary cache read failed",
				"customer_id", customerID.String(),
				"error", err,
			)
		} else if cached != nil {
			return cached, nil
		}
	}

	acct, err := s.store.FindAccount(ctx, customerID)
	if err != nil {
		return nil, wrapStoreErr(err, "load loyalty account")
	}
	summary := models.SummaryOf(acct)
	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			s.logger.WarnContext(ctx, "loyalty summary cache write failed",
				"customer_id", customerID.String(),
				"error", err,
			)
		}
	}
	return summary, nil
}

// Ledger lists the accruals credited to a customer, oldest first.
func (s *Service) Ledger(ctx context.Context, customerID id.CustomerID) ([]models.LedgerEntry, error) {
	if _, err := s.store.FindAccount(ctx, customerID); err != nil {
		return nil, wrapStoreErr(err, "load loyalty account")
	}
	entries, err := s.store.ListLedger(ctx, customerID)
	if err != nil {
		return nil, wrapStoreErr(err, "list loyalty ledger")
	}
	return entries, nil
}

func (s *Service) invalidate(ctx context.Context, customerID id.CustomerID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, customerID); err != nil {
		s.logger.WarnContext(ctx, "loyalty summary cache invalidation failed",
			"customer_id", customerID.String(),
			"error", err,
		)
	}
}

func wrapStoreErr(err error, action string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "loyalty account not found")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, action+" timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}
