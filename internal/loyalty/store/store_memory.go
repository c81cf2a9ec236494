package store

import (
	"context"
	"fmt"
	"sync"

	"dinein/internal/loyalty/models"
	id "dinein/pkg/domain"
	"dinein/pkg/platform/sentinel"
)

// InMemory keeps loyalty accounts and their ledger in process memory.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.CustomerID]models.Account
	ledger   map[id.CustomerID][]models.LedgerEntry
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[id.CustomerID]models.Account),
		ledger:   make(map[id.CustomerID][]models.LedgerEntry),
	}
}

func (s *InMemory) FindAccount(_ context.Context, customerID id.CustomerID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[customerID]
	if !ok {
		return nil, fmt.Errorf("loyalty account %s: %w", customerID, sentinel.ErrNotFound)
	}
	return &acct, nil
}

// LockAccount is FindAccount; callers serialize through the service's
// transaction runner.
func (s *InMemory) LockAccount(ctx context.Context, customerID id.CustomerID) (*models.Account, error) {
	return s.FindAccount(ctx, customerID)
}

func (s *InMemory) CreateAccount(_ context.Context, acct *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.CustomerID]; ok {
		return fmt.Errorf("loyalty account %s: %w", acct.CustomerID, sentinel.ErrConflict)
	}
	s.accounts[acct.CustomerID] = *acct
	return nil
}

func (s *InMemory) SaveAccount(_ context.Context, acct *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.CustomerID]; !ok {
		return fmt.Errorf("loyalty account %s: %w", acct.CustomerID, sentinel.ErrNotFound)
	}
	s.accounts[acct.CustomerID] = *acct
	return nil
}

func (s *InMemory) AppendLedger(_ context.Context, entry models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[entry.CustomerID]; !ok {
		return fmt.Errorf("loyalty account %s: %w", entry.CustomerID, sentinel.ErrNotFound)
	}
	for _, existing := range s.ledger[entry.CustomerID] {
		if existing.Reference == entry.Reference {
			return fmt.Errorf("accrual %s: %w", entry.Reference, sentinel.ErrAlreadyApplied)
		}
	}
	s.ledger[entry.CustomerID] = append(s.ledger[entry.CustomerID], entry)
	return nil
}

func (s *InMemory) ListLedger(_ context.Context, customerID id.CustomerID) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.ledger[customerID]
	out := make([]models.LedgerEntry, len(entries))
	copy(out, entries)
	return out, nil
}
