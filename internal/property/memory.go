package property

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/terravest/terravest/internal/ledger"
)

// MemoryStore is an in-memory Store for tests, backed by the in-memory
// ledger and serialized by a single mutex.
type MemoryStore struct {
	mu      sync.Mutex
	ledger  ledger.Ledger
	storage map[string]Purchase
}

// NewMemoryStore constructs an in-memory purchase store over the ledger.
func NewMemoryStore(l ledger.Ledger) *MemoryStore {
	return &MemoryStore{ledger: l, storage: make(map[string]Purchase)}
}

func (s *MemoryStore) Create(ctx context.Context, p Purchase, charge decimal.Decimal, clientTxID string) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.ledger.GetByOwner(ctx, p.UserID)
	if err != nil {
		return Purchase{}, err
	}
	if _, err := s.ledger.Debit(ctx, w.ID, charge, ledger.TxMeta{
		Type:        ledger.TxPurchase,
		Description: fmt.Sprintf("purchase of property %s", p.PropertyID),
		Reference:   p.ID,
		ClientTxID:  clientTxID,
	}); err != nil {
		return Purchase{}, err
	}

	s.storage[p.ID] = p
	return p, nil
}

func (s *MemoryStore) PayInstallment(ctx context.Context, id string, now time.Time) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.storage[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	if p.Status != StatusPending || p.PaidInstallments >= p.Installments {
		return Purchase{}, fmt.Errorf("%w: status %s", ErrAlreadyPaid, p.Status)
	}

	charge := p.nextCharge()
	w, err := s.ledger.GetByOwner(ctx, p.UserID)
	if err != nil {
		return Purchase{}, err
	}
	if _, err := s.ledger.Debit(ctx, w.ID, charge, ledger.TxMeta{
		Type:        ledger.TxPurchase,
		Description: fmt.Sprintf("installment %d/%d for purchase %s", p.PaidInstallments+1, p.Installments, p.ID),
		Reference:   p.ID,
	}); err != nil {
		return Purchase{}, err
	}

	p.PaidInstallments++
	if p.PaidInstallments == p.Installments {
		p.Status = StatusCompleted
		p.NextPaymentDue = nil
	} else {
		next := now.AddDate(0, 1, 0)
		p.NextPaymentDue = &next
	}
	s.storage[p.ID] = p
	return p, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.storage[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purchases []Purchase
	for _, p := range s.storage {
		if p.UserID == userID {
			purchases = append(purchases, p)
		}
	}
	sort.Slice(purchases, func(i, j int) bool {
		return purchases[i].CreatedAt.After(purchases[j].CreatedAt)
	})
	return purchases, nil
}
