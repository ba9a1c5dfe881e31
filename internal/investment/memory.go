package investment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terravest/terravest/internal/ledger"
)

// MemoryStore is an in-memory Store for tests, backed by the in-memory
// ledger. One mutex serializes all lifecycle mutations, which covers the
// per-investment serialization contract.
type MemoryStore struct {
	mu      sync.Mutex
	ledger  ledger.Ledger
	storage map[string]Investment
}

// NewMemoryStore constructs an in-memory investment store over the ledger.
func NewMemoryStore(l ledger.Ledger) *MemoryStore {
	return &MemoryStore{ledger: l, storage: make(map[string]Investment)}
}

func (s *MemoryStore) Create(ctx context.Context, inv Investment, clientTxID string) (Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.ledger.GetByOwner(ctx, inv.UserID)
	if err != nil {
		return Investment{}, err
	}
	if _, err := s.ledger.Debit(ctx, w.ID, inv.Amount, ledger.TxMeta{
		Type:        ledger.TxInvestment,
		Description: fmt.Sprintf("investment in plan %s", inv.PlanID),
		Reference:   inv.ID,
		ClientTxID:  clientTxID,
	}); err != nil {
		return Investment{}, err
	}

	s.storage[inv.ID] = inv
	return inv, nil
}

func (s *MemoryStore) Mature(ctx context.Context, id string, actualReturn *decimal.Decimal, now time.Time) (Investment, *Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.storage[id]
	if !ok {
		return Investment{}, nil, ErrNotFound
	}
	if inv.Status != StatusActive {
		return Investment{}, nil, fmt.Errorf("%w: status %s", ErrNotActive, inv.Status)
	}

	actual := inv.ExpectedReturn
	if actualReturn != nil {
		actual = *actualReturn
	}
	payout := inv.Amount.Add(actual)

	var spawned *Investment
	if inv.Reinvest {
		next := Investment{
			ID:             uuid.NewString(),
			UserID:         inv.UserID,
			PlanID:         inv.PlanID,
			Type:           inv.Type,
			Amount:         payout,
			ReturnRate:     inv.ReturnRate,
			DurationMonths: inv.DurationMonths,
			ExpectedReturn: payout.Mul(inv.ReturnRate).Round(2),
			Status:         StatusActive,
			Reinvest:       true,
			StartDate:      now,
			EndDate:        now.AddDate(0, inv.DurationMonths, 0),
			CreatedAt:      now,
		}
		s.storage[next.ID] = next
		spawned = &next
	} else {
		w, err := s.ledger.GetByOwner(ctx, inv.UserID)
		if err != nil {
			return Investment{}, nil, err
		}
		if _, err := s.ledger.Credit(ctx, w.ID, payout, ledger.TxMeta{
			Type:        ledger.TxReturn,
			Description: fmt.Sprintf("maturation of investment %s", inv.ID),
			Reference:   inv.ID,
		}); err != nil {
			return Investment{}, nil, err
		}
	}

	inv.Status = StatusMatured
	inv.ActualReturn = &actual
	inv.EndDate = now
	s.storage[inv.ID] = inv
	return inv, spawned, nil
}

func (s *MemoryStore) Cancel(ctx context.Context, id string, now time.Time) (Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.storage[id]
	if !ok {
		return Investment{}, ErrNotFound
	}
	if inv.Status != StatusActive {
		return Investment{}, fmt.Errorf("%w: status %s", ErrNotActive, inv.Status)
	}

	w, err := s.ledger.GetByOwner(ctx, inv.UserID)
	if err != nil {
		return Investment{}, err
	}
	if _, err := s.ledger.Credit(ctx, w.ID, inv.Amount, ledger.TxMeta{
		Type:        ledger.TxReturn,
		Description: fmt.Sprintf("cancellation of investment %s", inv.ID),
		Reference:   inv.ID,
	}); err != nil {
		return Investment{}, err
	}

	inv.Status = StatusCancelled
	inv.EndDate = now
	s.storage[inv.ID] = inv
	return inv, nil
}

func (s *MemoryStore) PayCommission(ctx context.Context, id string) (Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.storage[id]
	if !ok {
		return Investment{}, ErrNotFound
	}
	if inv.ReferrerID == "" || inv.CommissionAmount.IsZero() {
		return Investment{}, ErrNoCommission
	}
	if inv.CommissionPaid {
		return Investment{}, ErrCommissionAlreadyPaid
	}

	w, err := s.ledger.GetByOwner(ctx, inv.ReferrerID)
	if err != nil {
		return Investment{}, err
	}
	if _, err := s.ledger.Credit(ctx, w.ID, inv.CommissionAmount, ledger.TxMeta{
		Type:        ledger.TxCommission,
		Description: fmt.Sprintf("referral commission for investment %s", inv.ID),
		Reference:   inv.ID,
	}); err != nil {
		return Investment{}, err
	}

	inv.CommissionPaid = true
	s.storage[inv.ID] = inv
	return inv, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.storage[id]
	if !ok {
		return Investment{}, ErrNotFound
	}
	return inv, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var investments []Investment
	for _, inv := range s.storage {
		if inv.UserID == userID {
			investments = append(investments, inv)
		}
	}
	sort.Slice(investments, func(i, j int) bool {
		return investments[i].CreatedAt.After(investments[j].CreatedAt)
	})
	return investments, nil
}

func (s *MemoryStore) ListDue(_ context.Context, asOf time.Time) ([]Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Investment
	for _, inv := range s.storage {
		if inv.Status == StatusActive && !inv.EndDate.After(asOf) {
			due = append(due, inv)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].EndDate.Before(due[j].EndDate) })
	return due, nil
}
