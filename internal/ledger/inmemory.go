package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type inMemoryLedger struct {
	mu        sync.RWMutex
	wallets   map[string]Wallet
	byOwner   map[string]string
	entries   map[string][]Transaction
	clientTxs map[string]struct{}
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests. A single mutex serializes all mutations, which trivially satisfies
// the per-wallet serialization contract.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets:   make(map[string]Wallet),
		byOwner:   make(map[string]string),
		entries:   make(map[string][]Transaction),
		clientTxs: make(map[string]struct{}),
	}
}

func (l *inMemoryLedger) CreateWallet(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byOwner[ownerID]; exists {
		return Wallet{}, ErrWalletExists
	}
	w := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		Currency:  "USD",
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	l.wallets[w.ID] = w
	l.byOwner[ownerID] = w.ID
	return w, nil
}

func (l *inMemoryLedger) Get(_ context.Context, walletID string) (Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wallets[walletID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (l *inMemoryLedger) GetByOwner(_ context.Context, ownerID string) (Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.byOwner[ownerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return l.wallets[id], nil
}

func (l *inMemoryLedger) Debit(_ context.Context, walletID string, amount decimal.Decimal, meta TxMeta) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.post(walletID, amount.Neg(), meta)
}

func (l *inMemoryLedger) Credit(_ context.Context, walletID string, amount decimal.Decimal, meta TxMeta) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.post(walletID, amount, meta)
}

// post mutates the balance and appends the ledger entry under the held lock.
func (l *inMemoryLedger) post(walletID string, signed decimal.Decimal, meta TxMeta) (Transaction, error) {
	w, ok := l.wallets[walletID]
	if !ok {
		return Transaction{}, ErrWalletNotFound
	}
	if meta.ClientTxID != "" {
		if _, exists := l.clientTxs[meta.ClientTxID]; exists {
			return Transaction{}, ErrDuplicateTransaction
		}
	}

	next := w.Balance.Add(signed)
	if next.IsNegative() {
		return Transaction{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, signed.Neg(), w.Balance)
	}

	w.Balance = next
	l.wallets[walletID] = w

	entry := Transaction{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Type:        meta.Type,
		Amount:      signed,
		Status:      StatusCompleted,
		Description: meta.Description,
		Reference:   meta.Reference,
		ClientTxID:  meta.ClientTxID,
		CreatedAt:   time.Now().UTC(),
	}
	l.entries[walletID] = append(l.entries[walletID], entry)
	if meta.ClientTxID != "" {
		l.clientTxs[meta.ClientTxID] = struct{}{}
	}
	return entry, nil
}

func (l *inMemoryLedger) Transactions(_ context.Context, walletID string, filter TxFilter, page Page) ([]Transaction, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.wallets[walletID]; !ok {
		return nil, 0, ErrWalletNotFound
	}
	if page.Limit <= 0 {
		page.Limit = 25
	}

	all := l.entries[walletID]
	var matched []Transaction
	for i := len(all) - 1; i >= 0; i-- { // newest first
		t := all[i]
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		matched = append(matched, t)
	}

	total := len(matched)
	if page.Offset >= total {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return matched[page.Offset:end], total, nil
}
