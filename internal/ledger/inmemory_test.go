package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestInMemoryLedger_DebitCreditConservation(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	w, err := l.CreateWallet(ctx, "owner-a")
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	if _, err := l.Credit(ctx, w.ID, dec("1000"), TxMeta{Type: TxDeposit, Description: "initial deposit"}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if _, err := l.Debit(ctx, w.ID, dec("400"), TxMeta{Type: TxInvestment}); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	got, err := l.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !got.Balance.Equal(dec("600")) {
		t.Fatalf("expected balance 600, got %s", got.Balance)
	}
	if !SumEntries(l, w.ID).Equal(got.Balance) {
		t.Fatalf("balance %s diverges from entry sum %s", got.Balance, SumEntries(l, w.ID))
	}
}

func TestInMemoryLedger_DebitInsufficientFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	w, _ := l.CreateWallet(ctx, "owner-a")
	SeedBalance(l, w.ID, dec("100"))

	if _, err := l.Debit(ctx, w.ID, dec("500"), TxMeta{Type: TxInvestment}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	got, _ := l.Get(ctx, w.ID)
	if !got.Balance.Equal(dec("100")) {
		t.Fatalf("failed debit must not change balance, got %s", got.Balance)
	}
}

func TestInMemoryLedger_RejectsNonPositiveAmounts(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	w, _ := l.CreateWallet(ctx, "owner-a")

	if _, err := l.Credit(ctx, w.ID, decimal.Zero, TxMeta{Type: TxDeposit}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.Debit(ctx, w.ID, dec("-5"), TxMeta{Type: TxWithdrawal}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative debit must not turn into a credit, got %v", err)
	}
}

func TestInMemoryLedger_DuplicateClientTxID(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	w, _ := l.CreateWallet(ctx, "owner-a")

	if _, err := l.Credit(ctx, w.ID, dec("50"), TxMeta{Type: TxDeposit, ClientTxID: "dup"}); err != nil {
		t.Fatalf("initial credit failed: %v", err)
	}
	if _, err := l.Credit(ctx, w.ID, dec("50"), TxMeta{Type: TxDeposit, ClientTxID: "dup"}); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	got, _ := l.Get(ctx, w.ID)
	if !got.Balance.Equal(dec("50")) {
		t.Fatalf("replay must not credit twice, balance %s", got.Balance)
	}
}

func TestInMemoryLedger_ConcurrentDebits(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	w, _ := l.CreateWallet(ctx, "owner-a")
	SeedBalance(l, w.ID, dec("500"))

	// 10 workers each try to take 100; only 5 can succeed.
	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Debit(ctx, w.ID, dec("100"), TxMeta{Type: TxWithdrawal, ClientTxID: fmt.Sprintf("w-%d", i)})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("debit %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 5 {
		t.Fatalf("expected 5 successful debits, got %d", successes)
	}
	got, _ := l.Get(ctx, w.ID)
	if !got.Balance.Equal(decimal.Zero) {
		t.Fatalf("expected zero balance, got %s", got.Balance)
	}
	if got.Balance.IsNegative() {
		t.Fatalf("balance went negative: %s", got.Balance)
	}
}

func TestInMemoryLedger_TransactionsFilterAndPage(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	w, _ := l.CreateWallet(ctx, "owner-a")

	for i := 0; i < 3; i++ {
		if _, err := l.Credit(ctx, w.ID, dec("10"), TxMeta{Type: TxDeposit}); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}
	if _, err := l.Debit(ctx, w.ID, dec("5"), TxMeta{Type: TxInvestment}); err != nil {
		t.Fatalf("debit: %v", err)
	}

	deposits, total, err := l.Transactions(ctx, w.ID, TxFilter{Type: TxDeposit}, Page{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(deposits) != 2 {
		t.Fatalf("expected total 3 page 2, got total %d page %d", total, len(deposits))
	}

	all, total, err := l.Transactions(ctx, w.ID, TxFilter{}, Page{Limit: 10})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 entries, got %d", total)
	}
	// Newest first: the debit should lead.
	if !all[0].Amount.IsNegative() {
		t.Fatalf("expected newest entry to be the debit, got %+v", all[0])
	}
}
