package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that seeds the balance for a wallet when using
// the in-memory ledger. It bypasses the transaction log on purpose: seeded
// funds stand in for deposits that settled before the scenario under test.
func SeedBalance(l Ledger, walletID string, amount decimal.Decimal) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		w, ok := mem.wallets[walletID]
		if !ok {
			return
		}
		w.Balance = amount
		mem.wallets[walletID] = w
	}
}

// SumEntries is a test helper returning the signed sum of all completed
// entries recorded for the wallet, used to assert the conservation invariant
// balance == sum(completed amounts).
func SumEntries(l Ledger, walletID string) decimal.Decimal {
	sum := decimal.Zero
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.RLock()
		defer mem.mu.RUnlock()
		for _, t := range mem.entries[walletID] {
			if t.Status == StatusCompleted {
				sum = sum.Add(t.Amount)
			}
		}
	}
	return sum
}
