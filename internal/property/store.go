package property

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store owns the atomic units of the purchase lifecycle: the wallet debit,
// the ledger entry and the purchase write commit or roll back together, with
// the payment precondition checked inside the same unit.
type Store interface {
	// Create debits the first charge (the full price, or the first
	// installment) and persists the purchase.
	Create(ctx context.Context, p Purchase, charge decimal.Decimal, clientTxID string) (Purchase, error)

	// PayInstallment debits the next installment under the purchase's lock,
	// advancing the schedule and completing the purchase when the last
	// installment settles. Paying a completed purchase fails ErrAlreadyPaid.
	PayInstallment(ctx context.Context, id string, now time.Time) (Purchase, error)

	Get(ctx context.Context, id string) (Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]Purchase, error)
}
