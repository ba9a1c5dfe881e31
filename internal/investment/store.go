package investment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store owns the atomic units of the investment lifecycle. Every mutation
// pairs the investment write with its balance mutation and ledger entry in a
// single indivisible step; the status precondition is evaluated inside that
// same step, never as a separate read.
type Store interface {
	// Create debits the investor's wallet by inv.Amount and persists the
	// active investment. A failed debit leaves no trace; a failed insert
	// restores the balance.
	Create(ctx context.Context, inv Investment, clientTxID string) (Investment, error)

	// Mature closes an active investment. With reinvest unset it credits
	// principal + actualReturn back to the wallet; with reinvest set it
	// spawns a new active investment for principal + actualReturn instead,
	// leaving the wallet untouched. A nil actualReturn defaults to the
	// frozen expected return. Returns the matured row and the spawned
	// reinvestment, if any.
	Mature(ctx context.Context, id string, actualReturn *decimal.Decimal, now time.Time) (Investment, *Investment, error)

	// Cancel closes an active investment, refunding principal only.
	Cancel(ctx context.Context, id string, now time.Time) (Investment, error)

	// PayCommission credits the referrer's wallet with the stamped
	// commission and flips the paid flag, exactly once.
	PayCommission(ctx context.Context, id string) (Investment, error)

	Get(ctx context.Context, id string) (Investment, error)
	ListByUser(ctx context.Context, userID string) ([]Investment, error)
	// ListDue returns active investments whose end date has passed.
	ListDue(ctx context.Context, asOf time.Time) ([]Investment, error)
}
