package property

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Payment options.
const (
	PaymentFull        = "full"
	PaymentInstallment = "installment"
)

// Purchase statuses. Pending only occurs on installment purchases with
// outstanding payments; completed and cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	// ErrNotFound indicates the referenced purchase does not exist.
	ErrNotFound = errors.New("purchase not found")

	// ErrAlreadyPaid guards completed purchases against further payments.
	ErrAlreadyPaid = errors.New("purchase already paid in full")

	// ErrInvalidInstallments indicates the installment count is out of the
	// property's allowed range.
	ErrInvalidInstallments = errors.New("invalid installment count")

	// ErrNotOwner indicates the caller does not own the purchase.
	ErrNotOwner = errors.New("not owner of purchase")
)

// Purchase records a property or equipment acquisition paid in full or over
// N scheduled debits. Each installment payment is its own ledger entry; the
// final installment settles any rounding remainder so the debits sum exactly
// to the price.
type Purchase struct {
	ID                string
	PropertyID        string
	UserID            string
	Amount            decimal.Decimal
	PaymentType       string
	Status            string
	Installments      int
	InstallmentAmount decimal.Decimal
	PaidInstallments  int
	// NextPaymentDue is nil once the purchase is completed.
	NextPaymentDue *time.Time
	CreatedAt      time.Time
}

// remainder returns the amount still owed on the purchase.
func (p Purchase) remainder() decimal.Decimal {
	settled := p.InstallmentAmount.Mul(decimal.NewFromInt(int64(p.PaidInstallments)))
	return p.Amount.Sub(settled)
}

// nextCharge returns the debit amount for the next installment: the fixed
// installment amount, except on the final installment which settles the
// exact remainder.
func (p Purchase) nextCharge() decimal.Decimal {
	if p.PaidInstallments == p.Installments-1 {
		return p.remainder()
	}
	return p.InstallmentAmount
}
