package investment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Investment statuses. Active is the only non-terminal state: an investment
// moves to matured or cancelled exactly once and never re-enters active.
const (
	StatusActive    = "active"
	StatusMatured   = "matured"
	StatusCancelled = "cancelled"
)

var (
	// ErrNotFound indicates the referenced investment does not exist.
	ErrNotFound = errors.New("investment not found")

	// ErrNotActive guards terminal states: maturing or cancelling an
	// already-closed investment is rejected rather than silently repeated,
	// which is what prevents double-credits.
	ErrNotActive = errors.New("investment not active")

	// ErrAmountOutOfRange indicates the amount violates the plan's bounds.
	ErrAmountOutOfRange = errors.New("amount out of plan range")

	// ErrKYCRequired indicates the investor's KYC status is not approved.
	ErrKYCRequired = errors.New("kyc approval required")

	// ErrNoCommission indicates the investment carries no referral commission.
	ErrNoCommission = errors.New("no commission on investment")

	// ErrCommissionAlreadyPaid guards the payout against running twice.
	ErrCommissionAlreadyPaid = errors.New("commission already paid")
)

// Investment is a position created by committing wallet funds to a plan for a
// fixed term. ReturnRate and DurationMonths are copies of the plan terms
// frozen at creation; changing the plan later never alters this position, and
// reinvestment reuses the frozen values rather than the live plan.
type Investment struct {
	ID             string
	UserID         string
	PlanID         string
	Type           string
	Amount         decimal.Decimal
	ReturnRate     decimal.Decimal
	DurationMonths int
	ExpectedReturn decimal.Decimal
	// ActualReturn is nil until the investment matures.
	ActualReturn *decimal.Decimal
	Status       string
	Reinvest     bool
	// ReferrerID and the commission fields are stamped at creation when the
	// investor was referred; empty otherwise.
	ReferrerID       string
	CommissionAmount decimal.Decimal
	CommissionPaid   bool
	StartDate        time.Time
	EndDate          time.Time
	CreatedAt        time.Time
}
