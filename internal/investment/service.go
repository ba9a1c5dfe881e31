package investment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terravest/terravest/internal/catalog"
	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/notification"
)

// Service is the investment lifecycle engine. It validates requests against
// the plan catalog and the caller's KYC flag, stamps referral commission, and
// delegates every state change to the store's atomic units.
type Service struct {
	store          Store
	catalog        catalog.Repository
	users          identity.Repository
	notifier       notification.Notifier
	commissionRate decimal.Decimal
	logger         *slog.Logger
}

// NewService constructs the lifecycle engine.
func NewService(store Store, cat catalog.Repository, users identity.Repository, notifier notification.Notifier, commissionRate decimal.Decimal, logger *slog.Logger) *Service {
	return &Service{
		store:          store,
		catalog:        cat,
		users:          users,
		notifier:       notifier,
		commissionRate: commissionRate,
		logger:         logger,
	}
}

// InvestInput captures a request to commit wallet funds to a plan.
type InvestInput struct {
	UserID     string
	PlanID     string
	Amount     decimal.Decimal
	Reinvest   bool
	ClientTxID string
}

// Invest creates an active investment, debiting the investor's wallet.
// The expected return and term are computed from the plan and frozen onto
// the position. When the investor was referred, the commission amount is
// stamped in the same atomic unit, unpaid.
func (s *Service) Invest(ctx context.Context, input InvestInput) (Investment, error) {
	plan, err := s.catalog.GetPlan(ctx, input.PlanID)
	if err != nil {
		return Investment{}, err
	}
	if input.Amount.LessThan(plan.MinAmount) || input.Amount.GreaterThan(plan.MaxAmount) {
		return Investment{}, fmt.Errorf("%w: %s not in [%s, %s]", ErrAmountOutOfRange,
			input.Amount, plan.MinAmount, plan.MaxAmount)
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return Investment{}, err
	}
	if user.KYCStatus != identity.KYCApproved {
		return Investment{}, fmt.Errorf("%w: status %s", ErrKYCRequired, user.KYCStatus)
	}

	now := time.Now().UTC()
	inv := Investment{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		PlanID:         plan.ID,
		Type:           plan.Type,
		Amount:         input.Amount,
		ReturnRate:     plan.ReturnRate,
		DurationMonths: plan.DurationMonths,
		ExpectedReturn: input.Amount.Mul(plan.ReturnRate).Round(2),
		Status:         StatusActive,
		Reinvest:       input.Reinvest,
		StartDate:      now,
		EndDate:        now.AddDate(0, plan.DurationMonths, 0),
		CreatedAt:      now,
	}
	if user.ReferrerID != "" {
		inv.ReferrerID = user.ReferrerID
		inv.CommissionAmount = input.Amount.Mul(s.commissionRate).Round(2)
	}

	created, err := s.store.Create(ctx, inv, input.ClientTxID)
	if err != nil {
		return Investment{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindInvestmentCreated,
		Destination: user.ID,
		Body:        fmt.Sprintf("You invested %s in %s", inv.Amount, plan.Name),
	})
	return created, nil
}

// Mature closes an active investment. actualReturn defaults to the frozen
// expected return when nil. A second call on the same investment fails with
// ErrNotActive instead of crediting twice.
func (s *Service) Mature(ctx context.Context, investmentID string, actualReturn *decimal.Decimal) (Investment, error) {
	matured, spawned, err := s.store.Mature(ctx, investmentID, actualReturn, time.Now().UTC())
	if err != nil {
		return Investment{}, err
	}

	body := fmt.Sprintf("Your investment of %s matured with a return of %s", matured.Amount, matured.ActualReturn)
	if spawned != nil {
		body = fmt.Sprintf("Your investment matured and %s was reinvested", spawned.Amount)
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindInvestmentMatured,
		Destination: matured.UserID,
		Body:        body,
	})
	return matured, nil
}

// Cancel closes an active investment, refunding principal only.
func (s *Service) Cancel(ctx context.Context, investmentID string) (Investment, error) {
	cancelled, err := s.store.Cancel(ctx, investmentID, time.Now().UTC())
	if err != nil {
		return Investment{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindInvestmentCancelled,
		Destination: cancelled.UserID,
		Body:        fmt.Sprintf("Your investment of %s was cancelled and the principal refunded", cancelled.Amount),
	})
	return cancelled, nil
}

// PayCommission pays out the referral commission stamped on the investment,
// exactly once.
func (s *Service) PayCommission(ctx context.Context, investmentID string) (Investment, error) {
	paid, err := s.store.PayCommission(ctx, investmentID)
	if err != nil {
		return Investment{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindCommissionPaid,
		Destination: paid.ReferrerID,
		Body:        fmt.Sprintf("You earned a %s referral commission", paid.CommissionAmount),
	})
	return paid, nil
}

// MatureDue matures every active investment whose end date has passed,
// using the frozen expected return. Each maturation is its own atomic unit;
// failures are logged and skipped so one bad row cannot stall the batch.
func (s *Service) MatureDue(ctx context.Context) (int, error) {
	due, err := s.store.ListDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	matured := 0
	for _, inv := range due {
		if _, err := s.Mature(ctx, inv.ID, nil); err != nil {
			s.logger.Error("batch maturation", "investment_id", inv.ID, "error", err)
			continue
		}
		matured++
	}
	return matured, nil
}

// Get fetches an investment by identifier.
func (s *Service) Get(ctx context.Context, id string) (Investment, error) {
	return s.store.Get(ctx, id)
}

// ListByUser returns the user's investments, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Investment, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "kind", msg.Kind, "error", err)
	}
}
