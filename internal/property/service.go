package property

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/terravest/terravest/internal/catalog"
	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/investment"
	"github.com/terravest/terravest/internal/notification"
)

// Service handles property and equipment purchases, paid in full or on
// installment. It is the installment-based sibling of the investment
// lifecycle engine: the same validation and atomic-unit discipline, but the
// position amortizes toward completion instead of maturing to a return.
type Service struct {
	store    Store
	catalog  catalog.Repository
	users    identity.Repository
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a purchase service.
func NewService(store Store, cat catalog.Repository, users identity.Repository, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, catalog: cat, users: users, notifier: notifier, logger: logger}
}

// PurchaseInput captures a request to buy a property.
type PurchaseInput struct {
	UserID       string
	PropertyID   string
	PaymentType  string
	Installments int
	ClientTxID   string
}

// Purchase buys a property outright or opens an installment schedule with
// the first installment debited immediately.
func (s *Service) Purchase(ctx context.Context, input PurchaseInput) (Purchase, error) {
	prop, err := s.catalog.GetProperty(ctx, input.PropertyID)
	if err != nil {
		return Purchase{}, err
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return Purchase{}, err
	}
	if user.KYCStatus != identity.KYCApproved {
		return Purchase{}, fmt.Errorf("%w: status %s", investment.ErrKYCRequired, user.KYCStatus)
	}

	now := time.Now().UTC()
	p := Purchase{
		ID:         uuid.NewString(),
		PropertyID: prop.ID,
		UserID:     user.ID,
		Amount:     prop.Price,
		CreatedAt:  now,
	}

	switch input.PaymentType {
	case PaymentFull, "":
		p.PaymentType = PaymentFull
		p.Status = StatusCompleted
		p.Installments = 1
		p.InstallmentAmount = prop.Price
		p.PaidInstallments = 1
	case PaymentInstallment:
		if input.Installments < 2 || input.Installments > prop.MaxInstallments {
			return Purchase{}, fmt.Errorf("%w: %d not in [2, %d]", ErrInvalidInstallments,
				input.Installments, prop.MaxInstallments)
		}
		p.PaymentType = PaymentInstallment
		p.Status = StatusPending
		p.Installments = input.Installments
		p.InstallmentAmount = prop.Price.Div(decimal.NewFromInt(int64(input.Installments))).Round(2)
		p.PaidInstallments = 1
		due := now.AddDate(0, 1, 0)
		p.NextPaymentDue = &due
	default:
		return Purchase{}, fmt.Errorf("unknown payment option %q", input.PaymentType)
	}

	charge := p.InstallmentAmount
	if p.PaymentType == PaymentFull {
		charge = p.Amount
	}

	created, err := s.store.Create(ctx, p, charge, input.ClientTxID)
	if err != nil {
		return Purchase{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindInstallmentPaid,
		Destination: user.ID,
		Body:        fmt.Sprintf("Purchase of %s opened with %s paid", prop.Name, charge),
	})
	return created, nil
}

// PayInstallment debits the caller's next installment. Rejected once the
// purchase is completed, so a duplicate submission cannot double-charge.
func (s *Service) PayInstallment(ctx context.Context, userID, purchaseID string) (Purchase, error) {
	existing, err := s.store.Get(ctx, purchaseID)
	if err != nil {
		return Purchase{}, err
	}
	if existing.UserID != userID {
		return Purchase{}, ErrNotOwner
	}

	paid, err := s.store.PayInstallment(ctx, purchaseID, time.Now().UTC())
	if err != nil {
		return Purchase{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindInstallmentPaid,
		Destination: paid.UserID,
		Body:        fmt.Sprintf("Installment %d/%d paid", paid.PaidInstallments, paid.Installments),
	})
	return paid, nil
}

// Get fetches a purchase by identifier.
func (s *Service) Get(ctx context.Context, id string) (Purchase, error) {
	return s.store.Get(ctx, id)
}

// ListByUser returns the user's purchases, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Purchase, error) {
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
