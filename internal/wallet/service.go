package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/ledger"
	"github.com/terravest/terravest/internal/notification"
)

// Service exposes wallet reads for owners and manual balance adjustments for
// administrators. All balance changes pass through the ledger, never around it.
type Service struct {
	ledger   ledger.Ledger
	users    identity.Repository
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a wallet service.
func NewService(l ledger.Ledger, users identity.Repository, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{ledger: l, users: users, notifier: notifier, logger: logger}
}

// Mine returns the caller's wallet.
func (s *Service) Mine(ctx context.Context, ownerID string) (ledger.Wallet, error) {
	return s.ledger.GetByOwner(ctx, ownerID)
}

// Transactions returns a page of the caller's ledger entries, newest first.
func (s *Service) Transactions(ctx context.Context, ownerID string, filter ledger.TxFilter, page ledger.Page) ([]ledger.Transaction, int, error) {
	w, err := s.ledger.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	return s.ledger.Transactions(ctx, w.ID, filter, page)
}

// Fund credits a user's wallet on behalf of an external deposit. Used by
// administrators to reflect settled funding events.
func (s *Service) Fund(ctx context.Context, userID string, amount decimal.Decimal, reason, clientTxID string) (ledger.Transaction, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	w, err := s.ledger.GetByOwner(ctx, user.ID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx, err := s.ledger.Credit(ctx, w.ID, amount, ledger.TxMeta{
		Type:        ledger.TxDeposit,
		Description: reason,
		ClientTxID:  clientTxID,
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindWalletFunded,
		Destination: user.ID,
		Body:        fmt.Sprintf("Wallet funded with %s", amount),
	})
	return tx, nil
}

// Deduct debits a user's wallet for an external withdrawal or correction.
func (s *Service) Deduct(ctx context.Context, userID string, amount decimal.Decimal, reason, clientTxID string) (ledger.Transaction, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	w, err := s.ledger.GetByOwner(ctx, user.ID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx, err := s.ledger.Debit(ctx, w.ID, amount, ledger.TxMeta{
		Type:        ledger.TxWithdrawal,
		Description: reason,
		ClientTxID:  clientTxID,
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindWalletDeducted,
		Destination: user.ID,
		Body:        fmt.Sprintf("Wallet deducted by %s", amount),
	})
	return tx, nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "kind", msg.Kind, "error", err)
	}
}
