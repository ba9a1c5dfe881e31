package property

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/terravest/terravest/internal/ledger"
)

// PostgresStore persists purchases in PostgreSQL using the same one
// transaction per lifecycle mutation discipline as the investment store.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed purchase store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const purchaseColumns = `id, property_id, user_id, amount::text, payment_type, status, installments,
    installment_amount::text, paid_installments, next_payment_due, created_at`

// Create debits the first charge and inserts the purchase atomically.
func (s *PostgresStore) Create(ctx context.Context, p Purchase, charge decimal.Decimal, clientTxID string) (Purchase, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Purchase{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	walletID, err := walletForOwner(ctx, tx, p.UserID)
	if err != nil {
		return Purchase{}, err
	}
	if _, err := ledger.DebitTx(ctx, tx, walletID, charge, ledger.TxMeta{
		Type:        ledger.TxPurchase,
		Description: fmt.Sprintf("purchase of property %s", p.PropertyID),
		Reference:   p.ID,
		ClientTxID:  clientTxID,
	}); err != nil {
		return Purchase{}, err
	}

	var due any
	if p.NextPaymentDue != nil {
		due = p.NextPaymentDue.UTC()
	}
	if _, err := tx.Exec(ctx, `INSERT INTO purchases
        (id, property_id, user_id, amount, payment_type, status, installments, installment_amount,
         paid_installments, next_payment_due, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8::numeric, $9, $10, $11)`,
		uuid.MustParse(p.ID), uuid.MustParse(p.PropertyID), uuid.MustParse(p.UserID),
		p.Amount.String(), p.PaymentType, p.Status, p.Installments, p.InstallmentAmount.String(),
		p.PaidInstallments, due, p.CreatedAt.UTC()); err != nil {
		return Purchase{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// PayInstallment advances the installment schedule under the row lock.
func (s *PostgresStore) PayInstallment(ctx context.Context, id string, now time.Time) (Purchase, error) {
	purchaseID, err := uuid.Parse(id)
	if err != nil {
		return Purchase{}, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Purchase{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	p, err := scanPurchase(tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases
        WHERE id = $1 FOR UPDATE`, purchaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, err
	}
	if p.Status != StatusPending || p.PaidInstallments >= p.Installments {
		return Purchase{}, fmt.Errorf("%w: status %s", ErrAlreadyPaid, p.Status)
	}

	charge := p.nextCharge()
	walletID, err := walletForOwner(ctx, tx, p.UserID)
	if err != nil {
		return Purchase{}, err
	}
	if _, err := ledger.DebitTx(ctx, tx, walletID, charge, ledger.TxMeta{
		Type:        ledger.TxPurchase,
		Description: fmt.Sprintf("installment %d/%d for purchase %s", p.PaidInstallments+1, p.Installments, p.ID),
		Reference:   p.ID,
	}); err != nil {
		return Purchase{}, err
	}

	p.PaidInstallments++
	if p.PaidInstallments == p.Installments {
		p.Status = StatusCompleted
		p.NextPaymentDue = nil
	} else {
		next := now.AddDate(0, 1, 0)
		p.NextPaymentDue = &next
	}

	var due any
	if p.NextPaymentDue != nil {
		due = p.NextPaymentDue.UTC()
	}
	if _, err := tx.Exec(ctx, `UPDATE purchases SET status = $1, paid_installments = $2, next_payment_due = $3
        WHERE id = $4`, p.Status, p.PaidInstallments, due, purchaseID); err != nil {
		return Purchase{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// Get fetches a purchase by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Purchase, error) {
	purchaseID, err := uuid.Parse(id)
	if err != nil {
		return Purchase{}, ErrNotFound
	}
	p, err := scanPurchase(s.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, purchaseID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrNotFound
	}
	return p, err
}

// ListByUser returns the user's purchases, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Purchase, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases
        WHERE user_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func walletForOwner(ctx context.Context, tx pgx.Tx, ownerID string) (string, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return "", ledger.ErrWalletNotFound
	}
	var walletID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE owner_id = $1`, owner).Scan(&walletID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ledger.ErrWalletNotFound
		}
		return "", err
	}
	return walletID.String(), nil
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p                         Purchase
		id, propertyID, userID    uuid.UUID
		amountStr, installmentStr string
		due                       *time.Time
	)
	if err := row.Scan(&id, &propertyID, &userID, &amountStr, &p.PaymentType, &p.Status,
		&p.Installments, &installmentStr, &p.PaidInstallments, &due, &p.CreatedAt); err != nil {
		return Purchase{}, err
	}

	var err error
	if p.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return Purchase{}, fmt.Errorf("parse amount: %w", err)
	}
	if p.InstallmentAmount, err = decimal.NewFromString(installmentStr); err != nil {
		return Purchase{}, fmt.Errorf("parse installment amount: %w", err)
	}

	p.ID = id.String()
	p.PropertyID = propertyID.String()
	p.UserID = userID.String()
	if due != nil {
		utc := due.UTC()
		p.NextPaymentDue = &utc
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
