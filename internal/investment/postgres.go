package investment

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

// PostgresStore persists investments in PostgreSQL. Each lifecycle mutation
// runs in one transaction: the investment row is locked FOR UPDATE, the
// status precondition is checked under that lock, and the wallet posting is
// folded in through ledger.DebitTx/CreditTx so both commit or roll back
// together.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed investment store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const investmentColumns = `id, user_id, plan_id, type, amount::text, return_rate::text, duration_months,
    expected_return::text, actual_return::text, status, reinvest, referrer_id, commission_amount::text,
    commission_paid, start_date, end_date, created_at`

// Create debits the investor's wallet and inserts the active investment as
// one atomic unit.
func (s *PostgresStore) Create(ctx context.Context, inv Investment, clientTxID string) (Investment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Investment{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	walletID, err := walletForOwner(ctx, tx, inv.UserID)
	if err != nil {
		return Investment{}, err
	}

	if _, err := ledger.DebitTx(ctx, tx, walletID, inv.Amount, ledger.TxMeta{
		Type:        ledger.TxInvestment,
		Description: fmt.Sprintf("investment in plan %s", inv.PlanID),
		Reference:   inv.ID,
		ClientTxID:  clientTxID,
	}); err != nil {
		return Investment{}, err
	}

	if err := insertTx(ctx, tx, inv); err != nil {
		return Investment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Investment{}, err
	}
	return inv, nil
}

// Mature closes an active investment under its row lock, crediting the wallet
// or spawning the reinvestment in the same transaction.
func (s *PostgresStore) Mature(ctx context.Context, id string, actualReturn *decimal.Decimal, now time.Time) (Investment, *Investment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Investment{}, nil, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	inv, err := lockInvestment(ctx, tx, id)
	if err != nil {
		return Investment{}, nil, err
	}
	if inv.Status != StatusActive {
		return Investment{}, nil, fmt.Errorf("%w: status %s", ErrNotActive, inv.Status)
	}

	actual := inv.ExpectedReturn
	if actualReturn != nil {
		actual = *actualReturn
	}

	if _, err := tx.Exec(ctx, `UPDATE investments SET status = $1, actual_return = $2::numeric, end_date = $3
        WHERE id = $4`, StatusMatured, actual.String(), now, uuid.MustParse(inv.ID)); err != nil {
		return Investment{}, nil, err
	}
	inv.Status = StatusMatured
	inv.ActualReturn = &actual
	inv.EndDate = now

	payout := inv.Amount.Add(actual)

	var spawned *Investment
	if inv.Reinvest {
		// Funds stay inside the system: the matured position rolls into a
		// fresh one at the frozen plan terms, no wallet credit.
		next := Investment{
			ID:             uuid.NewString(),
			UserID:         inv.UserID,
			PlanID:         inv.PlanID,
			Type:           inv.Type,
			Amount:         payout,
			ReturnRate:     inv.ReturnRate,
			DurationMonths: inv.DurationMonths,
			ExpectedReturn: payout.Mul(inv.ReturnRate).Round(2),
			Status:         StatusActive,
			Reinvest:       true,
			StartDate:      now,
			EndDate:        now.AddDate(0, inv.DurationMonths, 0),
			CreatedAt:      now,
		}
		if err := insertTx(ctx, tx, next); err != nil {
			return Investment{}, nil, err
		}
		spawned = &next
	} else {
		walletID, err := walletForOwner(ctx, tx, inv.UserID)
		if err != nil {
			return Investment{}, nil, err
		}
		if _, err := ledger.CreditTx(ctx, tx, walletID, payout, ledger.TxMeta{
			Type:        ledger.TxReturn,
			Description: fmt.Sprintf("maturation of investment %s", inv.ID),
			Reference:   inv.ID,
		}); err != nil {
			return Investment{}, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Investment{}, nil, err
	}
	return inv, spawned, nil
}

// Cancel closes an active investment and refunds principal only.
func (s *PostgresStore) Cancel(ctx context.Context, id string, now time.Time) (Investment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Investment{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	inv, err := lockInvestment(ctx, tx, id)
	if err != nil {
		return Investment{}, err
	}
	if inv.Status != StatusActive {
		return Investment{}, fmt.Errorf("%w: status %s", ErrNotActive, inv.Status)
	}

	if _, err := tx.Exec(ctx, `UPDATE investments SET status = $1, end_date = $2 WHERE id = $3`,
		StatusCancelled, now, uuid.MustParse(inv.ID)); err != nil {
		return Investment{}, err
	}
	inv.Status = StatusCancelled
	inv.EndDate = now

	walletID, err := walletForOwner(ctx, tx, inv.UserID)
	if err != nil {
		return Investment{}, err
	}
	if _, err := ledger.CreditTx(ctx, tx, walletID, inv.Amount, ledger.TxMeta{
		Type:        ledger.TxReturn,
		Description: fmt.Sprintf("cancellation of investment %s", inv.ID),
		Reference:   inv.ID,
	}); err != nil {
		return Investment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Investment{}, err
	}
	return inv, nil
}

// PayCommission credits the referrer's wallet and flips the paid flag under
// the investment's row lock, so the payout can never run twice.
func (s *PostgresStore) PayCommission(ctx context.Context, id string) (Investment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Investment{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	inv, err := lockInvestment(ctx, tx, id)
	if err != nil {
		return Investment{}, err
	}
	if inv.ReferrerID == "" || inv.CommissionAmount.IsZero() {
		return Investment{}, ErrNoCommission
	}
	if inv.CommissionPaid {
		return Investment{}, ErrCommissionAlreadyPaid
	}

	if _, err := tx.Exec(ctx, `UPDATE investments SET commission_paid = TRUE WHERE id = $1`,
		uuid.MustParse(inv.ID)); err != nil {
		return Investment{}, err
	}
	inv.CommissionPaid = true

	walletID, err := walletForOwner(ctx, tx, inv.ReferrerID)
	if err != nil {
		return Investment{}, err
	}
	if _, err := ledger.CreditTx(ctx, tx, walletID, inv.CommissionAmount, ledger.TxMeta{
		Type:        ledger.TxCommission,
		Description: fmt.Sprintf("referral commission for investment %s", inv.ID),
		Reference:   inv.ID,
	}); err != nil {
		return Investment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Investment{}, err
	}
	return inv, nil
}

// Get fetches an investment by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Investment, error) {
	invID, err := uuid.Parse(id)
	if err != nil {
		return Investment{}, ErrNotFound
	}
	inv, err := scanInvestment(s.db.QueryRow(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = $1`, invID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Investment{}, ErrNotFound
	}
	return inv, err
}

// ListByUser returns the user's investments, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Investment, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+investmentColumns+` FROM investments
        WHERE user_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvestments(rows)
}

// ListDue returns active investments whose end date has passed.
func (s *PostgresStore) ListDue(ctx context.Context, asOf time.Time) ([]Investment, error) {
	rows, err := s.db.Query(ctx, `SELECT `+investmentColumns+` FROM investments
        WHERE status = $1 AND end_date <= $2 ORDER BY end_date`, StatusActive, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvestments(rows)
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

func lockInvestment(ctx context.Context, tx pgx.Tx, id string) (Investment, error) {
	invID, err := uuid.Parse(id)
	if err != nil {
		return Investment{}, ErrNotFound
	}
	inv, err := scanInvestment(tx.QueryRow(ctx, `SELECT `+investmentColumns+` FROM investments
        WHERE id = $1 FOR UPDATE`, invID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Investment{}, ErrNotFound
	}
	return inv, err
}

func insertTx(ctx context.Context, tx pgx.Tx, inv Investment) error {
	var (
		actual     any
		referrer   any
		commission any
	)
	if inv.ActualReturn != nil {
		actual = inv.ActualReturn.String()
	}
	if inv.ReferrerID != "" {
		id, err := uuid.Parse(inv.ReferrerID)
		if err != nil {
			return err
		}
		referrer = id
		commission = inv.CommissionAmount.String()
	}
	_, err := tx.Exec(ctx, `INSERT INTO investments
        (id, user_id, plan_id, type, amount, return_rate, duration_months, expected_return, actual_return,
         status, reinvest, referrer_id, commission_amount, commission_paid, start_date, end_date, created_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8::numeric, $9::numeric,
         $10, $11, $12, $13::numeric, $14, $15, $16, $17)`,
		uuid.MustParse(inv.ID), uuid.MustParse(inv.UserID), uuid.MustParse(inv.PlanID), inv.Type,
		inv.Amount.String(), inv.ReturnRate.String(), inv.DurationMonths, inv.ExpectedReturn.String(), actual,
		inv.Status, inv.Reinvest, referrer, commission, inv.CommissionPaid,
		inv.StartDate.UTC(), inv.EndDate.UTC(), inv.CreatedAt.UTC())
	return err
}

func scanInvestment(row pgx.Row) (Investment, error) {
	var (
		inv                      Investment
		id, userID, planID       uuid.UUID
		referrer                 *uuid.UUID
		amountStr, rateStr       string
		expectedStr              string
		actualStr, commissionStr *string
	)
	if err := row.Scan(&id, &userID, &planID, &inv.Type, &amountStr, &rateStr, &inv.DurationMonths,
		&expectedStr, &actualStr, &inv.Status, &inv.Reinvest, &referrer, &commissionStr,
		&inv.CommissionPaid, &inv.StartDate, &inv.EndDate, &inv.CreatedAt); err != nil {
		return Investment{}, err
	}

	var err error
	if inv.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return Investment{}, fmt.Errorf("parse amount: %w", err)
	}
	if inv.ReturnRate, err = decimal.NewFromString(rateStr); err != nil {
		return Investment{}, fmt.Errorf("parse return rate: %w", err)
	}
	if inv.ExpectedReturn, err = decimal.NewFromString(expectedStr); err != nil {
		return Investment{}, fmt.Errorf("parse expected return: %w", err)
	}
	if actualStr != nil {
		actual, err := decimal.NewFromString(*actualStr)
		if err != nil {
			return Investment{}, fmt.Errorf("parse actual return: %w", err)
		}
		inv.ActualReturn = &actual
	}
	if commissionStr != nil {
		if inv.CommissionAmount, err = decimal.NewFromString(*commissionStr); err != nil {
			return Investment{}, fmt.Errorf("parse commission: %w", err)
		}
	}

	inv.ID = id.String()
	inv.UserID = userID.String()
	inv.PlanID = planID.String()
	if referrer != nil {
		inv.ReferrerID = referrer.String()
	}
	inv.StartDate = inv.StartDate.UTC()
	inv.EndDate = inv.EndDate.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	return inv, nil
}

func collectInvestments(rows pgx.Rows) ([]Investment, error) {
	var investments []Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		investments = append(investments, inv)
	}
	return investments, rows.Err()
}
