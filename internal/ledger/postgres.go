package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger persists wallets and their transaction log in PostgreSQL.
// Each mutation runs in its own transaction holding a row lock on the wallet,
// which serializes concurrent mutations per wallet while leaving other
// wallets untouched.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// CreateWallet provisions a wallet for the owner with a zero balance.
func (l *PostgresLedger) CreateWallet(ctx context.Context, ownerID string) (Wallet, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return Wallet{}, err
	}
	w := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
		Currency:  "USD",
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}
	tag, err := l.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, currency, status, created_at)
        VALUES ($1, $2, 0, $3, $4, $5) ON CONFLICT (owner_id) DO NOTHING`,
		uuid.MustParse(w.ID), owner, w.Currency, w.Status, w.CreatedAt)
	if err != nil {
		return Wallet{}, err
	}
	if tag.RowsAffected() == 0 {
		return Wallet{}, ErrWalletExists
	}
	return w, nil
}

// Get fetches a wallet by identifier.
func (l *PostgresLedger) Get(ctx context.Context, walletID string) (Wallet, error) {
	return l.scanWallet(l.db.QueryRow(ctx, `SELECT id, owner_id, balance::text, currency, status, created_at
        FROM wallets WHERE id = $1`, walletID))
}

// GetByOwner fetches the wallet owned by the given user.
func (l *PostgresLedger) GetByOwner(ctx context.Context, ownerID string) (Wallet, error) {
	return l.scanWallet(l.db.QueryRow(ctx, `SELECT id, owner_id, balance::text, currency, status, created_at
        FROM wallets WHERE owner_id = $1`, ownerID))
}

func (l *PostgresLedger) scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w          Wallet
		id, owner  uuid.UUID
		balanceStr string
	)
	if err := row.Scan(&id, &owner, &balanceStr, &w.Currency, &w.Status, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse balance: %w", err)
	}
	w.ID = id.String()
	w.OwnerID = owner.String()
	w.Balance = balance
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

// Debit atomically decrements the wallet balance and appends the matching
// ledger entry. Fails with ErrInsufficientFunds when the balance cannot
// cover the amount, leaving the wallet untouched.
func (l *PostgresLedger) Debit(ctx context.Context, walletID string, amount decimal.Decimal, meta TxMeta) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	return l.mutate(ctx, walletID, amount.Neg(), meta)
}

// Credit atomically increments the wallet balance and appends the matching
// ledger entry.
func (l *PostgresLedger) Credit(ctx context.Context, walletID string, amount decimal.Decimal, meta TxMeta) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	return l.mutate(ctx, walletID, amount, meta)
}

func (l *PostgresLedger) mutate(ctx context.Context, walletID string, signed decimal.Decimal, meta TxMeta) (Transaction, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	entry, err := post(ctx, tx, walletID, signed, meta)
	if err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return entry, nil
}

// DebitTx applies a debit inside an existing transaction. Lifecycle stores use
// it to fold the balance mutation into their own atomic unit so an investment
// row and its ledger entry commit or roll back together.
func DebitTx(ctx context.Context, tx pgx.Tx, walletID string, amount decimal.Decimal, meta TxMeta) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	return post(ctx, tx, walletID, amount.Neg(), meta)
}

// CreditTx applies a credit inside an existing transaction.
func CreditTx(ctx context.Context, tx pgx.Tx, walletID string, amount decimal.Decimal, meta TxMeta) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	return post(ctx, tx, walletID, amount, meta)
}

// post performs the serialized balance mutation: it locks the wallet row,
// guards the client transaction id, enforces non-negativity and writes the
// new balance together with its completed ledger entry.
func post(ctx context.Context, tx pgx.Tx, walletID string, signed decimal.Decimal, meta TxMeta) (Transaction, error) {
	if signed.IsZero() {
		return Transaction{}, ErrInvalidAmount
	}

	id, err := uuid.Parse(walletID)
	if err != nil {
		return Transaction{}, ErrWalletNotFound
	}

	var balanceStr string
	if err := tx.QueryRow(ctx, `SELECT balance::text FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(&balanceStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrWalletNotFound
		}
		return Transaction{}, err
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse balance: %w", err)
	}

	if meta.ClientTxID != "" {
		var existing uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM wallet_transactions WHERE client_tx_id = $1`, meta.ClientTxID).Scan(&existing)
		if err == nil {
			return Transaction{}, ErrDuplicateTransaction
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, err
		}
	}

	next := balance.Add(signed)
	if next.IsNegative() {
		return Transaction{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, signed.Neg(), balance)
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1::numeric WHERE id = $2`, next.String(), id); err != nil {
		return Transaction{}, err
	}

	entry := Transaction{
		ID:          uuid.NewString(),
		WalletID:    walletID,
		Type:        meta.Type,
		Amount:      signed,
		Status:      StatusCompleted,
		Description: meta.Description,
		Reference:   meta.Reference,
		ClientTxID:  meta.ClientTxID,
		CreatedAt:   time.Now().UTC(),
	}
	var clientTxID any
	if meta.ClientTxID != "" {
		clientTxID = meta.ClientTxID
	}
	if _, err := tx.Exec(ctx, `INSERT INTO wallet_transactions
        (id, wallet_id, type, amount, status, description, reference, client_tx_id, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)`,
		uuid.MustParse(entry.ID), id, entry.Type, entry.Amount.String(), entry.Status,
		entry.Description, entry.Reference, clientTxID, entry.CreatedAt); err != nil {
		return Transaction{}, err
	}

	return entry, nil
}

// Transactions returns a page of the wallet's ledger entries, newest first,
// along with the total count matching the filter.
func (l *PostgresLedger) Transactions(ctx context.Context, walletID string, filter TxFilter, page Page) ([]Transaction, int, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, 0, ErrWalletNotFound
	}
	if page.Limit <= 0 {
		page.Limit = 25
	}

	where := `WHERE wallet_id = $1`
	args := []any{id}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := l.db.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`SELECT id, wallet_id, type, amount::text, status, description, reference,
        COALESCE(client_tx_id, ''), created_at
        FROM wallet_transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		var (
			t            Transaction
			entryID, wID uuid.UUID
			amountStr    string
		)
		if err := rows.Scan(&entryID, &wID, &t.Type, &amountStr, &t.Status, &t.Description, &t.Reference, &t.ClientTxID, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, 0, fmt.Errorf("parse amount: %w", err)
		}
		t.ID = entryID.String()
		t.WalletID = wID.String()
		t.Amount = amount
		t.CreatedAt = t.CreatedAt.UTC()
		entries = append(entries, t)
	}
	return entries, total, rows.Err()
}
