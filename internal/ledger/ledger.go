package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when a wallet lacks available balance to
	// cover a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a non-positive mutation amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrWalletNotFound indicates the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists indicates the owner already has a wallet.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrDuplicateTransaction indicates the provided client transaction
	// identifier already exists and therefore the operation should be
	// treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// Transaction types. The sign of a ledger entry's amount is implied by the
// mutation (credits positive, debits negative); the type records intent.
const (
	TxDeposit    = "deposit"
	TxWithdrawal = "withdrawal"
	TxInvestment = "investment"
	TxReturn     = "return"
	TxCommission = "commission"
	TxPurchase   = "purchase"
)

// Transaction statuses. Entries written by the balance mutator are always
// completed; the remaining statuses exist for externally settled flows.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Wallet is a user's custodial balance of funds within the platform.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   decimal.Decimal
	Currency  string
	Status    string
	CreatedAt time.Time
}

// Transaction is an immutable, append-only record of a balance change.
// Completed entries are never edited; corrections are new entries.
type Transaction struct {
	ID          string
	WalletID    string
	Type        string
	Amount      decimal.Decimal
	Status      string
	Description string
	Reference   string
	ClientTxID  string
	CreatedAt   time.Time
}

// TxMeta carries the descriptive fields recorded alongside a balance mutation.
// ClientTxID, when set, must be unique across the ledger; a replayed value
// causes the mutation to fail with ErrDuplicateTransaction.
type TxMeta struct {
	Type        string
	Description string
	Reference   string
	ClientTxID  string
}

// TxFilter narrows a transaction listing. Zero values match everything.
type TxFilter struct {
	Type   string
	Status string
}

// Page bounds a transaction listing.
type Page struct {
	Limit  int
	Offset int
}

// Ledger is the only path allowed to change a wallet's balance. Every
// mutation atomically pairs the balance delta with exactly one completed
// transaction row; mutations against a single wallet are serialized.
type Ledger interface {
	CreateWallet(ctx context.Context, ownerID string) (Wallet, error)
	Get(ctx context.Context, walletID string) (Wallet, error)
	GetByOwner(ctx context.Context, ownerID string) (Wallet, error)
	Debit(ctx context.Context, walletID string, amount decimal.Decimal, meta TxMeta) (Transaction, error)
	Credit(ctx context.Context, walletID string, amount decimal.Decimal, meta TxMeta) (Transaction, error)
	Transactions(ctx context.Context, walletID string, filter TxFilter, page Page) ([]Transaction, int, error)
}
