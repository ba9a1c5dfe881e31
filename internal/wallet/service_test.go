package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/ledger"
	"github.com/terravest/terravest/internal/logging"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newService(t *testing.T) (*Service, ledger.Ledger, ledger.Wallet) {
	t.Helper()
	ctx := context.Background()
	led := ledger.NewInMemory()
	users := identity.NewMemoryRepository()
	require.NoError(t, users.Create(ctx, identity.User{
		ID:        "owner-1",
		Email:     "owner@example.com",
		Role:      identity.RoleUser,
		KYCStatus: identity.KYCApproved,
		CreatedAt: time.Now().UTC(),
	}))
	w, err := led.CreateWallet(ctx, "owner-1")
	require.NoError(t, err)
	return NewService(led, users, nil, logging.Discard()), led, w
}

func TestFundAndDeduct(t *testing.T) {
	svc, led, w := newService(t)
	ctx := context.Background()

	tx, err := svc.Fund(ctx, "owner-1", dec("250"), "bank transfer ref 991", "")
	require.NoError(t, err)
	assert.Equal(t, ledger.TxDeposit, tx.Type)
	assert.True(t, tx.Amount.Equal(dec("250")))

	_, err = svc.Deduct(ctx, "owner-1", dec("100"), "chargeback", "")
	require.NoError(t, err)

	got, err := led.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("150")))
	assert.True(t, ledger.SumEntries(led, w.ID).Equal(dec("150")))
}

func TestDeductCannotOverdraw(t *testing.T) {
	svc, led, w := newService(t)
	ctx := context.Background()
	ledger.SeedBalance(led, w.ID, dec("50"))

	_, err := svc.Deduct(ctx, "owner-1", dec("80"), "correction", "")
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	got, _ := led.Get(ctx, w.ID)
	assert.True(t, got.Balance.Equal(dec("50")))
}

func TestFundUnknownUser(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Fund(context.Background(), "ghost", dec("10"), "", "")
	require.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestFundIdempotentByClientTxID(t *testing.T) {
	svc, led, w := newService(t)
	ctx := context.Background()

	_, err := svc.Fund(ctx, "owner-1", dec("250"), "bank transfer", "fund-abc")
	require.NoError(t, err)
	_, err = svc.Fund(ctx, "owner-1", dec("250"), "bank transfer", "fund-abc")
	require.ErrorIs(t, err, ledger.ErrDuplicateTransaction)

	got, _ := led.Get(ctx, w.ID)
	assert.True(t, got.Balance.Equal(dec("250")), "replay must not double-credit")
}

func TestTransactionsFilterAndPage(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Fund(ctx, "owner-1", dec("10"), "drip", "")
		require.NoError(t, err)
	}
	_, err := svc.Deduct(ctx, "owner-1", dec("5"), "fee", "")
	require.NoError(t, err)

	deposits, total, err := svc.Transactions(ctx, "owner-1", ledger.TxFilter{Type: ledger.TxDeposit}, ledger.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, deposits, 2)

	all, total, err := svc.Transactions(ctx, "owner-1", ledger.TxFilter{}, ledger.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, all, 4)
}
