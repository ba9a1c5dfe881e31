package investment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terravest/terravest/internal/catalog"
	"github.com/terravest/terravest/internal/identity"
	"github.com/terravest/terravest/internal/ledger"
	"github.com/terravest/terravest/internal/logging"
)

type fixture struct {
	ledger  ledger.Ledger
	users   identity.Repository
	catalog *catalog.MemoryRepository
	store   *MemoryStore
	service *Service
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	led := ledger.NewInMemory()
	users := identity.NewMemoryRepository()
	cat := catalog.NewMemoryRepository()
	store := NewMemoryStore(led)
	svc := NewService(store, cat, users, nil, dec("0.05"), logging.Discard())
	return &fixture{ledger: led, users: users, catalog: cat, store: store, service: svc}
}

func (f *fixture) addUser(t *testing.T, id, kyc, referrerID string) ledger.Wallet {
	t.Helper()
	ctx := context.Background()
	err := f.users.Create(ctx, identity.User{
		ID:         id,
		Email:      id + "@example.com",
		Role:       identity.RoleUser,
		KYCStatus:  kyc,
		ReferrerID: referrerID,
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	w, err := f.ledger.CreateWallet(ctx, id)
	require.NoError(t, err)
	return w
}

func (f *fixture) addPlan(min, max, rate string, months int) catalog.Plan {
	plan := catalog.Plan{
		ID:             "11111111-1111-1111-1111-111111111111",
		Name:           "Sunrise Estates",
		Type:           catalog.TypeRealEstateShare,
		MinAmount:      dec(min),
		MaxAmount:      dec(max),
		ReturnRate:     dec(rate),
		DurationMonths: months,
	}
	f.catalog.AddPlan(plan)
	return plan
}

func TestInvestAndMature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("500", "2000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("1000"))

	inv, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("500")})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, inv.Status)
	assert.True(t, inv.ExpectedReturn.Equal(dec("50")), "expected return 50, got %s", inv.ExpectedReturn)

	got, err := f.ledger.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("500")), "balance after invest: %s", got.Balance)

	matured, err := f.service.Mature(ctx, inv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusMatured, matured.Status)
	require.NotNil(t, matured.ActualReturn)
	assert.True(t, matured.ActualReturn.Equal(dec("50")))

	got, err = f.ledger.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("1050")), "balance after maturation: %s", got.Balance)
}

func TestInvestInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("100", "2000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("100"))

	_, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("500")})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	got, err := f.ledger.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("100")), "failed invest must not move funds")
}

func TestInvestAmountOutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("500", "2000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("5000"))

	for _, amount := range []string{"499.99", "2000.01"} {
		_, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec(amount)})
		require.ErrorIs(t, err, ErrAmountOutOfRange, "amount %s", amount)
	}

	got, _ := f.ledger.Get(ctx, w.ID)
	assert.True(t, got.Balance.Equal(dec("5000")))
}

func TestInvestRequiresKYC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCPending, "")
	plan := f.addPlan("500", "2000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("1000"))

	_, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("500")})
	require.ErrorIs(t, err, ErrKYCRequired)
}

func TestInvestUnknownPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "user-1", identity.KYCApproved, "")

	_, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: "missing", Amount: dec("500")})
	require.ErrorIs(t, err, catalog.ErrPlanNotFound)
}

func TestMatureTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("500", "2000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("1000"))

	inv, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("500")})
	require.NoError(t, err)

	_, err = f.service.Mature(ctx, inv.ID, nil)
	require.NoError(t, err)

	// The second maturation must be rejected, not repeated.
	_, err = f.service.Mature(ctx, inv.ID, nil)
	require.ErrorIs(t, err, ErrNotActive)

	got, _ := f.ledger.Get(ctx, w.ID)
	assert.True(t, got.Balance.Equal(dec("1050")), "double mature must not credit twice, balance %s", got.Balance)
}

func TestCancelRefundsPrincipalOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("500", "2000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("1000"))

	inv, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("500")})
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	got, _ := f.ledger.Get(ctx, w.ID)
	assert.True(t, got.Balance.Equal(dec("1000")), "cancellation refunds principal, no return")

	_, err = f.service.Cancel(ctx, inv.ID)
	require.ErrorIs(t, err, ErrNotActive)
}

func TestReinvestmentClosure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("100", "5000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("1000"))

	inv, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("500"), Reinvest: true})
	require.NoError(t, err)

	_, err = f.service.Mature(ctx, inv.ID, nil)
	require.NoError(t, err)

	// Reinvestment keeps funds inside the system.
	got, _ := f.ledger.Get(ctx, w.ID)
	assert.True(t, got.Balance.Equal(dec("500")), "reinvest must not credit wallet, balance %s", got.Balance)

	investments, err := f.service.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, investments, 2)

	var next Investment
	for _, candidate := range investments {
		if candidate.Status == StatusActive {
			next = candidate
		}
	}
	require.NotEmpty(t, next.ID)
	assert.True(t, next.Amount.Equal(dec("550")), "new position carries principal + return, got %s", next.Amount)
	assert.True(t, next.ReturnRate.Equal(plan.ReturnRate), "reinvest uses frozen terms")
	assert.True(t, next.Reinvest)
}

func TestCommissionStampedAndPaidOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	refWallet := f.addUser(t, "referrer-1", identity.KYCApproved, "")
	w := f.addUser(t, "user-1", identity.KYCApproved, "referrer-1")
	plan := f.addPlan("100", "5000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("1000"))

	inv, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("1000")})
	require.NoError(t, err)
	assert.Equal(t, "referrer-1", inv.ReferrerID)
	assert.True(t, inv.CommissionAmount.Equal(dec("50")), "5%% of 1000, got %s", inv.CommissionAmount)
	assert.False(t, inv.CommissionPaid)

	paid, err := f.service.PayCommission(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, paid.CommissionPaid)

	got, _ := f.ledger.Get(ctx, refWallet.ID)
	assert.True(t, got.Balance.Equal(dec("50")))

	_, err = f.service.PayCommission(ctx, inv.ID)
	require.ErrorIs(t, err, ErrCommissionAlreadyPaid)

	got, _ = f.ledger.Get(ctx, refWallet.ID)
	assert.True(t, got.Balance.Equal(dec("50")), "second payout must not credit again")
}

func TestPayCommissionWithoutReferral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("100", "5000", "0.1", 6)
	ledger.SeedBalance(f.ledger, w.ID, dec("1000"))

	inv, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("500")})
	require.NoError(t, err)

	_, err = f.service.PayCommission(ctx, inv.ID)
	require.ErrorIs(t, err, ErrNoCommission)
}

func TestMatureDueBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("100", "5000", "0.1", 0)
	ledger.SeedBalance(f.ledger, w.ID, dec("1000"))

	// Zero-month plan: positions are due as soon as they are created.
	for i := 0; i < 3; i++ {
		_, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("200")})
		require.NoError(t, err)
	}

	matured, err := f.service.MatureDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, matured)

	// 400 never invested + 3 × 220 credited back.
	got, _ := f.ledger.Get(ctx, w.ID)
	assert.True(t, got.Balance.Equal(dec("1060")), "balance after batch: %s", got.Balance)

	again, err := f.service.MatureDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, again, "batch is idempotent once positions are terminal")
}

func TestConservationAcrossLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addUser(t, "user-1", identity.KYCApproved, "")
	plan := f.addPlan("100", "5000", "0.1", 6)

	_, err := f.ledger.Credit(ctx, w.ID, dec("1000"), ledger.TxMeta{Type: ledger.TxDeposit})
	require.NoError(t, err)

	inv, err := f.service.Invest(ctx, InvestInput{UserID: "user-1", PlanID: plan.ID, Amount: dec("600")})
	require.NoError(t, err)
	_, err = f.service.Mature(ctx, inv.ID, nil)
	require.NoError(t, err)

	got, err := f.ledger.Get(ctx, w.ID)
	require.NoError(t, err)
	sum := ledger.SumEntries(f.ledger, w.ID)
	assert.True(t, got.Balance.Equal(sum), "balance %s must equal completed entry sum %s", got.Balance, sum)
}
