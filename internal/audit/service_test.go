package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/audit"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/memstore"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

type fixture struct {
	store    *memstore.Store
	wallets  *wallet.Service
	ledger   *transaction.Service
	category uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()

	cat := &category.Category{Name: "Misc", Type: transaction.TypeExpense}
	require.NoError(t, store.Categories().CreateCategory(context.Background(), cat))

	return &fixture{
		store:    store,
		wallets:  wallet.NewService(store.Wallets()),
		ledger:   transaction.NewService(store.Transactions()),
		category: cat.ID,
	}
}

func (f *fixture) wallet(t *testing.T, name, initial string) uuid.UUID {
	t.Helper()

	w, err := f.wallets.Create(context.Background(), wallet.CreateParams{Name: name, InitialBalance: dec(initial)})
	require.NoError(t, err)

	return w.ID
}

func (f *fixture) post(t *testing.T, walletID uuid.UUID, typ transaction.Type, amount string) {
	t.Helper()

	_, err := f.ledger.Create(context.Background(), transaction.CreateParams{
		Type:       typ,
		Amount:     dec(amount),
		Date:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		CategoryID: f.category,
		WalletID:   walletID,
	})
	require.NoError(t, err)
}

// drift overwrites the stored balance behind the ledger's back.
func (f *fixture) drift(t *testing.T, walletID uuid.UUID, balance string) {
	t.Helper()

	ctx := context.Background()

	tx, err := f.store.Wallets().Begin(ctx)
	require.NoError(t, err)

	w, err := tx.LockWallet(ctx, walletID)
	require.NoError(t, err)

	require.NoError(t, tx.SetBalance(ctx, walletID, dec(balance), w.InitialBalance.Decimal))
	require.NoError(t, tx.Commit())
}

func find(t *testing.T, report *audit.Report, id uuid.UUID) audit.Result {
	t.Helper()

	for _, res := range report.Results {
		if res.WalletID == id {
			return res
		}
	}

	require.FailNow(t, "wallet missing from report", id.String())

	return audit.Result{}
}

func TestService_Run_Clean(t *testing.T) {
	f := newFixture(t)

	w := f.wallet(t, "Main", "100")
	f.post(t, w, transaction.TypeIncome, "40")
	f.post(t, w, transaction.TypeExpense, "15.50")

	report, err := audit.NewService(f.store.Wallets(), decimal.Zero).Run(context.Background(), false)
	require.NoError(t, err)

	assert.Zero(t, report.Discrepancies)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.False(t, res.Discrepancy)
	assertDecimal(t, "124.50", res.StoredBalance)
	assertDecimal(t, "24.50", res.LedgerNet)
	assertDecimal(t, "100", res.Baseline)
	assertDecimal(t, "0", res.Difference)
	assertDecimal(t, "40", res.Totals.Income)
	assert.Equal(t, 2, res.Totals.Count)
}

func TestService_Run_DetectAndFix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drifting := f.wallet(t, "Drifting", "100")
	healthy := f.wallet(t, "Healthy", "10")
	f.post(t, drifting, transaction.TypeExpense, "20")
	f.drift(t, drifting, "95")

	svc := audit.NewService(f.store.Wallets(), decimal.Zero)

	report, err := svc.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Discrepancies)
	assert.Zero(t, report.Fixed)

	res := find(t, report, drifting)
	assert.True(t, res.Discrepancy)
	assertDecimal(t, "80", res.Expected)
	assertDecimal(t, "15", res.Difference)
	assert.False(t, find(t, report, healthy).Discrepancy)

	// a dry run changes nothing
	got, err := f.wallets.Get(ctx, drifting)
	require.NoError(t, err)
	assertDecimal(t, "95", got.Balance)

	report, err = svc.Run(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fixed)
	assert.True(t, find(t, report, drifting).Fixed)

	got, err = f.wallets.Get(ctx, drifting)
	require.NoError(t, err)
	assertDecimal(t, "80", got.Balance)

	report, err = svc.Run(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Discrepancies)
}

func TestService_Run_Tolerance(t *testing.T) {
	f := newFixture(t)

	w := f.wallet(t, "Main", "10")
	f.drift(t, w, "10.01")

	report, err := audit.NewService(f.store.Wallets(), dec("-0.01")).Run(context.Background(), true)
	require.NoError(t, err)

	assertDecimal(t, "0.01", report.Tolerance)
	assert.Zero(t, report.Discrepancies)
	assert.Zero(t, report.Fixed)
	assertDecimal(t, "0.01", report.Results[0].Difference)
}

func TestService_Run_InferredBaseline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	legacy := &wallet.Wallet{Name: "Legacy", Currency: wallet.DefaultCurrency, Balance: dec("300")}
	require.NoError(t, f.store.Wallets().CreateWallet(ctx, legacy))

	report, err := audit.NewService(f.store.Wallets(), decimal.Zero).Run(ctx, true)
	require.NoError(t, err)

	res := report.Results[0]
	assert.True(t, res.BaselineInferred)
	assert.False(t, res.Discrepancy)
	assertDecimal(t, "300", res.Baseline)
}

func TestService_Run_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("ListFails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := wallet.NewMockRepository(ctrl)
		repo.EXPECT().ListWallets(gomock.Any()).Return(nil, errors.New("connection reset"))

		_, err := audit.NewService(repo, decimal.Zero).Run(ctx, false)
		assert.ErrorIs(t, err, apperror.ErrStore)
	})

	t.Run("SkipsWalletDeletedMeanwhile", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := wallet.NewMockRepository(ctrl)
		tx := wallet.NewMockTx(ctrl)

		id := uuid.New()
		repo.EXPECT().ListWallets(gomock.Any()).Return([]*wallet.Wallet{{ID: id, Name: "Gone"}}, nil)
		repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		tx.EXPECT().LockWallet(gomock.Any(), id).Return(nil, wallet.ErrNotFound)
		tx.EXPECT().Rollback().Return(nil)

		report, err := audit.NewService(repo, decimal.Zero).Run(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, report.Results)
	})
}
