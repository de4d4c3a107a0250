package transaction_test

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
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/memstore"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func newID() uuid.UUID { return uuid.New() }

func assertKind(t *testing.T, err error, kind string) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err).String(), "error: %v", err)
}

type fixture struct {
	store    *memstore.Store
	svc      *transaction.Service
	wallets  *wallet.Service
	category uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()

	cat := &category.Category{Name: "General", Type: transaction.TypeExpense}
	require.NoError(t, store.Categories().CreateCategory(context.Background(), cat))

	return &fixture{
		store:    store,
		svc:      transaction.NewService(store.Transactions()),
		wallets:  wallet.NewService(store.Wallets()),
		category: cat.ID,
	}
}

func (f *fixture) wallet(t *testing.T, initial string) uuid.UUID {
	t.Helper()

	w, err := f.wallets.Create(context.Background(), wallet.CreateParams{Name: "Main", InitialBalance: dec(initial)})
	require.NoError(t, err)

	return w.ID
}

func (f *fixture) params(walletID uuid.UUID, typ transaction.Type, amount string) transaction.CreateParams {
	return transaction.CreateParams{
		Type:       typ,
		Amount:     dec(amount),
		Date:       date(2026, 1, 15),
		CategoryID: f.category,
		WalletID:   walletID,
	}
}

func (f *fixture) create(t *testing.T, walletID uuid.UUID, typ transaction.Type, amount string) *transaction.Transaction {
	t.Helper()

	tx, err := f.svc.Create(context.Background(), f.params(walletID, typ, amount))
	require.NoError(t, err)

	return tx
}

func (f *fixture) assertBalance(t *testing.T, walletID uuid.UUID, want string) {
	t.Helper()

	w, err := f.wallets.Get(context.Background(), walletID)
	require.NoError(t, err)
	assertDecimal(t, want, w.Balance)
}

func TestService_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wallet(t, "100")

	income := f.create(t, w, transaction.TypeIncome, "50")
	f.assertBalance(t, w, "150")

	f.create(t, w, transaction.TypeExpense, "30")
	f.assertBalance(t, w, "120")

	require.NoError(t, f.svc.Delete(ctx, income.ID))
	f.assertBalance(t, w, "70")
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name     string
		typ      transaction.Type
		amount   string
		want     string
		wantKind string
	}

	tests := []testCase{
		{name: "Income", typ: transaction.TypeIncome, amount: "25.50", want: "125.50"},
		{name: "Expense", typ: transaction.TypeExpense, amount: "25.50", want: "74.50"},
		{name: "Lend", typ: transaction.TypeLend, amount: "10", want: "90"},
		{name: "Rent", typ: transaction.TypeRent, amount: "100", want: "0"},
		{name: "ZeroAmount", typ: transaction.TypeIncome, amount: "0", want: "100", wantKind: "validation"},
		{name: "NegativeAmount", typ: transaction.TypeExpense, amount: "-10", want: "100", wantKind: "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.wallet(t, "100")

			got, err := f.svc.Create(context.Background(), f.params(w, tt.typ, tt.amount))
			if tt.wantKind != "" {
				assertKind(t, err, tt.wantKind)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, got.ID)
				assert.False(t, got.CreatedAt.IsZero())
			}

			f.assertBalance(t, w, tt.want)
		})
	}
}

func TestService_Create_Failures(t *testing.T) {
	t.Run("UnknownWallet", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Create(context.Background(), f.params(uuid.New(), transaction.TypeIncome, "10"))
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		txs, err := f.svc.List(context.Background(), transaction.Filter{})
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("UnknownCategoryLeavesBalance", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")

		p := f.params(w, transaction.TypeIncome, "10")
		p.CategoryID = uuid.New()

		_, err := f.svc.Create(context.Background(), p)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		f.assertBalance(t, w, "100")
	})

	t.Run("ValidationDoesNotOpenUnit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := transaction.NewMockRepository(ctrl)

		svc := transaction.NewService(repo)
		_, err := svc.Create(context.Background(), transaction.CreateParams{Type: transaction.TypeIncome})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("BeginFails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := transaction.NewMockRepository(ctrl)
		repo.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("connection refused"))

		f := newFixture(t)
		svc := transaction.NewService(repo)
		_, err := svc.Create(context.Background(), f.params(uuid.New(), transaction.TypeIncome, "1"))
		assert.ErrorIs(t, err, apperror.ErrStore)
	})

	t.Run("InsertFailsRollsBack", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := transaction.NewMockRepository(ctrl)
		tx := transaction.NewMockTx(ctrl)

		walletID := uuid.New()
		categoryID := uuid.New()

		repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		tx.EXPECT().LockWallet(gomock.Any(), walletID).Return(&transaction.WalletBalance{
			ID:             walletID,
			Balance:        dec("10"),
			InitialBalance: decimal.NewNullDecimal(dec("10")),
		}, nil)
		tx.EXPECT().CategoryExists(gomock.Any(), categoryID).Return(true, nil)
		tx.EXPECT().InsertTransaction(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		tx.EXPECT().Rollback().Return(nil)

		svc := transaction.NewService(repo)
		_, err := svc.Create(context.Background(), transaction.CreateParams{
			Type:       transaction.TypeIncome,
			Amount:     dec("1"),
			Date:       date(2026, 1, 1),
			CategoryID: categoryID,
			WalletID:   walletID,
		})
		assert.ErrorIs(t, err, apperror.ErrStore)
	})

	t.Run("LinkTakenByConcurrentInsertIsConflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := transaction.NewMockRepository(ctrl)
		tx := transaction.NewMockTx(ctrl)

		walletID := uuid.New()
		categoryID := uuid.New()

		repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		tx.EXPECT().LockWallet(gomock.Any(), walletID).Return(&transaction.WalletBalance{
			ID:             walletID,
			Balance:        dec("10"),
			InitialBalance: decimal.NewNullDecimal(dec("10")),
		}, nil)
		tx.EXPECT().CategoryExists(gomock.Any(), categoryID).Return(true, nil)
		tx.EXPECT().InsertTransaction(gomock.Any(), gomock.Any()).
			Return(apperror.Conflict("related transaction already has a counterpart"))
		tx.EXPECT().Rollback().Return(nil)

		svc := transaction.NewService(repo)
		_, err := svc.Create(context.Background(), transaction.CreateParams{
			Type:       transaction.TypeIncome,
			Amount:     dec("1"),
			Date:       date(2026, 1, 1),
			CategoryID: categoryID,
			WalletID:   walletID,
		})
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})
}

func TestService_Update(t *testing.T) {
	t.Run("ChangeAmountAndType", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")
		tx := f.create(t, w, transaction.TypeExpense, "20")
		f.assertBalance(t, w, "80")

		p := transaction.UpdateParams(f.params(w, transaction.TypeIncome, "20"))
		_, err := f.svc.Update(context.Background(), tx.ID, p)
		require.NoError(t, err)
		f.assertBalance(t, w, "120")
	})

	t.Run("ReassignWallet", func(t *testing.T) {
		f := newFixture(t)
		a := f.wallet(t, "100")
		b := f.wallet(t, "50")

		tx := f.create(t, a, transaction.TypeExpense, "20")
		f.assertBalance(t, a, "80")

		got, err := f.svc.Update(context.Background(), tx.ID, transaction.UpdateParams(f.params(b, transaction.TypeExpense, "20")))
		require.NoError(t, err)
		assert.Equal(t, b, got.WalletID)

		f.assertBalance(t, a, "100")
		f.assertBalance(t, b, "30")
	})

	t.Run("ReassignWalletWithNewAmountAndType", func(t *testing.T) {
		f := newFixture(t)
		a := f.wallet(t, "100")
		b := f.wallet(t, "50")

		tx := f.create(t, a, transaction.TypeIncome, "40")
		f.assertBalance(t, a, "140")
		f.assertBalance(t, b, "50")

		_, err := f.svc.Update(context.Background(), tx.ID, transaction.UpdateParams(f.params(b, transaction.TypeRent, "15")))
		require.NoError(t, err)

		f.assertBalance(t, a, "100")
		f.assertBalance(t, b, "35")
	})

	t.Run("UnknownTransaction", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")

		_, err := f.svc.Update(context.Background(), uuid.New(), transaction.UpdateParams(f.params(w, transaction.TypeIncome, "1")))
		assert.ErrorIs(t, err, transaction.ErrNotFound)
	})

	t.Run("UnknownTargetWalletKeepsEverything", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")
		tx := f.create(t, w, transaction.TypeExpense, "20")

		_, err := f.svc.Update(context.Background(), tx.ID, transaction.UpdateParams(f.params(uuid.New(), transaction.TypeExpense, "20")))
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		got, err := f.svc.Get(context.Background(), tx.ID)
		require.NoError(t, err)
		assert.Equal(t, w, got.WalletID)
		f.assertBalance(t, w, "80")
	})
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "100")
	tx := f.create(t, w, transaction.TypeLend, "40")
	f.assertBalance(t, w, "60")

	require.NoError(t, f.svc.Delete(context.Background(), tx.ID))
	f.assertBalance(t, w, "100")

	err := f.svc.Delete(context.Background(), tx.ID)
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

func TestService_LegacyWalletBaseline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// a wallet from before initial balances were recorded, with one
	// transaction already reflected in its balance
	legacy := &wallet.Wallet{Name: "Old", Currency: "EUR", Balance: dec("500")}
	require.NoError(t, f.store.Wallets().CreateWallet(ctx, legacy))

	utx, err := f.store.Transactions().Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, utx.InsertTransaction(ctx, &transaction.Transaction{
		Type: transaction.TypeExpense, Amount: dec("50"), Date: date(2025, 12, 1),
		CategoryID: f.category, WalletID: legacy.ID,
	}))
	require.NoError(t, utx.Commit())

	f.create(t, legacy.ID, transaction.TypeIncome, "10")
	f.assertBalance(t, legacy.ID, "510")

	w, err := f.wallets.Get(ctx, legacy.ID)
	require.NoError(t, err)
	require.True(t, w.InitialBalance.Valid)
	assertDecimal(t, "550", w.InitialBalance.Decimal)
}

func TestService_ConcurrentCreates(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "0")

	var g errgroup.Group

	for n := 0; n < 2; n++ {
		g.Go(func() error {
			_, err := f.svc.Create(context.Background(), f.params(w, transaction.TypeIncome, "10"))
			return err
		})
	}

	require.NoError(t, g.Wait())
	f.assertBalance(t, w, "20")
}

func TestService_ConcurrentMixedMutations(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "1000")
	b := f.wallet(t, "1000")

	seed := make([]*transaction.Transaction, 10)
	for i := range seed {
		seed[i] = f.create(t, a, transaction.TypeExpense, "10")
	}

	var g errgroup.Group

	for i := 0; i < 10; i++ {
		i := i
		g.Go(func() error {
			_, err := f.svc.Create(context.Background(), f.params(b, transaction.TypeIncome, "5"))
			return err
		})

		g.Go(func() error {
			_, err := f.svc.Update(context.Background(), seed[i].ID, transaction.UpdateParams(f.params(b, transaction.TypeExpense, "10")))
			return err
		})
	}

	require.NoError(t, g.Wait())

	// every expense moved from a to b; b also got ten incomes of 5
	f.assertBalance(t, a, "1000")
	f.assertBalance(t, b, "950")
}

func TestService_RelatedTransaction(t *testing.T) {
	ctx := context.Background()

	withRelated := func(p transaction.CreateParams, id uuid.UUID) transaction.CreateParams {
		p.RelatedTransactionID = &id
		p.IsReturn = true

		return p
	}

	t.Run("LinkAndDeleteTarget", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")
		purchase := f.create(t, w, transaction.TypeExpense, "30")

		refund, err := f.svc.Create(ctx, withRelated(f.params(w, transaction.TypeIncome, "30"), purchase.ID))
		require.NoError(t, err)
		require.NotNil(t, refund.RelatedTransactionID)
		f.assertBalance(t, w, "100")

		require.NoError(t, f.svc.Delete(ctx, purchase.ID))

		got, err := f.svc.Get(ctx, refund.ID)
		require.NoError(t, err)
		assert.Nil(t, got.RelatedTransactionID)
		f.assertBalance(t, w, "130")
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")

		_, err := f.svc.Create(ctx, withRelated(f.params(w, transaction.TypeIncome, "30"), uuid.New()))
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		f.assertBalance(t, w, "100")
	})

	t.Run("Self", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")
		tx := f.create(t, w, transaction.TypeIncome, "30")

		_, err := f.svc.Update(ctx, tx.ID, transaction.UpdateParams(withRelated(f.params(w, transaction.TypeIncome, "30"), tx.ID)))
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("NoChains", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")
		a := f.create(t, w, transaction.TypeExpense, "30")

		b, err := f.svc.Create(ctx, withRelated(f.params(w, transaction.TypeIncome, "30"), a.ID))
		require.NoError(t, err)

		_, err = f.svc.Create(ctx, withRelated(f.params(w, transaction.TypeExpense, "30"), b.ID))
		assert.ErrorIs(t, err, apperror.ErrValidation)

		c := f.create(t, w, transaction.TypeExpense, "5")
		_, err = f.svc.Update(ctx, a.ID, transaction.UpdateParams(withRelated(f.params(w, transaction.TypeExpense, "30"), c.ID)))
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("OneCounterpart", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")
		a := f.create(t, w, transaction.TypeExpense, "30")

		b, err := f.svc.Create(ctx, withRelated(f.params(w, transaction.TypeIncome, "10"), a.ID))
		require.NoError(t, err)

		_, err = f.svc.Create(ctx, withRelated(f.params(w, transaction.TypeIncome, "20"), a.ID))
		assert.ErrorIs(t, err, apperror.ErrConflict)

		// the existing counterpart may keep its link while being edited
		_, err = f.svc.Update(ctx, b.ID, transaction.UpdateParams(withRelated(f.params(w, transaction.TypeIncome, "15"), a.ID)))
		require.NoError(t, err)
		f.assertBalance(t, w, "85")
	})
}

func TestService_SetCleared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.wallet(t, "100")
	tx := f.create(t, w, transaction.TypeExpense, "10")

	require.NoError(t, f.svc.SetCleared(ctx, tx.ID, true))

	got, err := f.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.Cleared)
	f.assertBalance(t, w, "90")

	assert.ErrorIs(t, f.svc.SetCleared(ctx, uuid.New(), true), transaction.ErrNotFound)
}

func TestService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.wallet(t, "0")
	b := f.wallet(t, "0")

	f.create(t, a, transaction.TypeIncome, "1")
	f.create(t, a, transaction.TypeExpense, "2")
	f.create(t, b, transaction.TypeIncome, "3")

	income := transaction.TypeIncome

	tests := []struct {
		name    string
		filter  transaction.Filter
		wantLen int
	}{
		{name: "All", filter: transaction.Filter{}, wantLen: 3},
		{name: "ByWallet", filter: transaction.Filter{WalletID: &a}, wantLen: 2},
		{name: "ByType", filter: transaction.Filter{Type: &income}, wantLen: 2},
		{name: "ByWalletAndType", filter: transaction.Filter{WalletID: &b, Type: &income}, wantLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_List_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := transaction.NewMockRepository(ctrl)
	repo.EXPECT().
		ListTransactions(gomock.Any(), transaction.Filter{}).
		Return(nil, errors.New("db error"))

	svc := transaction.NewService(repo)
	got, err := svc.List(context.Background(), transaction.Filter{})

	assert.ErrorIs(t, err, apperror.ErrStore)
	assert.Nil(t, got)
}

func TestService_ImportBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertsAllAndRebalances", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")

		res, err := f.svc.ImportBatch(ctx, w, []transaction.CreateParams{
			f.params(uuid.Nil, transaction.TypeIncome, "40"),
			f.params(uuid.Nil, transaction.TypeExpense, "15.50"),
		})
		require.NoError(t, err)
		assert.Len(t, res.Imported, 2)
		assert.Empty(t, res.Conflicts)
		assertDecimal(t, "124.50", res.Balance)
		f.assertBalance(t, w, "124.50")
	})

	t.Run("ConflictsWriteNothing", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")

		existing := f.params(w, transaction.TypeExpense, "9.99")
		existing.Note = "NETFLIX"
		_, err := f.svc.Create(ctx, existing)
		require.NoError(t, err)

		fresh := f.params(w, transaction.TypeIncome, "5")
		fresh.Note = "REFUND"

		res, err := f.svc.ImportBatch(ctx, w, []transaction.CreateParams{existing, fresh})
		require.NoError(t, err)
		require.Len(t, res.Conflicts, 1)
		assert.Equal(t, "NETFLIX", res.Conflicts[0].Existing.Note)
		assert.Len(t, res.New, 1)
		assert.Empty(t, res.Imported)
		f.assertBalance(t, w, "90.01")

		// confirming imports everything, duplicates included
		txs, err := f.svc.CreateBatch(ctx, w, []transaction.CreateParams{existing, fresh})
		require.NoError(t, err)
		assert.Len(t, txs, 2)
		f.assertBalance(t, w, "85.02")
	})

	t.Run("InvalidLine", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "100")

		_, err := f.svc.ImportBatch(ctx, w, []transaction.CreateParams{
			f.params(w, transaction.TypeIncome, "1"),
			f.params(w, transaction.TypeIncome, "0"),
		})
		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "line 2")
		f.assertBalance(t, w, "100")
	})

	t.Run("UnknownWallet", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ImportBatch(ctx, uuid.New(), []transaction.CreateParams{f.params(uuid.Nil, transaction.TypeIncome, "1")})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}
