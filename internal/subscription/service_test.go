package subscription_test

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
	"github.com/MrJamesThe3rd/tally/internal/subscription"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

var now = time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store   *memstore.Store
	svc     *subscription.Service
	ledger  *transaction.Service
	wallets *wallet.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	ledger := transaction.NewService(store.Transactions())

	return &fixture{
		store:   store,
		svc:     subscription.NewService(store.Subscriptions(), ledger, subscription.WithClock(func() time.Time { return now })),
		ledger:  ledger,
		wallets: wallet.NewService(store.Wallets()),
	}
}

func (f *fixture) wallet(t *testing.T, balance string) uuid.UUID {
	t.Helper()

	w, err := f.wallets.Create(context.Background(), wallet.CreateParams{Name: "Card", InitialBalance: dec(balance)})
	require.NoError(t, err)

	return w.ID
}

func (f *fixture) subscribe(t *testing.T, name, amount string, walletID *uuid.UUID, due time.Time) *subscription.Subscription {
	t.Helper()

	sub, err := f.svc.Create(context.Background(), subscription.CreateParams{
		ServiceName: name,
		Amount:      dec(amount),
		Period:      subscription.PeriodMonthly,
		StartDate:   due,
		WalletID:    walletID,
	})
	require.NoError(t, err)

	return sub
}

func TestService_MarkPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.wallet(t, "200")
	sub := f.subscribe(t, "Netflix", "15", &w, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))

	res, err := f.svc.MarkPaid(ctx, sub.ID)
	require.NoError(t, err)

	assert.True(t, dec("185").Equal(res.WalletBalance))
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), res.Subscription.NextDueDate)

	stored, err := f.svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), stored.NextDueDate)

	got, err := f.wallets.Get(ctx, w)
	require.NoError(t, err)
	assert.True(t, dec("185").Equal(got.Balance))

	txs, err := f.ledger.List(ctx, transaction.Filter{WalletID: &w})
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, transaction.TypeExpense, tx.Type)
	assert.True(t, dec("15").Equal(tx.Amount))
	assert.Equal(t, now, tx.Date)
	assert.Equal(t, "Subscription payment: Netflix", tx.Note)

	cat, err := category.NewService(f.store.Categories()).Get(ctx, tx.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, category.SubscriptionName, cat.Name)
	assert.Equal(t, transaction.TypeExpense, cat.Type)
}

func TestService_MarkPaid_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.wallet(t, "100")
	sub := f.subscribe(t, "Music", "9.99", &w, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.MarkPaid(ctx, sub.ID)
	require.NoError(t, err)

	res, err := f.svc.MarkPaid(ctx, sub.ID)
	require.NoError(t, err)

	assert.True(t, dec("80.02").Equal(res.WalletBalance))
	assert.Equal(t, time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC), res.Subscription.NextDueDate)
}

func TestService_MarkPaid_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.MarkPaid(ctx, uuid.New())
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})

	t.Run("NoWallet", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, "Gym", "30", nil, now)

		_, err := f.svc.MarkPaid(ctx, sub.ID)
		assert.ErrorIs(t, err, apperror.ErrValidation)

		// nothing was created, not even the category
		cats, err := category.NewService(f.store.Categories()).List(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, cats)
	})

	t.Run("Inactive", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "50")
		sub := f.subscribe(t, "Gym", "30", &w, now)

		_, err := f.svc.Update(ctx, sub.ID, subscription.UpdateParams{
			ServiceName: sub.ServiceName,
			Amount:      sub.Amount,
			Period:      sub.Period,
			WalletID:    &w,
			IsActive:    false,
		})
		require.NoError(t, err)

		_, err = f.svc.MarkPaid(ctx, sub.ID)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("WalletDeleted", func(t *testing.T) {
		f := newFixture(t)
		w := f.wallet(t, "50")
		sub := f.subscribe(t, "Gym", "30", &w, now)

		require.NoError(t, f.wallets.Delete(ctx, w))

		_, err := f.svc.MarkPaid(ctx, sub.ID)
		assert.ErrorIs(t, err, apperror.ErrValidation)

		stored, err := f.svc.Get(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, now, stored.NextDueDate)
	})

	t.Run("AdvanceFailsRollsBack", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := subscription.NewMockRepository(ctrl)
		tx := subscription.NewMockTx(ctrl)

		walletID := uuid.New()
		categoryID := uuid.New()
		subID := uuid.New()

		repo.EXPECT().Begin(gomock.Any()).Return(tx, nil)
		tx.EXPECT().LockSubscription(gomock.Any(), subID).Return(&subscription.Subscription{
			ID:          subID,
			ServiceName: "Cloud",
			Amount:      dec("5"),
			Period:      subscription.PeriodMonthly,
			NextDueDate: now,
			WalletID:    &walletID,
			IsActive:    true,
		}, nil)
		tx.EXPECT().EnsureCategory(gomock.Any(), category.SubscriptionName, transaction.TypeExpense).Return(categoryID, nil)
		tx.EXPECT().LockWallet(gomock.Any(), walletID).Return(&transaction.WalletBalance{
			ID:             walletID,
			Balance:        dec("10"),
			InitialBalance: decimal.NewNullDecimal(dec("10")),
		}, nil)
		tx.EXPECT().CategoryExists(gomock.Any(), categoryID).Return(true, nil)
		tx.EXPECT().InsertTransaction(gomock.Any(), gomock.Any()).Return(nil)
		tx.EXPECT().WalletTransactions(gomock.Any(), walletID).Return([]*transaction.Transaction{
			{Type: transaction.TypeExpense, Amount: dec("5")},
		}, nil)
		tx.EXPECT().SetWalletBalance(gomock.Any(), walletID, gomock.Any(), gomock.Any()).Return(nil)
		tx.EXPECT().AdvanceDueDate(gomock.Any(), subID, time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)).Return(errors.New("deadlock detected"))
		tx.EXPECT().Rollback().Return(nil)

		svc := subscription.NewService(repo, transaction.NewService(nil), subscription.WithClock(func() time.Time { return now }))

		_, err := svc.MarkPaid(ctx, subID)
		assert.ErrorIs(t, err, apperror.ErrStore)
	})
}

func TestService_MarkPaid_ConcurrentSharesCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.wallet(t, "1000")
	subs := []*subscription.Subscription{
		f.subscribe(t, "Netflix", "15", &w, now),
		f.subscribe(t, "Spotify", "10", &w, now),
		f.subscribe(t, "iCloud", "3", &w, now),
	}

	var g errgroup.Group

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			_, err := f.svc.MarkPaid(ctx, sub.ID)
			return err
		})
	}

	require.NoError(t, g.Wait())

	expense := transaction.TypeExpense
	cats, err := category.NewService(f.store.Categories()).List(ctx, &expense)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, category.SubscriptionName, cats[0].Name)

	got, err := f.wallets.Get(ctx, w)
	require.NoError(t, err)
	assert.True(t, dec("972").Equal(got.Balance))
}

func TestService_Upcoming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.wallet(t, "0")
	overdue := f.subscribe(t, "Overdue", "1", &w, now.AddDate(0, 0, -2))
	soon := f.subscribe(t, "Soon", "1", &w, now.AddDate(0, 0, 2))
	f.subscribe(t, "Later", "1", &w, now.AddDate(0, 1, 0))

	got, err := f.svc.Upcoming(ctx, 3*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, overdue.ID, got[0].ID)
	assert.Equal(t, soon.ID, got[1].ID)
}

func TestService_Create_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params subscription.CreateParams
	}{
		{
			name:   "MissingName",
			params: subscription.CreateParams{Amount: dec("1"), Period: subscription.PeriodDaily, StartDate: now},
		},
		{
			name:   "ZeroAmount",
			params: subscription.CreateParams{ServiceName: "X", Amount: decimal.Zero, Period: subscription.PeriodDaily, StartDate: now},
		},
		{
			name:   "BadPeriod",
			params: subscription.CreateParams{ServiceName: "X", Amount: dec("1"), Period: "hourly", StartDate: now},
		},
		{
			name:   "MissingStart",
			params: subscription.CreateParams{ServiceName: "X", Amount: dec("1"), Period: subscription.PeriodDaily},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.params)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := f.subscribe(t, "Old", "1", nil, now)
	require.NoError(t, f.svc.Delete(ctx, sub.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, sub.ID), subscription.ErrNotFound)

	all, err := f.svc.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, all)
}
