//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/database/databasetest"
	"github.com/MrJamesThe3rd/tally/internal/subscription/store"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txstore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

func TestUnit_EnsureCategory(t *testing.T) {
	db := databasetest.Open(t)
	subs := store.New(db)
	ctx := context.Background()

	t.Run("ExistingCategoryIsNotLocked", func(t *testing.T) {
		name := "test-" + uuid.NewString()
		existing := databasetest.Category(t, db, name, "expense")
		walletID := databasetest.Wallet(t, db)

		payment, err := subs.Begin(ctx)
		require.NoError(t, err)
		t.Cleanup(func() { _ = payment.Rollback() })

		id, err := payment.EnsureCategory(ctx, name, transaction.TypeExpense)
		require.NoError(t, err)
		assert.Equal(t, existing, id)

		waitCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		other, err := txstore.New(db).Begin(waitCtx)
		require.NoError(t, err)
		t.Cleanup(func() { _ = other.Rollback() })

		// An entry booked under the same category proceeds while the payment is open.
		err = other.InsertTransaction(waitCtx, &transaction.Transaction{
			Type:       transaction.TypeExpense,
			Amount:     decimal.RequireFromString("9.99"),
			Date:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			CategoryID: existing,
			WalletID:   walletID,
		})
		assert.NoError(t, err)
	})

	t.Run("CreatesOnce", func(t *testing.T) {
		name := "test-" + uuid.NewString()

		unit, err := subs.Begin(ctx)
		require.NoError(t, err)
		t.Cleanup(func() { _ = unit.Rollback() })

		first, err := unit.EnsureCategory(ctx, name, transaction.TypeExpense)
		require.NoError(t, err)

		second, err := unit.EnsureCategory(ctx, name, transaction.TypeExpense)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, first)
		assert.Equal(t, first, second)
	})
}
