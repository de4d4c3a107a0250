package transaction

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// rebalance keeps wallet balances consistent with the ledger around a
// mutation. Every wallet in walletIDs is locked in ascending id order, its
// baseline is captured, mutate runs, and the balance is rewritten as
// baseline + Net(post-mutation transactions). Everything happens inside tx,
// so a failure anywhere leaves no trace once the caller rolls back.
//
// The returned map holds the new balance of each wallet.
func rebalance(ctx context.Context, tx Tx, walletIDs []uuid.UUID, mutate func() error) (map[uuid.UUID]decimal.Decimal, error) {
	ids := lockOrder(walletIDs)

	baselines := make(map[uuid.UUID]decimal.Decimal, len(ids))

	for _, id := range ids {
		w, err := tx.LockWallet(ctx, id)
		if err != nil {
			return nil, err
		}

		b, err := baseline(ctx, tx, w)
		if err != nil {
			return nil, err
		}

		baselines[id] = b
	}

	if err := mutate(); err != nil {
		return nil, err
	}

	balances := make(map[uuid.UUID]decimal.Decimal, len(ids))

	for _, id := range ids {
		txs, err := tx.WalletTransactions(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reading ledger of wallet %s: %w", id, err)
		}

		balance := baselines[id].Add(Net(txs))
		if err := tx.SetWalletBalance(ctx, id, balance, baselines[id]); err != nil {
			return nil, fmt.Errorf("writing balance of wallet %s: %w", id, err)
		}

		balances[id] = balance
	}

	return balances, nil
}

// baseline is the part of a wallet balance the ledger does not account for.
// Wallets without a recorded initial balance get it inferred from the stored
// balance and the current ledger; rebalance then persists the inferred value.
func baseline(ctx context.Context, tx Tx, w *WalletBalance) (decimal.Decimal, error) {
	if w.InitialBalance.Valid {
		return w.InitialBalance.Decimal, nil
	}

	txs, err := tx.WalletTransactions(ctx, w.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading ledger of wallet %s: %w", w.ID, err)
	}

	return w.Balance.Sub(Net(txs)), nil
}

// lockOrder deduplicates ids and sorts them so that units touching the same
// wallets always lock them in the same order.
func lockOrder(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	return slices.Compact(out)
}
