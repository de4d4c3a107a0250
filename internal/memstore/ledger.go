package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type ledgerRepo struct {
	s *Store
}

func (r *ledgerRepo) GetTransaction(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var (
		tx transaction.Transaction
		ok bool
	)

	r.s.read(func(d *data) { tx, ok = d.transactions[id] })

	if !ok {
		return nil, transaction.ErrNotFound
	}

	return copyTransaction(tx), nil
}

func (r *ledgerRepo) ListTransactions(_ context.Context, filter transaction.Filter) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction

	r.s.read(func(d *data) {
		for _, tx := range d.transactions {
			if filter.Matches(&tx) {
				txs = append(txs, copyTransaction(tx))
			}
		}
	})

	slices.SortFunc(txs, func(a, b *transaction.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}

		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return txs, nil
}

func (r *ledgerRepo) SetCleared(_ context.Context, id uuid.UUID, cleared bool) error {
	return r.s.write(func(d *data) error {
		tx, ok := d.transactions[id]
		if !ok {
			return transaction.ErrNotFound
		}

		tx.Cleared = cleared
		tx.UpdatedAt = r.s.now()
		d.transactions[id] = tx

		return nil
	})
}

func (r *ledgerRepo) Begin(_ context.Context) (transaction.Tx, error) {
	return &ledgerUnit{unit: r.s.begin()}, nil
}

type ledgerUnit struct {
	*unit
}

func (u *ledgerUnit) LockWallet(_ context.Context, id uuid.UUID) (*transaction.WalletBalance, error) {
	w, ok := u.d.wallets[id]
	if !ok {
		return nil, apperror.NotFound("wallet")
	}

	return &transaction.WalletBalance{ID: w.ID, Balance: w.Balance, InitialBalance: w.InitialBalance}, nil
}

func (u *ledgerUnit) SetWalletBalance(_ context.Context, id uuid.UUID, balance, initial decimal.Decimal) error {
	return setBalance(u.unit, id, balance, initial)
}

func (u *ledgerUnit) WalletTransactions(_ context.Context, walletID uuid.UUID) ([]*transaction.Transaction, error) {
	return walletTransactions(u.d, walletID), nil
}

func (u *ledgerUnit) CategoryExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := u.d.categories[id]
	return ok, nil
}

func (u *ledgerUnit) GetTransaction(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	tx, ok := u.d.transactions[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}

	return copyTransaction(tx), nil
}

func (u *ledgerUnit) LockTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return u.GetTransaction(ctx, id)
}

func (u *ledgerUnit) CounterpartOf(_ context.Context, id uuid.UUID) (*uuid.UUID, error) {
	for _, tx := range u.d.transactions {
		if tx.RelatedTransactionID != nil && *tx.RelatedTransactionID == id {
			return &tx.ID, nil
		}
	}

	return nil, nil
}

func (u *ledgerUnit) InsertTransaction(_ context.Context, tx *transaction.Transaction) error {
	if err := u.checkReferences(tx); err != nil {
		return err
	}

	now := u.s.now()
	tx.ID = uuid.New()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	u.d.transactions[tx.ID] = *copyTransaction(*tx)

	return nil
}

func (u *ledgerUnit) UpdateTransaction(_ context.Context, tx *transaction.Transaction) error {
	if _, ok := u.d.transactions[tx.ID]; !ok {
		return transaction.ErrNotFound
	}

	if err := u.checkReferences(tx); err != nil {
		return err
	}

	tx.UpdatedAt = u.s.now()
	u.d.transactions[tx.ID] = *copyTransaction(*tx)

	return nil
}

func (u *ledgerUnit) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	if _, ok := u.d.transactions[id]; !ok {
		return transaction.ErrNotFound
	}

	delete(u.d.transactions, id)
	unlinkTransactions(u.d, map[uuid.UUID]bool{id: true})

	return nil
}

// checkReferences mirrors the foreign keys and the unique related link of
// the transactions table.
func (u *ledgerUnit) checkReferences(tx *transaction.Transaction) error {
	if _, ok := u.d.wallets[tx.WalletID]; !ok {
		return apperror.NotFound("wallet")
	}

	if _, ok := u.d.categories[tx.CategoryID]; !ok {
		return apperror.NotFound("category")
	}

	if tx.RelatedTransactionID == nil {
		return nil
	}

	if _, ok := u.d.transactions[*tx.RelatedTransactionID]; !ok {
		return apperror.NotFound("related transaction")
	}

	for _, other := range u.d.transactions {
		if other.ID != tx.ID && other.RelatedTransactionID != nil && *other.RelatedTransactionID == *tx.RelatedTransactionID {
			return apperror.Conflict("related transaction already has a counterpart")
		}
	}

	return nil
}

func setBalance(u *unit, id uuid.UUID, balance, initial decimal.Decimal) error {
	w, ok := u.d.wallets[id]
	if !ok {
		return apperror.NotFound("wallet")
	}

	w.Balance = balance
	w.InitialBalance = decimal.NewNullDecimal(initial)
	w.UpdatedAt = u.s.now()
	u.d.wallets[id] = w

	return nil
}

func walletTransactions(d *data, walletID uuid.UUID) []*transaction.Transaction {
	var txs []*transaction.Transaction

	for _, tx := range d.transactions {
		if tx.WalletID == walletID {
			txs = append(txs, copyTransaction(tx))
		}
	}

	slices.SortFunc(txs, func(a, b *transaction.Transaction) int { return a.Date.Compare(b.Date) })

	return txs
}

// unlinkTransactions clears related links pointing at deleted transactions.
func unlinkTransactions(d *data, deleted map[uuid.UUID]bool) {
	for id, tx := range d.transactions {
		if tx.RelatedTransactionID != nil && deleted[*tx.RelatedTransactionID] {
			tx.RelatedTransactionID = nil
			d.transactions[id] = tx
		}
	}
}

func copyTransaction(tx transaction.Transaction) *transaction.Transaction {
	tx.RelatedTransactionID = cloneID(tx.RelatedTransactionID)
	return &tx
}
