package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

type walletRepo struct {
	s *Store
}

func (r *walletRepo) CreateWallet(_ context.Context, w *wallet.Wallet) error {
	return r.s.write(func(d *data) error {
		now := r.s.now()
		w.ID = uuid.New()
		w.CreatedAt = now
		w.UpdatedAt = now
		d.wallets[w.ID] = *w

		return nil
	})
}

func (r *walletRepo) GetWallet(_ context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	var (
		w  wallet.Wallet
		ok bool
	)

	r.s.read(func(d *data) { w, ok = d.wallets[id] })

	if !ok {
		return nil, wallet.ErrNotFound
	}

	return &w, nil
}

func (r *walletRepo) ListWallets(_ context.Context) ([]*wallet.Wallet, error) {
	var wallets []*wallet.Wallet

	r.s.read(func(d *data) {
		for _, w := range d.wallets {
			w := w
			wallets = append(wallets, &w)
		}
	})

	slices.SortFunc(wallets, func(a, b *wallet.Wallet) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return wallets, nil
}

func (r *walletRepo) UpdateWallet(_ context.Context, w *wallet.Wallet) error {
	return r.s.write(func(d *data) error {
		stored, ok := d.wallets[w.ID]
		if !ok {
			return wallet.ErrNotFound
		}

		stored.Name = w.Name
		stored.Type = w.Type
		stored.Currency = w.Currency
		stored.UpdatedAt = r.s.now()
		d.wallets[w.ID] = stored

		w.UpdatedAt = stored.UpdatedAt

		return nil
	})
}

func (r *walletRepo) Begin(_ context.Context) (wallet.Tx, error) {
	return &walletUnit{unit: r.s.begin()}, nil
}

type walletUnit struct {
	*unit
}

func (u *walletUnit) LockWallet(_ context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	w, ok := u.d.wallets[id]
	if !ok {
		return nil, wallet.ErrNotFound
	}

	return &w, nil
}

func (u *walletUnit) WalletTransactions(_ context.Context, walletID uuid.UUID) ([]*transaction.Transaction, error) {
	return walletTransactions(u.d, walletID), nil
}

func (u *walletUnit) SetBalance(_ context.Context, id uuid.UUID, balance, initial decimal.Decimal) error {
	return setBalance(u.unit, id, balance, initial)
}

func (u *walletUnit) DeleteWalletTransactions(_ context.Context, walletID uuid.UUID) error {
	deleted := make(map[uuid.UUID]bool)

	for id, tx := range u.d.transactions {
		if tx.WalletID == walletID {
			deleted[id] = true
			delete(u.d.transactions, id)
		}
	}

	unlinkTransactions(u.d, deleted)

	return nil
}

func (u *walletUnit) DeleteWallet(_ context.Context, id uuid.UUID) error {
	if _, ok := u.d.wallets[id]; !ok {
		return wallet.ErrNotFound
	}

	for _, tx := range u.d.transactions {
		if tx.WalletID == id {
			return fmt.Errorf("deleting wallet: transaction %s still references it", tx.ID)
		}
	}

	delete(u.d.wallets, id)

	for subID, sub := range u.d.subscriptions {
		if sub.WalletID != nil && *sub.WalletID == id {
			sub.WalletID = nil
			u.d.subscriptions[subID] = sub
		}
	}

	return nil
}
