package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	txstore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectWalletColumns = `id, name, type, currency, balance, initial_balance, created_at, updated_at`

func scanWallet(s scanner) (*wallet.Wallet, error) {
	var w wallet.Wallet
	if err := s.Scan(
		&w.ID, &w.Name, &w.Type, &w.Currency, &w.Balance, &w.InitialBalance, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &w, nil
}

func (s *Store) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (name, type, currency, balance, initial_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		w.Name,
		w.Type,
		w.Currency,
		w.Balance,
		w.InitialBalance,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	return nil
}

func (s *Store) GetWallet(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallet.ErrNotFound
		}

		return nil, fmt.Errorf("getting wallet: %w", err)
	}

	return w, nil
}

func (s *Store) ListWallets(ctx context.Context) ([]*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + ` FROM wallets ORDER BY name ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*wallet.Wallet

	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}

		wallets = append(wallets, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallet rows: %w", err)
	}

	return wallets, nil
}

func (s *Store) UpdateWallet(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET name = $1, type = $2, currency = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query, w.Name, w.Type, w.Currency, w.ID).Scan(&w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wallet.ErrNotFound
		}

		return fmt.Errorf("updating wallet: %w", err)
	}

	return nil
}

func (s *Store) Begin(ctx context.Context) (wallet.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &unit{Unit: txstore.NewUnit(dbTx)}, nil
}

// unit reuses the ledger unit for transaction reads and balance writes.
type unit struct {
	*txstore.Unit
}

func (u *unit) LockWallet(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + selectWalletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(u.Tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallet.ErrNotFound
		}

		return nil, fmt.Errorf("locking wallet: %w", err)
	}

	return w, nil
}

func (u *unit) SetBalance(ctx context.Context, id uuid.UUID, balance, initial decimal.Decimal) error {
	return u.SetWalletBalance(ctx, id, balance, initial)
}

func (u *unit) DeleteWalletTransactions(ctx context.Context, walletID uuid.UUID) error {
	if _, err := u.Tx.ExecContext(ctx, `DELETE FROM transactions WHERE wallet_id = $1`, walletID); err != nil {
		return fmt.Errorf("deleting wallet transactions: %w", err)
	}

	return nil
}

func (u *unit) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	res, err := u.Tx.ExecContext(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting wallet: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return wallet.ErrNotFound
	}

	return nil
}
