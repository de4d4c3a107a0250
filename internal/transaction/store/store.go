package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const uniqueViolation = "23505"

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

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanTransaction reads a transaction row from the scanner.
// Expected column order matches selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr string

	var note sql.NullString

	if err := s.Scan(
		&tx.ID, &typeStr, &tx.Amount, &tx.Date, &note, &tx.CategoryID, &tx.WalletID,
		&tx.Cleared, &tx.IsReturn, &tx.RelatedTransactionID,
		&tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Note = note.String

	return &tx, nil
}

const selectTransactionColumns = `
	t.id, t.type, t.amount, t.date, t.note, t.category_id, t.wallet_id,
	t.cleared, t.is_return, t.related_transaction_id, t.created_at, t.updated_at
`

// getTransaction reads one transaction. With lock set the row is held
// FOR NO KEY UPDATE, which still lets other units reference it by key.
func getTransaction(ctx context.Context, q querier, id uuid.UUID, lock bool) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions t WHERE t.id = $1`
	if lock {
		query += ` FOR NO KEY UPDATE`
	}

	tx, err := scanTransaction(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func listTransactions(ctx context.Context, q querier, query string, args ...any) ([]*transaction.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return getTransaction(ctx, s.db, id, false)
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions t WHERE TRUE`

	var args []any

	argIdx := 1

	add := func(cond string, v any) {
		query += fmt.Sprintf(" AND "+cond, argIdx)

		args = append(args, v)
		argIdx++
	}

	if filter.Type != nil {
		add("t.type = $%d", *filter.Type)
	}

	if filter.CategoryID != nil {
		add("t.category_id = $%d", *filter.CategoryID)
	}

	if filter.WalletID != nil {
		add("t.wallet_id = $%d", *filter.WalletID)
	}

	if filter.From != nil {
		add("t.date >= $%d", *filter.From)
	}

	if filter.To != nil {
		add("t.date <= $%d", *filter.To)
	}

	if filter.Cleared != nil {
		add("t.cleared = $%d", *filter.Cleared)
	}

	query += " ORDER BY t.date DESC, t.created_at DESC"

	return listTransactions(ctx, s.db, query, args...)
}

func (s *Store) SetCleared(ctx context.Context, id uuid.UUID, cleared bool) error {
	query := `UPDATE transactions SET cleared = $1, updated_at = NOW() WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, cleared, id)
	if err != nil {
		return fmt.Errorf("updating cleared: %w", err)
	}

	return expectOne(res, transaction.ErrNotFound)
}

func (s *Store) Begin(ctx context.Context) (transaction.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return NewUnit(dbTx), nil
}

// Unit is a ledger unit of work on one database transaction. Other stores
// embed it to post transactions alongside their own writes.
type Unit struct {
	Tx *sql.Tx
}

func NewUnit(tx *sql.Tx) *Unit {
	return &Unit{Tx: tx}
}

func (u *Unit) Commit() error   { return u.Tx.Commit() }
func (u *Unit) Rollback() error { return u.Tx.Rollback() }

func (u *Unit) LockWallet(ctx context.Context, id uuid.UUID) (*transaction.WalletBalance, error) {
	query := `SELECT id, balance, initial_balance FROM wallets WHERE id = $1 FOR UPDATE`

	var w transaction.WalletBalance
	if err := u.Tx.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.Balance, &w.InitialBalance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("wallet")
		}

		return nil, fmt.Errorf("locking wallet: %w", err)
	}

	return &w, nil
}

func (u *Unit) SetWalletBalance(ctx context.Context, id uuid.UUID, balance, initial decimal.Decimal) error {
	query := `
		UPDATE wallets
		SET balance = $1, initial_balance = $2, updated_at = NOW()
		WHERE id = $3
	`

	if _, err := u.Tx.ExecContext(ctx, query, balance, initial, id); err != nil {
		return fmt.Errorf("updating wallet balance: %w", err)
	}

	return nil
}

func (u *Unit) WalletTransactions(ctx context.Context, walletID uuid.UUID) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.wallet_id = $1
		ORDER BY t.date ASC`

	return listTransactions(ctx, u.Tx, query, walletID)
}

func (u *Unit) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := u.Tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking category: %w", err)
	}

	return exists, nil
}

func (u *Unit) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return getTransaction(ctx, u.Tx, id, false)
}

func (u *Unit) LockTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return getTransaction(ctx, u.Tx, id, true)
}

func (u *Unit) CounterpartOf(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	var counterpart uuid.UUID

	err := u.Tx.QueryRowContext(ctx, `SELECT id FROM transactions WHERE related_transaction_id = $1`, id).Scan(&counterpart)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("finding counterpart: %w", err)
	}

	return &counterpart, nil
}

func (u *Unit) InsertTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (type, amount, date, note, category_id, wallet_id, cleared, is_return, related_transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := u.Tx.QueryRowContext(ctx, query,
		tx.Type,
		tx.Amount,
		tx.Date,
		nullString(tx.Note),
		tx.CategoryID,
		tx.WalletID,
		tx.Cleared,
		tx.IsReturn,
		tx.RelatedTransactionID,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if isLinkTaken(err) {
			return errLinkTaken
		}

		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (u *Unit) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET type = $1, amount = $2, date = $3, note = $4, category_id = $5, wallet_id = $6,
			cleared = $7, is_return = $8, related_transaction_id = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at
	`

	err := u.Tx.QueryRowContext(ctx, query,
		tx.Type,
		tx.Amount,
		tx.Date,
		nullString(tx.Note),
		tx.CategoryID,
		tx.WalletID,
		tx.Cleared,
		tx.IsReturn,
		tx.RelatedTransactionID,
		tx.ID,
	).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotFound
		}

		if isLinkTaken(err) {
			return errLinkTaken
		}

		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

func (u *Unit) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	res, err := u.Tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	return expectOne(res, transaction.ErrNotFound)
}

var errLinkTaken = apperror.Conflict("related transaction already has a counterpart")

// isLinkTaken reports whether err is the unique violation on
// related_transaction_id.
func isLinkTaken(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// nullString stores an empty note as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return notFound
	}

	return nil
}
