package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/subscription"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txstore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
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

const selectSubscriptionColumns = `
	id, service_name, amount, period, start_date, next_due_date, payment_method,
	wallet_id, note, is_active, created_at, updated_at
`

func scanSubscription(s scanner) (*subscription.Subscription, error) {
	var sub subscription.Subscription

	var period string

	var method, note sql.NullString

	if err := s.Scan(
		&sub.ID, &sub.ServiceName, &sub.Amount, &period, &sub.StartDate, &sub.NextDueDate, &method,
		&sub.WalletID, &note, &sub.IsActive, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}

	sub.Period = subscription.Period(period)
	sub.PaymentMethod = method.String
	sub.Note = note.String

	return &sub, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (service_name, amount, period, start_date, next_due_date, payment_method, wallet_id, note, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		sub.ServiceName,
		sub.Amount,
		sub.Period,
		sub.StartDate,
		sub.NextDueDate,
		nullString(sub.PaymentMethod),
		sub.WalletID,
		nullString(sub.Note),
		sub.IsActive,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}

	return nil
}

func (s *Store) GetSubscription(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	return getSubscription(ctx, s.db.QueryRowContext(ctx, `SELECT `+selectSubscriptionColumns+` FROM subscriptions WHERE id = $1`, id))
}

func getSubscription(_ context.Context, row *sql.Row) (*subscription.Subscription, error) {
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscription.ErrNotFound
		}

		return nil, fmt.Errorf("getting subscription: %w", err)
	}

	return sub, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, activeOnly bool) ([]*subscription.Subscription, error) {
	query := `SELECT ` + selectSubscriptionColumns + ` FROM subscriptions`
	if activeOnly {
		query += ` WHERE is_active`
	}

	query += ` ORDER BY next_due_date ASC, service_name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*subscription.Subscription

	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}

		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscription rows: %w", err)
	}

	return subs, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions
		SET service_name = $1, amount = $2, period = $3, payment_method = $4, wallet_id = $5,
			note = $6, is_active = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		sub.ServiceName,
		sub.Amount,
		sub.Period,
		nullString(sub.PaymentMethod),
		sub.WalletID,
		nullString(sub.Note),
		sub.IsActive,
		sub.ID,
	).Scan(&sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return subscription.ErrNotFound
		}

		return fmt.Errorf("updating subscription: %w", err)
	}

	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return subscription.ErrNotFound
	}

	return nil
}

func (s *Store) Begin(ctx context.Context) (subscription.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &unit{Unit: txstore.NewUnit(dbTx)}, nil
}

// unit extends the ledger unit with subscription writes.
type unit struct {
	*txstore.Unit
}

func (u *unit) LockSubscription(ctx context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	query := `SELECT ` + selectSubscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`

	return getSubscription(ctx, u.Tx.QueryRowContext(ctx, query, id))
}

func (u *unit) AdvanceDueDate(ctx context.Context, id uuid.UUID, next time.Time) error {
	query := `UPDATE subscriptions SET next_due_date = $1, updated_at = NOW() WHERE id = $2 AND next_due_date < $1`

	res, err := u.Tx.ExecContext(ctx, query, next, id)
	if err != nil {
		return fmt.Errorf("advancing due date: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("due date of subscription %s did not move forward", id)
	}

	return nil
}

// EnsureCategory never writes an existing category row, so the unit holds
// no category lock when it goes on to lock the wallet.
func (u *unit) EnsureCategory(ctx context.Context, name string, t transaction.Type) (uuid.UUID, error) {
	insert := `
		INSERT INTO categories (name, type)
		VALUES ($1, $2)
		ON CONFLICT (name, type) DO NOTHING
	`

	if _, err := u.Tx.ExecContext(ctx, insert, name, t); err != nil {
		return uuid.Nil, fmt.Errorf("ensuring category: %w", err)
	}

	var id uuid.UUID
	if err := u.Tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = $1 AND type = $2`, name, t).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("reading ensured category: %w", err)
	}

	return id, nil
}
