package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
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

func scanCategory(s scanner) (*category.Category, error) {
	var c category.Category

	var typeStr string

	if err := s.Scan(&c.ID, &c.Name, &typeStr, &c.CreatedAt); err != nil {
		return nil, err
	}

	c.Type = transaction.Type(typeStr)

	return &c, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

func (s *Store) CreateCategory(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (name, type, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, c.Name, c.Type).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return apperror.Conflict("category %q already exists for %s", c.Name, c.Type)
		}

		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	query := `SELECT id, name, type, created_at FROM categories WHERE id = $1`

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, category.ErrNotFound
		}

		return nil, fmt.Errorf("getting category: %w", err)
	}

	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, t *transaction.Type) ([]*category.Category, error) {
	query := `SELECT id, name, type, created_at FROM categories`

	var args []any
	if t != nil {
		query += ` WHERE type = $1`

		args = append(args, *t)
	}

	query += ` ORDER BY type ASC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var cats []*category.Category

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		cats = append(cats, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category rows: %w", err)
	}

	return cats, nil
}

func (s *Store) RenameCategory(ctx context.Context, id uuid.UUID, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return apperror.Conflict("category %q already exists", name)
		}

		return fmt.Errorf("renaming category: %w", err)
	}

	return expectOne(res)
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return apperror.Conflict("category is used by transactions")
		}

		return fmt.Errorf("deleting category: %w", err)
	}

	return expectOne(res)
}

// EnsureCategory inserts the category unless it exists and reads it back.
// An existing row is never written, so no row lock is taken on it.
func (s *Store) EnsureCategory(ctx context.Context, name string, t transaction.Type) (*category.Category, error) {
	insert := `
		INSERT INTO categories (name, type)
		VALUES ($1, $2)
		ON CONFLICT (name, type) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, insert, name, t); err != nil {
		return nil, fmt.Errorf("ensuring category: %w", err)
	}

	query := `SELECT id, name, type, created_at FROM categories WHERE name = $1 AND type = $2`

	c, err := scanCategory(s.db.QueryRowContext(ctx, query, name, t))
	if err != nil {
		return nil, fmt.Errorf("reading ensured category: %w", err)
	}

	return c, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return category.ErrNotFound
	}

	return nil
}
