package category

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	// CreateCategory returns a conflict error when the name is taken for the type.
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context, t *transaction.Type) ([]*Category, error)
	RenameCategory(ctx context.Context, id uuid.UUID, name string) error
	// DeleteCategory returns a conflict error while transactions reference the category.
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	// EnsureCategory returns the category with the given name and type,
	// creating it if needed. Concurrent callers get the same row.
	EnsureCategory(ctx context.Context, name string, t transaction.Type) (*Category, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, name string, t transaction.Type) (*Category, error) {
	name, err := validate(name, t)
	if err != nil {
		return nil, err
	}

	c := &Category{Name: name, Type: t}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, apperror.Store("create category", err)
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, apperror.Store("get category", err)
	}

	return c, nil
}

// List returns categories, optionally only those of one type.
func (s *Service) List(ctx context.Context, t *transaction.Type) ([]*Category, error) {
	if t != nil && !t.Valid() {
		return nil, apperror.Validation("unknown category type %q", *t)
	}

	cats, err := s.repo.ListCategories(ctx, t)
	if err != nil {
		return nil, apperror.Store("list categories", err)
	}

	return cats, nil
}

func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.Validation("category name is required")
	}

	return apperror.Store("rename category", s.repo.RenameCategory(ctx, id, name))
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return apperror.Store("delete category", s.repo.DeleteCategory(ctx, id))
}

func (s *Service) Ensure(ctx context.Context, name string, t transaction.Type) (*Category, error) {
	name, err := validate(name, t)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.EnsureCategory(ctx, name, t)
	if err != nil {
		return nil, apperror.Store("ensure category", err)
	}

	return c, nil
}
