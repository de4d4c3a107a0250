package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type categoryRepo struct {
	s *Store
}

func findCategory(d *data, name string, t transaction.Type) (category.Category, bool) {
	for _, c := range d.categories {
		if c.Name == name && c.Type == t {
			return c, true
		}
	}

	return category.Category{}, false
}

// ensureCategory is the lookup-or-create used by both the category
// repository and subscription payments.
func ensureCategory(s *Store, d *data, name string, t transaction.Type) category.Category {
	if c, ok := findCategory(d, name, t); ok {
		return c
	}

	c := category.Category{ID: uuid.New(), Name: name, Type: t, CreatedAt: s.now()}
	d.categories[c.ID] = c

	return c
}

func (r *categoryRepo) CreateCategory(_ context.Context, c *category.Category) error {
	return r.s.write(func(d *data) error {
		if _, taken := findCategory(d, c.Name, c.Type); taken {
			return apperror.Conflict("category %q already exists for %s", c.Name, c.Type)
		}

		c.ID = uuid.New()
		c.CreatedAt = r.s.now()
		d.categories[c.ID] = *c

		return nil
	})
}

func (r *categoryRepo) GetCategory(_ context.Context, id uuid.UUID) (*category.Category, error) {
	var (
		c  category.Category
		ok bool
	)

	r.s.read(func(d *data) { c, ok = d.categories[id] })

	if !ok {
		return nil, category.ErrNotFound
	}

	return &c, nil
}

func (r *categoryRepo) ListCategories(_ context.Context, t *transaction.Type) ([]*category.Category, error) {
	var cats []*category.Category

	r.s.read(func(d *data) {
		for _, c := range d.categories {
			c := c
			if t == nil || c.Type == *t {
				cats = append(cats, &c)
			}
		}
	})

	slices.SortFunc(cats, func(a, b *category.Category) int {
		if c := strings.Compare(string(a.Type), string(b.Type)); c != 0 {
			return c
		}

		return strings.Compare(a.Name, b.Name)
	})

	return cats, nil
}

func (r *categoryRepo) RenameCategory(_ context.Context, id uuid.UUID, name string) error {
	return r.s.write(func(d *data) error {
		c, ok := d.categories[id]
		if !ok {
			return category.ErrNotFound
		}

		if other, taken := findCategory(d, name, c.Type); taken && other.ID != id {
			return apperror.Conflict("category %q already exists", name)
		}

		c.Name = name
		d.categories[id] = c

		return nil
	})
}

func (r *categoryRepo) DeleteCategory(_ context.Context, id uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.categories[id]; !ok {
			return category.ErrNotFound
		}

		for _, tx := range d.transactions {
			if tx.CategoryID == id {
				return apperror.Conflict("category is used by transactions")
			}
		}

		delete(d.categories, id)

		for ruleID, rl := range d.rules {
			if rl.CategoryID == id {
				delete(d.rules, ruleID)
			}
		}

		return nil
	})
}

func (r *categoryRepo) EnsureCategory(_ context.Context, name string, t transaction.Type) (*category.Category, error) {
	var c category.Category

	err := r.s.write(func(d *data) error {
		c = ensureCategory(r.s, d, name, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &c, nil
}
