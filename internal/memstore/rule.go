package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/rule"
)

type ruleRepo struct {
	s *Store
}

func (r *ruleRepo) FindMatch(ctx context.Context, rawDescription string) (*rule.Rule, error) {
	rules, err := r.ListRules(ctx)
	if err != nil {
		return nil, err
	}

	return rule.Best(rules, rawDescription), nil
}

func (r *ruleRepo) CreateRule(_ context.Context, rl *rule.Rule) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.categories[rl.CategoryID]; !ok {
			return apperror.NotFound("category")
		}

		rl.ID = uuid.New()
		rl.CreatedAt = r.s.now()
		d.rules[rl.ID] = *rl

		return nil
	})
}

func (r *ruleRepo) ListRules(_ context.Context) ([]*rule.Rule, error) {
	var rules []*rule.Rule

	r.s.read(func(d *data) {
		for _, rl := range d.rules {
			rl := rl
			rules = append(rules, &rl)
		}
	})

	slices.SortFunc(rules, func(a, b *rule.Rule) int { return a.CreatedAt.Compare(b.CreatedAt) })

	return rules, nil
}
