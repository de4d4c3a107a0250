package rule

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=rule
type Repository interface {
	// FindMatch returns the best rule for the description, or nil.
	FindMatch(ctx context.Context, rawDescription string) (*Rule, error)
	CreateRule(ctx context.Context, r *Rule) error
	ListRules(ctx context.Context) ([]*Rule, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest finds the rule for the given raw description. Returns nil if no
// rule matches.
func (s *Service) Suggest(ctx context.Context, rawDescription string) (*Rule, error) {
	r, err := s.repo.FindMatch(ctx, rawDescription)
	if err != nil {
		return nil, apperror.Store("find rule", err)
	}

	return r, nil
}

// Learn remembers that descriptions containing rawPattern belong to categoryID.
func (s *Service) Learn(ctx context.Context, rawPattern string, categoryID uuid.UUID, note string) (*Rule, error) {
	rawPattern = strings.TrimSpace(rawPattern)
	if rawPattern == "" {
		return nil, apperror.Validation("raw pattern is required")
	}

	if categoryID == uuid.Nil {
		return nil, apperror.Validation("category is required")
	}

	r := &Rule{
		RawPattern: rawPattern,
		CategoryID: categoryID,
		Note:       strings.TrimSpace(note),
	}

	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, apperror.Store("create rule", err)
	}

	return r, nil
}

func (s *Service) List(ctx context.Context) ([]*Rule, error) {
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, apperror.Store("list rules", err)
	}

	return rules, nil
}

// Apply categorizes imported lines whose note matches a rule. Lines carry
// the raw bank description in Note; matched lines get the rule's category
// and, when set, its note.
func (s *Service) Apply(ctx context.Context, params []transaction.CreateParams) ([]transaction.CreateParams, error) {
	rules, err := s.repo.ListRules(ctx)
	if err != nil {
		return nil, apperror.Store("list rules", err)
	}

	out := make([]transaction.CreateParams, len(params))

	for i, p := range params {
		if r := Best(rules, p.Note); r != nil {
			p.CategoryID = r.CategoryID
			if r.Note != "" {
				p.Note = r.Note
			}
		}

		out[i] = p
	}

	return out, nil
}
