package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/importer/cgd"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Service struct {
	parsers map[Bank]Parser
	rules   Categorizer
}

// NewService builds an importer for the supported banks. rules may be nil,
// in which case every line gets the target's default category.
func NewService(rules Categorizer) *Service {
	return &Service{
		parsers: map[Bank]Parser{
			BankCGD: cgd.NewParser(),
		},
		rules: rules,
	}
}

// Import parses a bank export and prepares its lines for the target wallet.
// Nothing is written; the lines are meant for transaction.Service.ImportBatch.
func (s *Service) Import(ctx context.Context, bank Bank, r io.Reader, target Target) ([]transaction.CreateParams, error) {
	parser, ok := s.parsers[bank]
	if !ok {
		return nil, apperror.Validation("unknown bank: %s", bank)
	}

	params, err := parser.Parse(r)
	if err != nil {
		return nil, apperror.Validation("parsing %s export: %v", bank, err)
	}

	for i := range params {
		params[i].WalletID = target.WalletID
		params[i].CategoryID = target.CategoryID
	}

	if s.rules == nil {
		return params, nil
	}

	params, err = s.rules.Apply(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("categorizing lines: %w", err)
	}

	return params, nil
}
