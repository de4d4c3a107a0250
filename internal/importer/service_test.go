package importer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const conta = `Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
30-01-2026;30-01-2026;COMPRA CONTINENTE;-58,74;1.000,00
09-01-2026;09-01-2026;TFI Wise;608,52;1.058,74
`

type categorizerFunc func(ctx context.Context, params []transaction.CreateParams) ([]transaction.CreateParams, error)

func (f categorizerFunc) Apply(ctx context.Context, params []transaction.CreateParams) ([]transaction.CreateParams, error) {
	return f(ctx, params)
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	target := importer.Target{WalletID: uuid.New(), CategoryID: uuid.New()}

	t.Run("FillsTarget", func(t *testing.T) {
		got, err := importer.NewService(nil).Import(ctx, importer.BankCGD, strings.NewReader(conta), target)
		require.NoError(t, err)
		require.Len(t, got, 2)

		for _, p := range got {
			assert.Equal(t, target.WalletID, p.WalletID)
			assert.Equal(t, target.CategoryID, p.CategoryID)
			assert.NoError(t, p.Validate())
		}

		assert.Equal(t, transaction.TypeExpense, got[0].Type)
		assert.Equal(t, transaction.TypeIncome, got[1].Type)
	})

	t.Run("AppliesRules", func(t *testing.T) {
		groceries := uuid.New()
		rules := categorizerFunc(func(_ context.Context, params []transaction.CreateParams) ([]transaction.CreateParams, error) {
			for i := range params {
				if strings.Contains(params[i].Note, "CONTINENTE") {
					params[i].CategoryID = groceries
				}
			}

			return params, nil
		})

		got, err := importer.NewService(rules).Import(ctx, importer.BankCGD, strings.NewReader(conta), target)
		require.NoError(t, err)
		assert.Equal(t, groceries, got[0].CategoryID)
		assert.Equal(t, target.CategoryID, got[1].CategoryID)
	})

	t.Run("RulesFail", func(t *testing.T) {
		rules := categorizerFunc(func(context.Context, []transaction.CreateParams) ([]transaction.CreateParams, error) {
			return nil, apperror.Store("list rules", errors.New("timeout"))
		})

		_, err := importer.NewService(rules).Import(ctx, importer.BankCGD, strings.NewReader(conta), target)
		assert.ErrorIs(t, err, apperror.ErrStore)
	})

	t.Run("UnknownBank", func(t *testing.T) {
		_, err := importer.NewService(nil).Import(ctx, "bpi", strings.NewReader(conta), target)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("Unparseable", func(t *testing.T) {
		_, err := importer.NewService(nil).Import(ctx, importer.BankCGD, strings.NewReader("just;some;text\n"), target)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}
