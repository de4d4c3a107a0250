package rule_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/memstore"
	"github.com/MrJamesThe3rd/tally/internal/rule"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func TestService_Learn(t *testing.T) {
	categoryID := uuid.New()

	tests := []struct {
		name       string
		pattern    string
		categoryID uuid.UUID
		note       string
		setupMock  func(m *rule.MockRepository)
		wantErr    error
	}{
		{
			name:       "Success",
			pattern:    "  NETFLIX.COM ",
			categoryID: categoryID,
			note:       " Netflix ",
			setupMock: func(m *rule.MockRepository) {
				m.EXPECT().
					CreateRule(gomock.Any(), &rule.Rule{RawPattern: "NETFLIX.COM", CategoryID: categoryID, Note: "Netflix"}).
					Return(nil)
			},
		},
		{
			name:       "EmptyPattern",
			pattern:    "   ",
			categoryID: categoryID,
			wantErr:    apperror.ErrValidation,
		},
		{
			name:    "MissingCategory",
			pattern: "NETFLIX",
			wantErr: apperror.ErrValidation,
		},
		{
			name:       "UnknownCategory",
			pattern:    "NETFLIX",
			categoryID: categoryID,
			setupMock: func(m *rule.MockRepository) {
				m.EXPECT().CreateRule(gomock.Any(), gomock.Any()).Return(apperror.NotFound("category"))
			},
			wantErr: apperror.ErrNotFound,
		},
		{
			name:       "RepoError",
			pattern:    "NETFLIX",
			categoryID: categoryID,
			setupMock: func(m *rule.MockRepository) {
				m.EXPECT().CreateRule(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: apperror.ErrStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := rule.NewMockRepository(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := rule.NewService(repo).Learn(context.Background(), tt.pattern, tt.categoryID, tt.note)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "NETFLIX.COM", got.RawPattern)
		})
	}
}

func TestService_SuggestAndApply(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	groceries := &category.Category{Name: "Groceries", Type: transaction.TypeExpense}
	fallback := &category.Category{Name: "Uncategorized", Type: transaction.TypeExpense}
	require.NoError(t, store.Categories().CreateCategory(ctx, groceries))
	require.NoError(t, store.Categories().CreateCategory(ctx, fallback))

	svc := rule.NewService(store.Rules())

	_, err := svc.Learn(ctx, "continente", groceries.ID, "Supermarket")
	require.NoError(t, err)

	_, err = svc.Learn(ctx, "pingo doce", groceries.ID, "")
	require.NoError(t, err)

	_, err = svc.Learn(ctx, "anything", uuid.New(), "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := svc.Suggest(ctx, "COMPRA CONTINENTE LISBOA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, groceries.ID, got.CategoryID)

	got, err = svc.Suggest(ctx, "TFI Wise")
	require.NoError(t, err)
	assert.Nil(t, got)

	lines := []transaction.CreateParams{
		{Note: "COMPRA CONTINENTE LISBOA", CategoryID: fallback.ID},
		{Note: "PINGO DOCE AMADORA", CategoryID: fallback.ID},
		{Note: "TFI Wise", CategoryID: fallback.ID},
	}

	applied, err := svc.Apply(ctx, lines)
	require.NoError(t, err)
	require.Len(t, applied, 3)

	assert.Equal(t, groceries.ID, applied[0].CategoryID)
	assert.Equal(t, "Supermarket", applied[0].Note)
	assert.Equal(t, groceries.ID, applied[1].CategoryID)
	assert.Equal(t, "PINGO DOCE AMADORA", applied[1].Note)
	assert.Equal(t, fallback.ID, applied[2].CategoryID)

	// the input is left untouched
	assert.Equal(t, fallback.ID, lines[0].CategoryID)

	rules, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}
