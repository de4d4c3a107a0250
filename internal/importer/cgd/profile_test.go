package cgd

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func TestDetectProfile(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   string
	}{
		{name: "Card", header: []string{"Data", "Descrição", "Débito", "Crédito"}, want: "cartão"},
		{name: "Statement", header: []string{"Data mov.", "Data valor", "Descrição", "Movimento", "Saldo"}, want: "extrato"},
		{name: "Account", header: []string{" Data mov. ", "Descrição", "Montante"}, want: "conta"},
		{name: "Unknown", header: []string{"Date", "Description", "Amount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, cols, idx := detectProfile([][]string{{"preamble"}, tt.header})
			if tt.want == "" {
				assert.Nil(t, p)
				return
			}

			require.NotNil(t, p)
			assert.Equal(t, tt.want, p.Name)
			assert.Equal(t, 1, idx)
			assert.Len(t, cols, len(tt.header))
		})
	}
}

func TestProfile_Row(t *testing.T) {
	card := &profiles[0]
	cols := colIndex{"Data": 0, "Descrição": 1, "Débito": 2, "Crédito": 3}

	d, ok := card.date(cols, []string{"05-02-2026", "x", "", ""})
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), d)

	_, ok = card.date(cols, []string{"Total", "", "", ""})
	assert.False(t, ok)

	amount, typ, ok := card.amount(cols, []string{"05-02-2026", "refund", "", "7,50"})
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("7.5").Equal(amount), "got %s", amount)
	assert.Equal(t, transaction.TypeIncome, typ)

	_, _, ok = card.amount(cols, []string{"05-02-2026", "nothing", "0,00", ""})
	assert.False(t, ok)
}

func TestProfileNames(t *testing.T) {
	assert.Equal(t, "cartão, extrato, conta", profileNames())
}
