package transaction_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func entry(typ transaction.Type, amount string) *transaction.Transaction {
	return &transaction.Transaction{Type: typ, Amount: dec(amount)}
}

func TestNet(t *testing.T) {
	tests := []struct {
		name string
		txs  []*transaction.Transaction
		want string
	}{
		{
			name: "Empty",
			want: "0",
		},
		{
			name: "IncomeAdds",
			txs:  []*transaction.Transaction{entry(transaction.TypeIncome, "50.25")},
			want: "50.25",
		},
		{
			name: "EveryOtherTypeSubtracts",
			txs: []*transaction.Transaction{
				entry(transaction.TypeExpense, "10"),
				entry(transaction.TypeLend, "5.50"),
				entry(transaction.TypeRent, "100"),
			},
			want: "-115.50",
		},
		{
			name: "Mixed",
			txs: []*transaction.Transaction{
				entry(transaction.TypeIncome, "1000"),
				entry(transaction.TypeExpense, "0.10"),
				entry(transaction.TypeExpense, "0.20"),
				entry(transaction.TypeRent, "650"),
			},
			want: "349.70",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, transaction.Net(tt.txs))
		})
	}
}

func TestNet_IdempotentAndOrderIndependent(t *testing.T) {
	txs := []*transaction.Transaction{
		entry(transaction.TypeIncome, "0.10"),
		entry(transaction.TypeExpense, "0.20"),
		entry(transaction.TypeIncome, "0.30"),
		entry(transaction.TypeLend, "12.34"),
	}

	first := transaction.Net(txs)
	assert.True(t, first.Equal(transaction.Net(txs)))

	reversed := []*transaction.Transaction{txs[3], txs[2], txs[1], txs[0]}
	assert.True(t, first.Equal(transaction.Net(reversed)))
	assertDecimal(t, "-12.14", first)
}

func TestSummarize(t *testing.T) {
	txs := []*transaction.Transaction{
		entry(transaction.TypeIncome, "100"),
		entry(transaction.TypeIncome, "20"),
		entry(transaction.TypeExpense, "30"),
		entry(transaction.TypeLend, "15"),
		entry(transaction.TypeRent, "40"),
	}

	totals := transaction.Summarize(txs)

	assertDecimal(t, "120", totals.Income)
	assertDecimal(t, "30", totals.Expense)
	assertDecimal(t, "15", totals.Lend)
	assertDecimal(t, "40", totals.Rent)
	assert.Equal(t, 5, totals.Count)
	assert.True(t, totals.Net().Equal(transaction.Net(txs)))
}

func TestCreateParams_Validate(t *testing.T) {
	valid := func() transaction.CreateParams {
		return transaction.CreateParams{
			Type:       transaction.TypeExpense,
			Amount:     dec("10.00"),
			Date:       date(2026, 1, 1),
			CategoryID: newID(),
			WalletID:   newID(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *transaction.CreateParams)
		wantErr bool
	}{
		{name: "Valid", mutate: func(*transaction.CreateParams) {}},
		{name: "ZeroAmount", mutate: func(p *transaction.CreateParams) { p.Amount = decimal.Zero }, wantErr: true},
		{name: "NegativeAmount", mutate: func(p *transaction.CreateParams) { p.Amount = dec("-5") }, wantErr: true},
		{name: "ThreeDecimals", mutate: func(p *transaction.CreateParams) { p.Amount = dec("1.005") }, wantErr: true},
		{name: "UnknownType", mutate: func(p *transaction.CreateParams) { p.Type = "transfer" }, wantErr: true},
		{name: "MissingDate", mutate: func(p *transaction.CreateParams) { p.Date = date(1, 1, 1) }, wantErr: true},
		{name: "MissingWallet", mutate: func(p *transaction.CreateParams) { p.WalletID = uuid.Nil }, wantErr: true},
		{name: "MissingCategory", mutate: func(p *transaction.CreateParams) { p.CategoryID = uuid.Nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr {
				assertKind(t, err, "validation")
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestParseType(t *testing.T) {
	got, err := transaction.ParseType(" Rent ")
	assert.NoError(t, err)
	assert.Equal(t, transaction.TypeRent, got)

	_, err = transaction.ParseType("gift")
	assertKind(t, err, "validation")
}
