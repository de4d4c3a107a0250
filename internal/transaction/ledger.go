package transaction

import (
	"github.com/shopspring/decimal"
)

// Net is the signed sum of a wallet's transactions: income minus expense,
// lend and rent. Order does not matter.
func Net(txs []*Transaction) decimal.Decimal {
	net := decimal.Zero
	for _, tx := range txs {
		net = net.Add(tx.SignedAmount())
	}

	return net
}

// Totals is the per-type breakdown of a set of transactions. All totals are
// positive sums of amounts.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Lend    decimal.Decimal
	Rent    decimal.Decimal
	Count   int
}

func Summarize(txs []*Transaction) Totals {
	totals := Totals{
		Income:  decimal.Zero,
		Expense: decimal.Zero,
		Lend:    decimal.Zero,
		Rent:    decimal.Zero,
	}

	for _, tx := range txs {
		switch tx.Type {
		case TypeIncome:
			totals.Income = totals.Income.Add(tx.Amount)
		case TypeExpense:
			totals.Expense = totals.Expense.Add(tx.Amount)
		case TypeLend:
			totals.Lend = totals.Lend.Add(tx.Amount)
		case TypeRent:
			totals.Rent = totals.Rent.Add(tx.Amount)
		}

		totals.Count++
	}

	return totals
}

// Net applies the same sign rule as the package level Net.
func (t Totals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expense).Sub(t.Lend).Sub(t.Rent)
}
