package cgd

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// amountLayout says where a statement line keeps its money.
type amountLayout int

const (
	// signedColumn is one column where outgoing money is negative ("-10,00").
	signedColumn amountLayout = iota
	// debitCredit is a pair of unsigned columns, one per direction.
	debitCredit
)

// Profile is the column layout of one CGD export.
type Profile struct {
	Name       string
	DateCol    string
	DateLayout string
	DescCol    string
	Amounts    amountLayout
	AmountCol  string
	DebitCol   string
	CreditCol  string
}

// columns lists the headers a file must carry to use this profile.
func (p *Profile) columns() []string {
	if p.Amounts == debitCredit {
		return []string{p.DateCol, p.DescCol, p.DebitCol, p.CreditCol}
	}

	return []string{p.DateCol, p.DescCol, p.AmountCol}
}

func (p *Profile) matches(cols colIndex) bool {
	for _, name := range p.columns() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// date reads the booking date of a row. Footer and blank rows yield false.
func (p *Profile) date(cols colIndex, row []string) (time.Time, bool) {
	s := cellValue(row, cols[p.DateCol])
	if s == "" {
		return time.Time{}, false
	}

	t, err := time.Parse(p.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// amount returns the unsigned amount of a row and its direction. Rows with
// no amount, or a zero one, yield false.
func (p *Profile) amount(cols colIndex, row []string) (decimal.Decimal, transaction.Type, bool) {
	if p.Amounts == signedColumn {
		return signedAmount(cellValue(row, cols[p.AmountCol]))
	}

	if amount, _, ok := signedAmount(cellValue(row, cols[p.DebitCol])); ok {
		return amount, transaction.TypeExpense, true
	}

	if amount, _, ok := signedAmount(cellValue(row, cols[p.CreditCol])); ok {
		return amount, transaction.TypeIncome, true
	}

	return decimal.Zero, "", false
}

// profiles are tried in order; the card export goes first since its date
// and description headers are shared with nothing else.
var profiles = []Profile{
	{
		Name:       "cartão",
		DateCol:    "Data",
		DateLayout: "02-01-2006",
		DescCol:    "Descrição",
		Amounts:    debitCredit,
		DebitCol:   "Débito",
		CreditCol:  "Crédito",
	},
	{
		Name:       "extrato",
		DateCol:    "Data mov.",
		DateLayout: "02-01-2006",
		DescCol:    "Descrição",
		Amounts:    signedColumn,
		AmountCol:  "Movimento",
	},
	{
		Name:       "conta",
		DateCol:    "Data mov.",
		DateLayout: "02-01-2006",
		DescCol:    "Descrição",
		Amounts:    signedColumn,
		AmountCol:  "Montante",
	},
}

func profileNames() string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}

	return strings.Join(names, ", ")
}
