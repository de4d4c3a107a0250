package wallet

import (
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
)

const DefaultCurrency = "USD"

var ErrNotFound = apperror.NotFound("wallet")

// Wallet holds money in one currency. Balance is always InitialBalance plus
// the net of the wallet's transactions. Wallets created before initial
// balances were tracked have no InitialBalance until their first mutation.
type Wallet struct {
	ID             uuid.UUID
	Name           string
	Type           string
	Currency       string
	Balance        decimal.Decimal
	InitialBalance decimal.NullDecimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Format renders an amount in the wallet's currency, e.g. "$1,234.50".
func (w *Wallet) Format(amount decimal.Decimal) string {
	return FormatAmount(amount, w.Currency)
}

// FormatAmount renders amount in the given ISO currency. Unknown currencies
// fall back to the plain decimal followed by the code.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}

	minor := amount.Shift(int32(cur.Fraction)).Round(0)

	return money.New(minor.IntPart(), cur.Code).Display()
}

type CreateParams struct {
	Name           string
	Type           string
	Currency       string
	InitialBalance decimal.Decimal
}

func (p *CreateParams) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperror.Validation("wallet name is required")
	}

	currency, err := normalizeCurrency(p.Currency)
	if err != nil {
		return err
	}

	p.Currency = currency

	if !p.InitialBalance.Equal(p.InitialBalance.Round(2)) {
		return apperror.Validation("initial balance must have at most two decimal places")
	}

	return nil
}

// UpdateParams changes the descriptive fields of a wallet. Balances are only
// moved by transactions and AdjustBalance.
type UpdateParams struct {
	Name     string
	Type     string
	Currency string
}

func (p *UpdateParams) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperror.Validation("wallet name is required")
	}

	currency, err := normalizeCurrency(p.Currency)
	if err != nil {
		return err
	}

	p.Currency = currency

	return nil
}

func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}

	if money.GetCurrency(code) == nil {
		return "", apperror.Validation("unknown currency %q", code)
	}

	return code, nil
}
