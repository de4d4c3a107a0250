package transaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
)

// Type is the semantic type of a transaction. The sign of its contribution
// to a wallet balance follows from the type, never from the amount.
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
	TypeLend    Type = "lend"
	TypeRent    Type = "rent"
)

// Types lists every transaction type in display order.
var Types = []Type{TypeIncome, TypeExpense, TypeLend, TypeRent}

func (t Type) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeLend, TypeRent:
		return true
	}

	return false
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", apperror.Validation("unknown transaction type %q", s)
	}

	return t, nil
}

// Signed returns the amount as it contributes to a wallet balance:
// income adds, expense, lend and rent subtract.
func (t Type) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == TypeIncome {
		return amount
	}

	return amount.Neg()
}

var ErrNotFound = apperror.NotFound("transaction")

// Transaction is one ledger entry of a wallet.
type Transaction struct {
	ID                   uuid.UUID
	Type                 Type
	Amount               decimal.Decimal // always positive
	Date                 time.Time
	Note                 string
	CategoryID           uuid.UUID
	WalletID             uuid.UUID
	Cleared              bool
	IsReturn             bool
	RelatedTransactionID *uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Type.Signed(t.Amount)
}

// WalletBalance is the locked view of a wallet the balance maintainer works on.
// A wallet created before initial balances were tracked has no InitialBalance.
type WalletBalance struct {
	ID             uuid.UUID
	Balance        decimal.Decimal
	InitialBalance decimal.NullDecimal
}

// CreateParams describes a new transaction.
type CreateParams struct {
	Type                 Type
	Amount               decimal.Decimal
	Date                 time.Time
	Note                 string
	CategoryID           uuid.UUID
	WalletID             uuid.UUID
	Cleared              bool
	IsReturn             bool
	RelatedTransactionID *uuid.UUID
}

// UpdateParams replaces every editable field of an existing transaction.
type UpdateParams CreateParams

func (p CreateParams) Validate() error {
	var problems []string

	if !p.Type.Valid() {
		problems = append(problems, fmt.Sprintf("type must be one of income, expense, lend, rent (got %q)", p.Type))
	}

	if err := ValidateAmount(p.Amount); err != nil {
		problems = append(problems, err.Error())
	}

	if p.Date.IsZero() {
		problems = append(problems, "date is required")
	}

	if p.CategoryID == uuid.Nil {
		problems = append(problems, "category is required")
	}

	if p.WalletID == uuid.Nil {
		problems = append(problems, "wallet is required")
	}

	if len(problems) > 0 {
		return apperror.Validation("%s", strings.Join(problems, "; "))
	}

	return nil
}

func (p UpdateParams) Validate() error {
	return CreateParams(p).Validate()
}

// ValidateAmount checks that an amount can be stored: strictly positive with
// at most two fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.Validation("amount must be greater than zero")
	}

	if !amount.Equal(amount.Round(2)) {
		return apperror.Validation("amount must have at most two decimal places")
	}

	return nil
}

// Filter narrows a transaction listing. Nil fields are ignored.
type Filter struct {
	Type       *Type
	CategoryID *uuid.UUID
	WalletID   *uuid.UUID
	From       *time.Time
	To         *time.Time
	Cleared    *bool
}

// Matches reports whether tx satisfies every set field of the filter.
func (f Filter) Matches(tx *Transaction) bool {
	switch {
	case f.Type != nil && tx.Type != *f.Type:
		return false
	case f.CategoryID != nil && tx.CategoryID != *f.CategoryID:
		return false
	case f.WalletID != nil && tx.WalletID != *f.WalletID:
		return false
	case f.From != nil && tx.Date.Before(*f.From):
		return false
	case f.To != nil && tx.Date.After(*f.To):
		return false
	case f.Cleared != nil && tx.Cleared != *f.Cleared:
		return false
	}

	return true
}
