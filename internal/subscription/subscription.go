package subscription

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}

	return false
}

// Next returns t moved forward by one period. Month and year steps keep the
// day of month, clamped to the last day of the target month:
// Jan 31 becomes Feb 28 (or 29), Feb 29 plus a year becomes Feb 28.
func (p Period) Next(t time.Time) time.Time {
	switch p {
	case PeriodDaily:
		return t.AddDate(0, 0, 1)
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return addMonths(t, 1)
	case PeriodYearly:
		return addMonths(t, 12)
	}

	return t
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()

	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

var ErrNotFound = apperror.NotFound("subscription")

// Subscription is a recurring payment. NextDueDate only moves forward, one
// period per payment.
type Subscription struct {
	ID            uuid.UUID
	ServiceName   string
	Amount        decimal.Decimal
	Period        Period
	StartDate     time.Time
	NextDueDate   time.Time
	PaymentMethod string
	WalletID      *uuid.UUID
	Note          string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentNote is the note recorded on the ledger transaction of a payment.
func (s *Subscription) PaymentNote() string {
	return "Subscription payment: " + s.ServiceName
}

type CreateParams struct {
	ServiceName   string
	Amount        decimal.Decimal
	Period        Period
	StartDate     time.Time
	NextDueDate   *time.Time // defaults to StartDate
	PaymentMethod string
	WalletID      *uuid.UUID
	Note          string
}

func (p *CreateParams) Validate() error {
	var problems []string

	p.ServiceName = strings.TrimSpace(p.ServiceName)
	if p.ServiceName == "" {
		problems = append(problems, "service name is required")
	}

	if err := transaction.ValidateAmount(p.Amount); err != nil {
		problems = append(problems, err.Error())
	}

	if !p.Period.Valid() {
		problems = append(problems, fmt.Sprintf("period must be one of daily, weekly, monthly, yearly (got %q)", p.Period))
	}

	if p.StartDate.IsZero() {
		problems = append(problems, "start date is required")
	}

	if p.NextDueDate != nil && p.NextDueDate.Before(p.StartDate) {
		problems = append(problems, "next due date cannot be before the start date")
	}

	if len(problems) > 0 {
		return apperror.Validation("%s", strings.Join(problems, "; "))
	}

	return nil
}

// UpdateParams edits a subscription. The due date is not editable; it
// advances through payments only.
type UpdateParams struct {
	ServiceName   string
	Amount        decimal.Decimal
	Period        Period
	PaymentMethod string
	WalletID      *uuid.UUID
	Note          string
	IsActive      bool
}

func (p *UpdateParams) Validate() error {
	c := CreateParams{
		ServiceName: p.ServiceName,
		Amount:      p.Amount,
		Period:      p.Period,
		StartDate:   time.Unix(0, 0),
	}
	if err := c.Validate(); err != nil {
		return err
	}

	p.ServiceName = c.ServiceName

	return nil
}

// PaymentResult describes a posted subscription payment.
type PaymentResult struct {
	Subscription  *Subscription
	Transaction   *transaction.Transaction
	WalletBalance decimal.Decimal
}
