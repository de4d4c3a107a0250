package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/subscription"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestPeriod_Next(t *testing.T) {
	tests := []struct {
		name   string
		period subscription.Period
		from   time.Time
		want   time.Time
	}{
		{name: "Daily", period: subscription.PeriodDaily, from: day(2026, 2, 28), want: day(2026, 3, 1)},
		{name: "Weekly", period: subscription.PeriodWeekly, from: day(2026, 12, 29), want: day(2027, 1, 5)},
		{name: "MonthlySameDay", period: subscription.PeriodMonthly, from: day(2026, 3, 15), want: day(2026, 4, 15)},
		{name: "MonthlyClampsToFebruary", period: subscription.PeriodMonthly, from: day(2026, 1, 31), want: day(2026, 2, 28)},
		{name: "MonthlyClampsToLeapFebruary", period: subscription.PeriodMonthly, from: day(2028, 1, 31), want: day(2028, 2, 29)},
		{name: "MonthlyClampsTo30", period: subscription.PeriodMonthly, from: day(2026, 3, 31), want: day(2026, 4, 30)},
		{name: "MonthlyAcrossYear", period: subscription.PeriodMonthly, from: day(2026, 12, 31), want: day(2027, 1, 31)},
		{name: "YearlyFromLeapDay", period: subscription.PeriodYearly, from: day(2028, 2, 29), want: day(2029, 2, 28)},
		{name: "Yearly", period: subscription.PeriodYearly, from: day(2026, 6, 1), want: day(2027, 6, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.period.Next(tt.from))
		})
	}
}

func TestPeriod_Valid(t *testing.T) {
	assert.True(t, subscription.PeriodMonthly.Valid())
	assert.False(t, subscription.Period("fortnightly").Valid())
}
