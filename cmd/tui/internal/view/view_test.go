package view

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/audit"
	"github.com/MrJamesThe3rd/tally/internal/memstore"
	"github.com/MrJamesThe3rd/tally/internal/subscription"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTimeframe_Range(t *testing.T) {
	tests := []struct {
		name     string
		tf       Timeframe
		now      time.Time
		wantFrom time.Time
		wantTo   time.Time
		wantOK   bool
	}{
		{name: "ThisMonth", tf: TimeframeThisMonth, now: day(2026, 3, 15), wantFrom: day(2026, 3, 1), wantTo: day(2026, 3, 31), wantOK: true},
		{name: "LastMonth", tf: TimeframeLastMonth, now: day(2026, 3, 15), wantFrom: day(2026, 2, 1), wantTo: day(2026, 2, 28), wantOK: true},
		{name: "LastMonthAcrossYear", tf: TimeframeLastMonth, now: day(2026, 1, 10), wantFrom: day(2025, 12, 1), wantTo: day(2025, 12, 31), wantOK: true},
		{name: "ThisYear", tf: TimeframeThisYear, now: day(2026, 7, 4), wantFrom: day(2026, 1, 1), wantTo: day(2026, 12, 31), wantOK: true},
		{name: "All", tf: TimeframeAll, now: day(2026, 7, 4)},
		{name: "Custom", tf: TimeframeCustom, now: day(2026, 7, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, ok := tt.tf.Range(tt.now)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func press(p TimeframePicker, keys ...tea.KeyType) (TimeframePicker, tea.Cmd) {
	var cmd tea.Cmd

	for _, k := range keys {
		p, cmd = p.Update(tea.KeyMsg{Type: k})
	}

	return p, cmd
}

func TestTimeframePicker(t *testing.T) {
	now := func() time.Time { return day(2026, 3, 15) }

	t.Run("Preset", func(t *testing.T) {
		_, cmd := press(NewTimeframePicker(now), tea.KeyDown, tea.KeyEnter)
		require.NotNil(t, cmd)

		msg, ok := cmd().(TimeframeSelectedMsg)
		require.True(t, ok)
		assert.Equal(t, "Last Month", msg.Label)
		assert.Equal(t, day(2026, 2, 1), *msg.From)

		var filter transaction.Filter
		msg.Apply(&filter)
		assert.Equal(t, day(2026, 3, 1).Add(-time.Nanosecond), *filter.To)
	})

	t.Run("AllTime", func(t *testing.T) {
		_, cmd := press(NewTimeframePicker(now), tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyEnter)

		msg := cmd().(TimeframeSelectedMsg)
		assert.Nil(t, msg.From)
		assert.Nil(t, msg.To)
	})

	t.Run("Custom", func(t *testing.T) {
		p, _ := press(NewTimeframePicker(now), tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyEnter)
		require.False(t, p.IsSelecting())

		p.inputs[0].SetValue("2026-02-10")
		p.inputs[1].SetValue("2026-01-01")

		p, cmd := press(p, tea.KeyEnter)
		assert.Nil(t, cmd)
		assert.Contains(t, p.View(), "end date is before start date")

		p.inputs[1].SetValue("2026-02-20")

		_, cmd = press(p, tea.KeyEnter)
		require.NotNil(t, cmd)

		msg := cmd().(TimeframeSelectedMsg)
		assert.Equal(t, "2026-02-10 to 2026-02-20", msg.Label)
	})

	t.Run("EscReturnsToPresets", func(t *testing.T) {
		p, _ := press(NewTimeframePicker(now), tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyDown, tea.KeyEnter, tea.KeyEsc)
		assert.True(t, p.IsSelecting())
	})
}

func update[M tea.Model](t *testing.T, m M, msg tea.Msg) M {
	t.Helper()

	next, _ := m.Update(msg)

	out, ok := next.(M)
	require.True(t, ok)

	return out
}

func TestWalletsModel(t *testing.T) {
	store := memstore.New()
	svc := wallet.NewService(store.Wallets())

	_, err := svc.Create(context.Background(), wallet.CreateParams{Name: "Main", Currency: "USD", InitialBalance: decimal.RequireFromString("100")})
	require.NoError(t, err)

	m := NewWalletsModel(svc)
	m = update(t, m, m.Init()())

	assert.Contains(t, m.View(), "Main")
	assert.Contains(t, m.View(), "$100.00")

	m.state = walletsStateCreate
	m.draft = &walletDraft{name: "Cash", currency: "usd", amount: "12.5"}

	saved, ok := m.saveCmd()().(walletSavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	assert.Equal(t, "Created Cash", saved.status)

	m = update(t, m, saved)
	m = update(t, m, m.loadCmd()())

	require.Len(t, m.items, 2)
	assert.Contains(t, m.View(), "$112.50")

	m.state = walletsStateCreate
	m.draft = &walletDraft{name: " "}

	saved = m.saveCmd()().(walletSavedMsg)
	require.Error(t, saved.err)

	m = update(t, m, saved)
	assert.Contains(t, m.View(), "Error:")
}

func TestAuditModel(t *testing.T) {
	store := memstore.New()

	_, err := wallet.NewService(store.Wallets()).Create(context.Background(), wallet.CreateParams{Name: "Main"})
	require.NoError(t, err)

	m := NewAuditModel(audit.NewService(store.Wallets(), decimal.Zero))
	assert.Contains(t, m.View(), "Auditing")

	m = update(t, m, m.Init()())
	assert.Contains(t, m.View(), "All 1 wallets match their ledger.")

	// nothing to fix
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	assert.Nil(t, cmd)
}

func TestReminder(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	assert.Empty(t, Reminder(nil, now))

	due := []*subscription.Subscription{
		{ServiceName: "Gym", NextDueDate: day(2026, 10, 10)},
		{ServiceName: "Rent", NextDueDate: day(2026, 10, 17)},
		{ServiceName: "Netflix", NextDueDate: day(2026, 10, 20)},
	}

	assert.Equal(t, "Due soon: Gym (overdue since 2026-10-10), Rent on 2026-10-17, Netflix on 2026-10-20", Reminder(due, now))
}
