package view

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/tally/internal/subscription"
)

// RemindersMsg carries the active subscriptions due within the lead time.
type RemindersMsg struct {
	Due []*subscription.Subscription
	Err error
}

// LoadReminders lists the subscriptions due within leadDays, overdue ones
// included.
func LoadReminders(subs *subscription.Service, leadDays int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		due, err := subs.Upcoming(ctx, time.Duration(leadDays)*24*time.Hour)

		return RemindersMsg{Due: due, Err: err}
	}
}

// Reminder renders the menu banner for due subscriptions. It is empty when
// nothing is due.
func Reminder(due []*subscription.Subscription, now time.Time) string {
	if len(due) == 0 {
		return ""
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	parts := make([]string, 0, len(due))

	for _, sub := range due {
		if sub.NextDueDate.Before(today) {
			parts = append(parts, fmt.Sprintf("%s (overdue since %s)", sub.ServiceName, FormatDate(sub.NextDueDate)))
			continue
		}

		parts = append(parts, fmt.Sprintf("%s on %s", sub.ServiceName, FormatDate(sub.NextDueDate)))
	}

	return "Due soon: " + strings.Join(parts, ", ")
}
