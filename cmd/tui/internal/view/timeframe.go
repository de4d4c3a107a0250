package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// Timeframe is a predefined or custom date range.
type Timeframe int

const (
	TimeframeThisMonth Timeframe = iota
	TimeframeLastMonth
	TimeframeThisYear
	TimeframeAll
	TimeframeCustom
)

var timeframeNames = map[Timeframe]string{
	TimeframeThisMonth: "This Month",
	TimeframeLastMonth: "Last Month",
	TimeframeThisYear:  "This Year",
	TimeframeAll:       "All Time",
	TimeframeCustom:    "Custom Range",
}

func (t Timeframe) String() string {
	if name, ok := timeframeNames[t]; ok {
		return name
	}

	return "Unknown"
}

// Range returns the inclusive day range of t relative to now. ok is false
// for TimeframeAll and TimeframeCustom.
func (t Timeframe) Range(now time.Time) (from, to time.Time, ok bool) {
	y, m, _ := now.Date()

	switch t {
	case TimeframeThisMonth:
		from = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, -1)
	case TimeframeLastMonth:
		from = time.Date(y, m-1, 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, -1)
	case TimeframeThisYear:
		from = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}, time.Time{}, false
	}

	return from, to, true
}

// TimeframeSelectedMsg carries the chosen range. From and To are nil for
// "All Time".
type TimeframeSelectedMsg struct {
	Label string
	From  *time.Time
	To    *time.Time
}

// Apply narrows filter to the selected range.
func (m TimeframeSelectedMsg) Apply(filter *transaction.Filter) {
	filter.From = m.From
	filter.To = m.To
}

type timeframeState int

const (
	timeframeStateSelect timeframeState = iota
	timeframeStateCustom
)

// TimeframePicker lets the user pick a date range for a listing.
type TimeframePicker struct {
	state    timeframeState
	selected Timeframe
	now      func() time.Time

	inputs     [2]textinput.Model
	focusIndex int

	err error
}

func NewTimeframePicker(now func() time.Time) TimeframePicker {
	m := TimeframePicker{now: now}

	for i, prompt := range []string{"From: ", "To:   "} {
		in := textinput.New()
		in.Placeholder = time.DateOnly
		in.CharLimit = 10
		in.Width = 12
		in.Prompt = prompt
		m.inputs[i] = in
	}

	return m
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)

	switch {
	case ok && m.state == timeframeStateSelect:
		return m.updateSelect(key)
	case ok && m.state == timeframeStateCustom:
		if next, cmd, handled := m.updateCustom(key); handled {
			return next, cmd
		}
	}

	if m.state != timeframeStateCustom {
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)

	return m, cmd
}

func (m TimeframePicker) updateSelect(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selected > TimeframeThisMonth {
			m.selected--
		}
	case "down", "j":
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case "enter":
		if m.selected == TimeframeCustom {
			m.state = timeframeStateCustom
			m.focusIndex = 0
			m.inputs[0].Focus()

			return m, textinput.Blink
		}

		selected := TimeframeSelectedMsg{Label: m.selected.String()}
		if from, to, ok := m.selected.Range(m.now()); ok {
			to = endOfDay(to)
			selected.From, selected.To = &from, &to
		}

		return m, func() tea.Msg { return selected }
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.KeyMsg) (TimeframePicker, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.inputs[m.focusIndex].Blur()
		m.focusIndex = (m.focusIndex + 1) % len(m.inputs)
		m.inputs[m.focusIndex].Focus()

		return m, textinput.Blink, true
	case "enter":
		selected, err := m.customRange()
		m.err = err

		if err != nil {
			return m, nil, true
		}

		return m, func() tea.Msg { return selected }, true
	case "esc":
		m.state = timeframeStateSelect
		m.err = nil

		return m, nil, true
	}

	return m, nil, false
}

func (m TimeframePicker) customRange() (TimeframeSelectedMsg, error) {
	from, err := time.Parse(time.DateOnly, strings.TrimSpace(m.inputs[0].Value()))
	if err != nil {
		return TimeframeSelectedMsg{}, errors.New("invalid start date, use YYYY-MM-DD")
	}

	to, err := time.Parse(time.DateOnly, strings.TrimSpace(m.inputs[1].Value()))
	if err != nil {
		return TimeframeSelectedMsg{}, errors.New("invalid end date, use YYYY-MM-DD")
	}

	if to.Before(from) {
		return TimeframeSelectedMsg{}, errors.New("end date is before start date")
	}

	label := fmt.Sprintf("%s to %s", FormatDate(from), FormatDate(to))
	to = endOfDay(to)

	return TimeframeSelectedMsg{Label: label, From: &from, To: &to}, nil
}

func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func (m TimeframePicker) View() string {
	var b strings.Builder

	if m.state == timeframeStateCustom {
		b.WriteString("Custom range:\n\n")
		b.WriteString(m.inputs[0].View() + "\n")
		b.WriteString(m.inputs[1].View() + "\n\n")
		b.WriteString(faintStyle.Render("enter confirm • tab switch • esc back"))
	} else {
		b.WriteString("Select timeframe:\n\n")

		for tf := TimeframeThisMonth; tf <= TimeframeCustom; tf++ {
			if tf == m.selected {
				b.WriteString(activeStyle("> " + tf.String()))
			} else {
				b.WriteString("  " + tf.String())
			}

			b.WriteString("\n")
		}

		b.WriteString("\n" + faintStyle.Render("enter select • esc back"))
	}

	if m.err != nil {
		b.WriteString("\n\n" + errorStyle.Render(m.err.Error()))
	}

	return b.String()
}

// IsSelecting reports whether the picker shows the preset list.
func (m TimeframePicker) IsSelecting() bool {
	return m.state == timeframeStateSelect
}

func (m *TimeframePicker) Reset() {
	m.state = timeframeStateSelect
	m.selected = TimeframeThisMonth
	m.err = nil

	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
}
