package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/subscription"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

type subState int

const (
	subStateBrowse subState = iota
	subStateCreate
	subStateConfirmPay
	subStateConfirmDelete
)

type SubscriptionsModel struct {
	CommonModel
	subs     *subscription.Service
	wallets  *wallet.Service
	leadDays int

	state      subState
	upcoming   bool
	table      table.Model
	items      []*subscription.Subscription
	walletList []*wallet.Wallet
	walletByID map[uuid.UUID]*wallet.Wallet

	form   *huh.Form
	draft  *subDraft
	status string
	failed bool
}

type subDraft struct {
	name    string
	amount  string
	period  subscription.Period
	start   string
	method  string
	wallet  uuid.UUID // uuid.Nil means no wallet
	note    string
	confirm bool
}

type subsLoadedMsg struct {
	items   []*subscription.Subscription
	wallets []*wallet.Wallet
	err     error
}

type subSavedMsg struct {
	status string
	err    error
}

func NewSubscriptionsModel(subs *subscription.Service, wallets *wallet.Service, leadDays int) SubscriptionsModel {
	return SubscriptionsModel{
		subs:     subs,
		wallets:  wallets,
		leadDays: leadDays,
		table: newTable([]table.Column{
			{Title: "Service", Width: 20},
			{Title: "Amount", Width: 14},
			{Title: "Period", Width: 8},
			{Title: "Next due", Width: 12},
			{Title: "Wallet", Width: 16},
			{Title: "Active", Width: 6},
			{Title: "Method", Width: 14},
		}),
	}
}

func (m SubscriptionsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m SubscriptionsModel) loadCmd() tea.Cmd {
	upcoming, lead := m.upcoming, time.Duration(m.leadDays)*24*time.Hour

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var (
			items []*subscription.Subscription
			err   error
		)

		if upcoming {
			items, err = m.subs.Upcoming(ctx, lead)
		} else {
			items, err = m.subs.List(ctx, false)
		}

		if err != nil {
			return subsLoadedMsg{err: err}
		}

		wallets, err := m.wallets.List(ctx)
		if err != nil {
			return subsLoadedMsg{err: err}
		}

		return subsLoadedMsg{items: items, wallets: wallets}
	}
}

func (m SubscriptionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case subsLoadedMsg:
		if msg.err != nil {
			m.status, m.failed = fmt.Sprintf("Error: %v", msg.err), true
			return m, nil
		}

		m.items = msg.items
		m.walletList = msg.wallets
		m.walletByID = make(map[uuid.UUID]*wallet.Wallet, len(msg.wallets))

		for _, w := range msg.wallets {
			m.walletByID[w.ID] = w
		}

		m.refreshTable()

		return m, nil

	case subSavedMsg:
		m.state = subStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status, m.failed = fmt.Sprintf("Error: %v", msg.err), true
		} else {
			m.status, m.failed = msg.status, false
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-10, 5))
		return m, nil
	}

	if m.state == subStateBrowse {
		return m.updateBrowse(msg)
	}

	return m.updateForm(msg)
}

func (m SubscriptionsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q":
			return m, Back
		case "r":
			return m, m.loadCmd()
		case "u":
			m.upcoming = !m.upcoming
			return m, m.loadCmd()
		case "n":
			return m.openCreate()
		case "p":
			return m.openConfirm(subStateConfirmPay)
		case "x":
			return m.openConfirm(subStateConfirmDelete)
		case "s":
			return m, m.toggleActiveCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m SubscriptionsModel) selected() *subscription.Subscription {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return nil
	}

	return m.items[idx]
}

func (m SubscriptionsModel) openCreate() (tea.Model, tea.Cmd) {
	m.draft = &subDraft{period: subscription.PeriodMonthly, start: FormatDate(time.Now())}

	wallets := []huh.Option[uuid.UUID]{huh.NewOption("(none)", uuid.Nil)}
	for _, w := range m.walletList {
		wallets = append(wallets, huh.NewOption(w.Name, w.ID))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Service").Value(&m.draft.name).Validate(requireText("service")),
			huh.NewInput().Title("Amount").Value(&m.draft.amount).Validate(validateDecimal),
			huh.NewSelect[subscription.Period]().
				Title("Period").
				Options(
					huh.NewOption("Daily", subscription.PeriodDaily),
					huh.NewOption("Weekly", subscription.PeriodWeekly),
					huh.NewOption("Monthly", subscription.PeriodMonthly),
					huh.NewOption("Yearly", subscription.PeriodYearly),
				).
				Value(&m.draft.period),
			huh.NewInput().Title("First due date").Value(&m.draft.start).Validate(validateDate),
		),
		huh.NewGroup(
			huh.NewSelect[uuid.UUID]().Title("Pay from").Options(wallets...).Value(&m.draft.wallet),
			huh.NewInput().Title("Payment method").Value(&m.draft.method),
			huh.NewInput().Title("Note").Value(&m.draft.note),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = subStateCreate
	m.table.Blur()

	return m, m.form.Init()
}

func (m SubscriptionsModel) openConfirm(state subState) (tea.Model, tea.Cmd) {
	sub := m.selected()
	if sub == nil {
		return m, nil
	}

	title := fmt.Sprintf("Delete subscription %s?", sub.ServiceName)
	if state == subStateConfirmPay {
		title = fmt.Sprintf("Pay %s %s now?", sub.ServiceName, sub.Amount.StringFixed(2))
	}

	m.draft = &subDraft{}
	m.form = huh.NewForm(
		huh.NewGroup(huh.NewConfirm().Title(title).Value(&m.draft.confirm)),
	).WithWidth(45).WithShowHelp(false)

	m.state = state
	m.table.Blur()

	return m, m.form.Init()
}

func (m SubscriptionsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.state = subStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	switch m.state {
	case subStateCreate:
		return m, m.createCmd()
	case subStateConfirmPay:
		return m, m.payCmd()
	}

	return m, m.deleteCmd()
}

func (m SubscriptionsModel) createCmd() tea.Cmd {
	d := *m.draft
	start, _ := time.Parse(time.DateOnly, strings.TrimSpace(d.start))

	params := subscription.CreateParams{
		ServiceName:   d.name,
		Amount:        mustDecimal(d.amount),
		Period:        d.period,
		StartDate:     start,
		PaymentMethod: strings.TrimSpace(d.method),
		Note:          strings.TrimSpace(d.note),
	}

	if d.wallet != uuid.Nil {
		params.WalletID = &d.wallet
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		sub, err := m.subs.Create(ctx, params)
		if err != nil {
			return subSavedMsg{err: err}
		}

		return subSavedMsg{status: "Added " + sub.ServiceName}
	}
}

func (m SubscriptionsModel) payCmd() tea.Cmd {
	sub := m.selected()
	if sub == nil || !m.draft.confirm {
		return func() tea.Msg { return subSavedMsg{} }
	}

	currency := wallet.DefaultCurrency
	if sub.WalletID != nil {
		if w, ok := m.walletByID[*sub.WalletID]; ok {
			currency = w.Currency
		}
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.subs.MarkPaid(ctx, sub.ID)
		if err != nil {
			return subSavedMsg{err: err}
		}

		return subSavedMsg{status: fmt.Sprintf("Paid %s. Wallet balance %s, next due %s",
			res.Subscription.ServiceName,
			FormatAmount(res.WalletBalance, currency),
			FormatDate(res.Subscription.NextDueDate),
		)}
	}
}

func (m SubscriptionsModel) deleteCmd() tea.Cmd {
	sub := m.selected()
	if sub == nil || !m.draft.confirm {
		return func() tea.Msg { return subSavedMsg{} }
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.subs.Delete(ctx, sub.ID); err != nil {
			return subSavedMsg{err: err}
		}

		return subSavedMsg{status: "Deleted " + sub.ServiceName}
	}
}

func (m SubscriptionsModel) toggleActiveCmd() tea.Cmd {
	sub := m.selected()
	if sub == nil {
		return nil
	}

	params := subscription.UpdateParams{
		ServiceName:   sub.ServiceName,
		Amount:        sub.Amount,
		Period:        sub.Period,
		PaymentMethod: sub.PaymentMethod,
		WalletID:      sub.WalletID,
		Note:          sub.Note,
		IsActive:      !sub.IsActive,
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.subs.Update(ctx, sub.ID, params); err != nil {
			return subSavedMsg{err: err}
		}

		return subSavedMsg{}
	}
}

func (m *SubscriptionsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.items))

	for _, sub := range m.items {
		currency, walletName := wallet.DefaultCurrency, "-"
		if sub.WalletID != nil {
			if w, ok := m.walletByID[*sub.WalletID]; ok {
				currency, walletName = w.Currency, w.Name
			}
		}

		active := "no"
		if sub.IsActive {
			active = "yes"
		}

		rows = append(rows, table.Row{
			sub.ServiceName,
			FormatAmount(sub.Amount, currency),
			string(sub.Period),
			FormatDate(sub.NextDueDate),
			walletName,
			active,
			sub.PaymentMethod,
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m SubscriptionsModel) View() string {
	mode := "All"
	if m.upcoming {
		mode = fmt.Sprintf("Due within %d days", m.leadDays)
	}

	header := fmt.Sprintf("Subscriptions | [u] Showing: %s", activeStyle(mode))

	content := lipgloss.JoinVertical(lipgloss.Left,
		statusLine(m.status, m.failed)+lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableBox(m.table),
	)

	if m.state != subStateBrowse && m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panelStyle.Render(m.form.View()))
	}

	help := faintStyle.Render("esc back • n new • p pay • s toggle active • x delete • r refresh")
	if m.state != subStateBrowse {
		help = faintStyle.Render("tab next field • esc cancel")
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(content + "\n\n" + help)
}
