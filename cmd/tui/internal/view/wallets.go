package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

type walletsState int

const (
	walletsStateBrowse walletsState = iota
	walletsStateCreate
	walletsStateAdjust
	walletsStateConfirmDelete
)

type WalletsModel struct {
	CommonModel
	wallets *wallet.Service

	state   walletsState
	table   table.Model
	items   []*wallet.Wallet
	form    *huh.Form
	status  string
	failed  bool
	loading bool

	draft *walletDraft
}

// walletDraft holds form input. Forms bind to its fields, so it lives behind
// a pointer that survives model copies.
type walletDraft struct {
	name     string
	typ      string
	currency string
	amount   string
	confirm  bool
}

type walletsLoadedMsg struct {
	items []*wallet.Wallet
	err   error
}

type walletSavedMsg struct {
	status string
	err    error
}

func NewWalletsModel(svc *wallet.Service) WalletsModel {
	return WalletsModel{
		wallets: svc,
		loading: true,
		table: newTable([]table.Column{
			{Title: "Name", Width: 24},
			{Title: "Type", Width: 12},
			{Title: "Currency", Width: 8},
			{Title: "Balance", Width: 18},
			{Title: "Initial", Width: 18},
		}),
	}
}

func (m WalletsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m WalletsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		items, err := m.wallets.List(ctx)

		return walletsLoadedMsg{items: items, err: err}
	}
}

func (m WalletsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case walletsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status, m.failed = fmt.Sprintf("Error: %v", msg.err), true
			return m, nil
		}

		m.items = msg.items
		m.refreshTable()

		return m, nil

	case walletSavedMsg:
		m.state = walletsStateBrowse
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

	if m.state == walletsStateBrowse {
		return m.updateBrowse(msg)
	}

	return m.updateForm(msg)
}

func (m WalletsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "n":
			return m.openCreate()
		case "a":
			return m.openAdjust()
		case "x":
			return m.openDelete()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m WalletsModel) selected() *wallet.Wallet {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.items) {
		return nil
	}

	return m.items[idx]
}

func (m WalletsModel) openCreate() (tea.Model, tea.Cmd) {
	m.draft = &walletDraft{currency: wallet.DefaultCurrency, amount: "0"}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&m.draft.name).Validate(requireText("name")),
			huh.NewInput().Title("Type").Placeholder("checking, savings, cash...").Value(&m.draft.typ),
			huh.NewInput().Title("Currency").Value(&m.draft.currency).CharLimit(3),
			huh.NewInput().Title("Initial balance").Value(&m.draft.amount).Validate(validateDecimal),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = walletsStateCreate
	m.table.Blur()

	return m, m.form.Init()
}

func (m WalletsModel) openAdjust() (tea.Model, tea.Cmd) {
	w := m.selected()
	if w == nil {
		return m, nil
	}

	m.draft = &walletDraft{amount: w.Balance.StringFixed(2)}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Set balance of " + w.Name).
				Description("The ledger is kept; the initial balance absorbs the change.").
				Value(&m.draft.amount).
				Validate(validateDecimal),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = walletsStateAdjust
	m.table.Blur()

	return m, m.form.Init()
}

func (m WalletsModel) openDelete() (tea.Model, tea.Cmd) {
	w := m.selected()
	if w == nil {
		return m, nil
	}

	m.draft = &walletDraft{}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s and all of its transactions?", w.Name)).
				Value(&m.draft.confirm),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = walletsStateConfirmDelete
	m.table.Blur()

	return m, m.form.Init()
}

func (m WalletsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.state = walletsStateBrowse
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

	return m, m.saveCmd()
}

func (m WalletsModel) saveCmd() tea.Cmd {
	state := m.state
	target := m.selected()
	d := *m.draft

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		switch state {
		case walletsStateCreate:
			w, err := m.wallets.Create(ctx, wallet.CreateParams{
				Name:           d.name,
				Type:           d.typ,
				Currency:       d.currency,
				InitialBalance: mustDecimal(d.amount),
			})
			if err != nil {
				return walletSavedMsg{err: err}
			}

			return walletSavedMsg{status: "Created " + w.Name}

		case walletsStateAdjust:
			w, err := m.wallets.AdjustBalance(ctx, target.ID, mustDecimal(d.amount))
			if err != nil {
				return walletSavedMsg{err: err}
			}

			return walletSavedMsg{status: fmt.Sprintf("%s is now %s", w.Name, w.Format(w.Balance))}

		case walletsStateConfirmDelete:
			if !d.confirm {
				return walletSavedMsg{}
			}

			if err := m.wallets.Delete(ctx, target.ID); err != nil {
				return walletSavedMsg{err: err}
			}

			return walletSavedMsg{status: "Deleted " + target.Name}
		}

		return walletSavedMsg{}
	}
}

func (m *WalletsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.items))

	for _, w := range m.items {
		initial := "inferred"
		if w.InitialBalance.Valid {
			initial = w.Format(w.InitialBalance.Decimal)
		}

		rows = append(rows, table.Row{w.Name, w.Type, w.Currency, w.Format(w.Balance), initial})
	}

	m.table.SetRows(rows)
}

func (m WalletsModel) totals() string {
	sums := map[string]decimal.Decimal{}

	var order []string

	for _, w := range m.items {
		if _, ok := sums[w.Currency]; !ok {
			order = append(order, w.Currency)
		}

		sums[w.Currency] = sums[w.Currency].Add(w.Balance)
	}

	parts := make([]string, 0, len(order))
	for _, cur := range order {
		parts = append(parts, FormatAmount(sums[cur], cur))
	}

	return strings.Join(parts, " | ")
}

func (m WalletsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading wallets...")
	}

	header := fmt.Sprintf("Wallets (%d) | Total: %s", len(m.items), activeStyle(m.totals()))

	content := lipgloss.JoinVertical(lipgloss.Left,
		statusLine(m.status, m.failed)+lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableBox(m.table),
	)

	if m.state != walletsStateBrowse && m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panelStyle.Render(m.form.View()))
	}

	help := faintStyle.Render("esc back • n new • a adjust balance • x delete • r refresh")
	if m.state != walletsStateBrowse {
		help = faintStyle.Render("tab next field • esc cancel")
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(content + "\n\n" + help)
}

func requireText(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}

		return nil
	}
}

func validateDecimal(s string) error {
	if _, err := decimal.NewFromString(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("not a number: %q", s)
	}

	return nil
}

// mustDecimal parses input already checked by validateDecimal.
func mustDecimal(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(strings.TrimSpace(s))
	return d
}
