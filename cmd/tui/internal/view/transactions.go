package view

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

type txState int

const (
	txStateTimeframe txState = iota
	txStateBrowse
	txStateCreate
	txStateConfirmDelete
)

type TransactionsModel struct {
	CommonModel
	ledger     *transaction.Service
	wallets    *wallet.Service
	categories *category.Service
	exporter   *export.Service

	state     txState
	timeframe TimeframePicker
	rangeName string
	filter    transaction.Filter
	typeIdx   int // 0 is all types, otherwise Types[typeIdx-1]
	walletIdx int // 0 is all wallets, otherwise walletList[walletIdx-1]

	table      table.Model
	txs        []*transaction.Transaction
	walletList []*wallet.Wallet
	walletByID map[uuid.UUID]*wallet.Wallet
	catByID    map[uuid.UUID]*category.Category
	catList    []*category.Category

	form   *huh.Form
	status string
	failed bool

	draft *txDraft
}

type txDraft struct {
	typ      transaction.Type
	amount   string
	date     string
	note     string
	category uuid.UUID
	wallet   uuid.UUID
	cleared  bool
	confirm  bool
}

type txLoadedMsg struct {
	txs        []*transaction.Transaction
	wallets    []*wallet.Wallet
	categories []*category.Category
	err        error
}

type txSavedMsg struct {
	status string
	err    error
}

func NewTransactionsModel(ledger *transaction.Service, wallets *wallet.Service, categories *category.Service, exporter *export.Service) TransactionsModel {
	return TransactionsModel{
		ledger:     ledger,
		wallets:    wallets,
		categories: categories,
		exporter:   exporter,
		timeframe:  NewTimeframePicker(time.Now),
		table: newTable([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Type", Width: 8},
			{Title: "Amount", Width: 14},
			{Title: "Category", Width: 16},
			{Title: "Wallet", Width: 14},
			{Title: "✓", Width: 2},
			{Title: "Note", Width: 36},
		}),
	}
}

func (m TransactionsModel) Init() tea.Cmd {
	return nil
}

func (m TransactionsModel) loadCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.ledger.List(ctx, filter)
		if err != nil {
			return txLoadedMsg{err: err}
		}

		wallets, err := m.wallets.List(ctx)
		if err != nil {
			return txLoadedMsg{err: err}
		}

		categories, err := m.categories.List(ctx, nil)
		if err != nil {
			return txLoadedMsg{err: err}
		}

		return txLoadedMsg{txs: txs, wallets: wallets, categories: categories}
	}
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		msg.Apply(&m.filter)
		m.rangeName = msg.Label
		m.state = txStateBrowse
		m.table.Focus()

		return m, m.loadCmd()

	case txLoadedMsg:
		if msg.err != nil {
			m.status, m.failed = fmt.Sprintf("Error: %v", msg.err), true
			return m, nil
		}

		m.setLookups(msg.wallets, msg.categories)
		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case txSavedMsg:
		m.state = txStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status, m.failed = fmt.Sprintf("Error: %v", msg.err), true
		} else {
			m.status, m.failed = msg.status, false
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-12, 5))
		return m, nil
	}

	switch m.state {
	case txStateTimeframe:
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" && m.timeframe.IsSelecting() {
			return m, Back
		}

		var cmd tea.Cmd
		m.timeframe, cmd = m.timeframe.Update(msg)

		return m, cmd
	case txStateBrowse:
		return m.updateBrowse(msg)
	}

	return m.updateForm(msg)
}

func (m *TransactionsModel) setLookups(wallets []*wallet.Wallet, categories []*category.Category) {
	m.walletList = wallets
	m.walletByID = make(map[uuid.UUID]*wallet.Wallet, len(wallets))

	for _, w := range wallets {
		m.walletByID[w.ID] = w
	}

	m.catList = categories
	m.catByID = make(map[uuid.UUID]*category.Category, len(categories))

	for _, c := range categories {
		m.catByID[c.ID] = c
	}

	if m.walletIdx > len(wallets) {
		m.walletIdx = 0
		m.filter.WalletID = nil
	}
}

func (m TransactionsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "q":
			return m, Back
		case "r":
			return m, m.loadCmd()
		case "f":
			m.timeframe.Reset()
			m.state = txStateTimeframe

			return m, nil
		case "t":
			m.typeIdx = (m.typeIdx + 1) % (len(transaction.Types) + 1)
			m.filter.Type = nil

			if m.typeIdx > 0 {
				t := transaction.Types[m.typeIdx-1]
				m.filter.Type = &t
			}

			return m, m.loadCmd()
		case "w":
			m.walletIdx = (m.walletIdx + 1) % (len(m.walletList) + 1)
			m.filter.WalletID = nil

			if m.walletIdx > 0 {
				id := m.walletList[m.walletIdx-1].ID
				m.filter.WalletID = &id
			}

			return m, m.loadCmd()
		case "c":
			return m, m.toggleClearedCmd()
		case "e":
			return m, m.exportCmd()
		case "n":
			return m.openCreate()
		case "x":
			return m.openDelete()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TransactionsModel) selected() *transaction.Transaction {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	return m.txs[idx]
}

func (m TransactionsModel) toggleClearedCmd() tea.Cmd {
	tx := m.selected()
	if tx == nil {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.ledger.SetCleared(ctx, tx.ID, !tx.Cleared); err != nil {
			return txSavedMsg{err: err}
		}

		return txSavedMsg{}
	}
}

// exportCmd writes the current listing to a CSV file in the working directory.
func (m TransactionsModel) exportCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		rows, err := m.exporter.Export(ctx, filter)
		if err != nil {
			return txSavedMsg{err: err}
		}

		dir, err := os.Getwd()
		if err != nil {
			return txSavedMsg{err: err}
		}

		path := filepath.Join(dir, fmt.Sprintf("tally-export-%s.csv", time.Now().Format("20060102-150405")))

		f, err := os.Create(path)
		if err != nil {
			return txSavedMsg{err: err}
		}
		defer f.Close()

		if err := export.WriteCSV(f, rows); err != nil {
			return txSavedMsg{err: err}
		}

		return txSavedMsg{status: fmt.Sprintf("Exported %d transactions to %s", len(rows), path)}
	}
}

func (m TransactionsModel) openCreate() (tea.Model, tea.Cmd) {
	if len(m.walletList) == 0 || len(m.catList) == 0 {
		m.status, m.failed = "Create a wallet and a category first", true
		return m, nil
	}

	m.draft = &txDraft{
		typ:      transaction.TypeExpense,
		date:     FormatDate(time.Now()),
		wallet:   m.walletList[0].ID,
		category: m.catList[0].ID,
	}

	if m.filter.WalletID != nil {
		m.draft.wallet = *m.filter.WalletID
	}

	types := make([]huh.Option[transaction.Type], 0, len(transaction.Types))
	for _, t := range transaction.Types {
		types = append(types, huh.NewOption(string(t), t))
	}

	wallets := make([]huh.Option[uuid.UUID], 0, len(m.walletList))
	for _, w := range m.walletList {
		wallets = append(wallets, huh.NewOption(fmt.Sprintf("%s (%s)", w.Name, w.Format(w.Balance)), w.ID))
	}

	categories := make([]huh.Option[uuid.UUID], 0, len(m.catList))
	for _, c := range m.catList {
		categories = append(categories, huh.NewOption(fmt.Sprintf("%s [%s]", c.Name, c.Type), c.ID))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[transaction.Type]().Title("Type").Options(types...).Value(&m.draft.typ),
			huh.NewInput().Title("Amount").Value(&m.draft.amount).Validate(validateDecimal),
			huh.NewInput().Title("Date").Placeholder(time.DateOnly).Value(&m.draft.date).Validate(validateDate),
			huh.NewInput().Title("Note").Value(&m.draft.note),
		),
		huh.NewGroup(
			huh.NewSelect[uuid.UUID]().Title("Wallet").Options(wallets...).Value(&m.draft.wallet),
			huh.NewSelect[uuid.UUID]().Title("Category").Options(categories...).Value(&m.draft.category),
			huh.NewConfirm().Title("Cleared?").Value(&m.draft.cleared),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = txStateCreate
	m.table.Blur()

	return m, m.form.Init()
}

func (m TransactionsModel) openDelete() (tea.Model, tea.Cmd) {
	tx := m.selected()
	if tx == nil {
		return m, nil
	}

	m.draft = &txDraft{}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s %s from %s?", tx.Type, tx.Amount.StringFixed(2), FormatDate(tx.Date))).
				Value(&m.draft.confirm),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = txStateConfirmDelete
	m.table.Blur()

	return m, m.form.Init()
}

func (m TransactionsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.state = txStateBrowse
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

	if m.state == txStateConfirmDelete {
		return m, m.deleteCmd()
	}

	return m, m.createCmd()
}

func (m TransactionsModel) createCmd() tea.Cmd {
	date, _ := time.Parse(time.DateOnly, strings.TrimSpace(m.draft.date))
	params := transaction.CreateParams{
		Type:       m.draft.typ,
		Amount:     mustDecimal(m.draft.amount),
		Date:       date,
		Note:       strings.TrimSpace(m.draft.note),
		CategoryID: m.draft.category,
		WalletID:   m.draft.wallet,
		Cleared:    m.draft.cleared,
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		tx, err := m.ledger.Create(ctx, params)
		if err != nil {
			return txSavedMsg{err: err}
		}

		return txSavedMsg{status: fmt.Sprintf("Recorded %s of %s", tx.Type, tx.Amount.StringFixed(2))}
	}
}

func (m TransactionsModel) deleteCmd() tea.Cmd {
	tx := m.selected()
	if tx == nil || !m.draft.confirm {
		return func() tea.Msg { return txSavedMsg{} }
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := m.ledger.Delete(ctx, tx.ID); err != nil {
			return txSavedMsg{err: err}
		}

		return txSavedMsg{status: "Transaction deleted"}
	}
}

func (m *TransactionsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))

	for _, tx := range m.txs {
		currency, walletName := wallet.DefaultCurrency, "?"
		if w, ok := m.walletByID[tx.WalletID]; ok {
			currency, walletName = w.Currency, w.Name
		}

		catName := "?"
		if c, ok := m.catByID[tx.CategoryID]; ok {
			catName = c.Name
		}

		cleared := ""
		if tx.Cleared {
			cleared = "✓"
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			string(tx.Type),
			FormatAmount(tx.SignedAmount(), currency),
			catName,
			walletName,
			cleared,
			tx.Note,
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m TransactionsModel) View() string {
	if m.state == txStateTimeframe {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.timeframe.View())
	}

	typeLabel := "All"
	if m.filter.Type != nil {
		typeLabel = string(*m.filter.Type)
	}

	walletLabel := "All"
	if m.walletIdx > 0 && m.walletIdx <= len(m.walletList) {
		walletLabel = m.walletList[m.walletIdx-1].Name
	}

	totals := transaction.Summarize(m.txs)

	header := fmt.Sprintf(
		"[f] %s | [t] Type: %s | [w] Wallet: %s\nIncome %s | Expense %s | Lend %s | Rent %s | Net %s",
		activeStyle(m.rangeName),
		activeStyle(typeLabel),
		activeStyle(walletLabel),
		totals.Income.StringFixed(2),
		totals.Expense.StringFixed(2),
		totals.Lend.StringFixed(2),
		totals.Rent.StringFixed(2),
		activeStyle(totals.Net().StringFixed(2)),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		statusLine(m.status, m.failed)+lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableBox(m.table),
	)

	if m.state != txStateBrowse && m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panelStyle.Render(m.form.View()))
	}

	help := faintStyle.Render("esc back • n new • x delete • c toggle cleared • e export csv • r refresh")
	if m.state != txStateBrowse {
		help = faintStyle.Render("tab next field • esc cancel")
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(content + "\n\n" + help)
}

func validateDate(s string) error {
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}

	return nil
}
