package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

const (
	importTimeout = 2 * time.Minute

	// fallbackCategory receives lines no rule recognises when the user
	// picks no default category.
	fallbackCategory = "Uncategorized"
)

type importState int

const (
	importStateLoading importState = iota
	importStateSetup
	importStateFilePick
	importStateImporting
	importStateConflicts
	importStateResult
)

type ImportModel struct {
	CommonModel
	ledger     *transaction.Service
	importer   *importer.Service
	wallets    *wallet.Service
	categories *category.Service

	state      importState
	form       *huh.Form
	draft      *importDraft
	filePicker filepicker.Model
	walletList []*wallet.Wallet
	catList    []*category.Category

	newParams    []transaction.CreateParams
	conflicts    []transaction.Conflict
	conflictList list.Model
	selected     map[int]bool

	status string
	err    error
}

type importDraft struct {
	bank     importer.Bank
	wallet   uuid.UUID
	category uuid.UUID
}

type importOptionsMsg struct {
	wallets    []*wallet.Wallet
	categories []*category.Category
	err        error
}

type importResultMsg struct {
	result *transaction.ImportResult
	err    error
}

type confirmResultMsg struct {
	count   int
	balance decimal.Decimal
	err     error
}

func NewImportModel(ledger *transaction.Service, imp *importer.Service, wallets *wallet.Service, categories *category.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.Height = 15

	return ImportModel{
		ledger:     ledger,
		importer:   imp,
		wallets:    wallets,
		categories: categories,
		filePicker: fp,
		selected:   make(map[int]bool),
	}
}

func (m ImportModel) Init() tea.Cmd {
	return m.loadOptionsCmd()
}

func (m ImportModel) loadOptionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		wallets, err := m.wallets.List(ctx)
		if err != nil {
			return importOptionsMsg{err: err}
		}

		categories, err := m.categories.List(ctx, nil)
		if err != nil {
			return importOptionsMsg{err: err}
		}

		return importOptionsMsg{wallets: wallets, categories: categories}
	}
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateConflicts {
			return m.updateConflicts(msg)
		}

	case importOptionsMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}

		if len(msg.wallets) == 0 {
			return m.fail(fmt.Errorf("create a wallet before importing"))
		}

		m.walletList, m.catList = msg.wallets, msg.categories

		return m.openSetup()

	case importResultMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}

		if len(msg.result.Conflicts) == 0 {
			m.state = importStateResult
			m.status = fmt.Sprintf("Imported %d transactions. Balance: %s",
				len(msg.result.Imported), m.formatBalance(msg.result.Balance))

			return m, nil
		}

		m.newParams = msg.result.New
		m.conflicts = msg.result.Conflicts
		m.selected = make(map[int]bool)
		m.state = importStateConflicts
		m.conflictList = newConflictList(m.conflicts, m.selected)

		return m, nil

	case confirmResultMsg:
		if msg.err != nil {
			return m.fail(msg.err)
		}

		m.state = importStateResult
		m.status = fmt.Sprintf("Imported %d transactions. Balance: %s", msg.count, m.formatBalance(msg.balance))

		return m, nil
	}

	switch m.state {
	case importStateSetup:
		return m.updateSetup(msg)
	case importStateFilePick:
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.state = importStateImporting
			m.status = fmt.Sprintf("Importing from %s...", path)

			return m, m.importCmd(path)
		}

		return m, cmd
	}

	return m, nil
}

func (m ImportModel) fail(err error) (tea.Model, tea.Cmd) {
	m.state = importStateResult
	m.err = err
	m.status = fmt.Sprintf("Error: %v", err)

	return m, nil
}

func (m ImportModel) formatBalance(amount decimal.Decimal) string {
	for _, w := range m.walletList {
		if w.ID == m.draft.wallet {
			return w.Format(amount)
		}
	}

	return amount.StringFixed(2)
}

func (m ImportModel) openSetup() (tea.Model, tea.Cmd) {
	m.draft = &importDraft{bank: importer.BankCGD, wallet: m.walletList[0].ID}

	wallets := make([]huh.Option[uuid.UUID], 0, len(m.walletList))
	for _, w := range m.walletList {
		wallets = append(wallets, huh.NewOption(w.Name, w.ID))
	}

	categories := []huh.Option[uuid.UUID]{huh.NewOption(fallbackCategory, uuid.Nil)}
	for _, c := range m.catList {
		categories = append(categories, huh.NewOption(fmt.Sprintf("%s [%s]", c.Name, c.Type), c.ID))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[importer.Bank]().
				Title("Bank").
				Options(huh.NewOption("Caixa Geral de Depósitos", importer.BankCGD)).
				Value(&m.draft.bank),
			huh.NewSelect[uuid.UUID]().Title("Into wallet").Options(wallets...).Value(&m.draft.wallet),
			huh.NewSelect[uuid.UUID]().
				Title("Default category").
				Description("Used for lines no rule recognises.").
				Options(categories...).
				Value(&m.draft.category),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = importStateSetup
	m.err = nil
	m.status = ""

	return m, m.form.Init()
}

func (m ImportModel) updateSetup(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = importStateFilePick

	return m, m.filePicker.Init()
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick, importStateResult, importStateConflicts:
		m.conflicts = nil
		m.newParams = nil

		if len(m.walletList) == 0 {
			return m, Back
		}

		return m.openSetup()
	}

	return m, Back
}

func (m ImportModel) updateConflicts(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		idx := m.conflictList.Index()
		m.selected[idx] = !m.selected[idx]

		return m, nil
	case "a", "n":
		for i := range m.conflicts {
			m.selected[i] = msg.String() == "a"
		}

		return m, nil
	case "enter":
		return m, m.confirmCmd()
	}

	var cmd tea.Cmd
	m.conflictList, cmd = m.conflictList.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateLoading:
		return lipgloss.NewStyle().Padding(2).Render("Loading...")
	case importStateSetup:
		return lipgloss.NewStyle().Padding(1, 2).Render(
			"Import bank statement\n\n" + m.form.View() + "\n\n" + faintStyle.Render("enter next • esc back"),
		)
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select file to import (%s):\n\n%s", m.draft.bank, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateConflicts:
		return lipgloss.NewStyle().Padding(1).Render(
			m.conflictList.View() + "\n" +
				faintStyle.Render("space toggle • a all • n none • enter import selected • esc cancel"),
		)
	case importStateResult:
		style := successStyle
		if m.err != nil {
			style = errorStyle
		}

		return lipgloss.NewStyle().Padding(2).Render(style.Render(m.status) + "\n\n" + faintStyle.Render("esc back"))
	}

	return ""
}

func (m ImportModel) target(ctx context.Context) (importer.Target, error) {
	target := importer.Target{WalletID: m.draft.wallet, CategoryID: m.draft.category}
	if target.CategoryID != uuid.Nil {
		return target, nil
	}

	c, err := m.categories.Ensure(ctx, fallbackCategory, transaction.TypeExpense)
	if err != nil {
		return target, err
	}

	target.CategoryID = c.ID

	return target, nil
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	bank := m.draft.bank

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		target, err := m.target(ctx)
		if err != nil {
			return importResultMsg{err: err}
		}

		params, err := m.importer.Import(ctx, bank, f, target)
		if err != nil {
			return importResultMsg{err: err}
		}

		result, err := m.ledger.ImportBatch(ctx, target.WalletID, params)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{result: result}
	}
}

func (m ImportModel) confirmCmd() tea.Cmd {
	walletID := m.draft.wallet
	params := append([]transaction.CreateParams(nil), m.newParams...)

	for i, c := range m.conflicts {
		if m.selected[i] {
			params = append(params, c.Incoming)
		}
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		txs, err := m.ledger.CreateBatch(ctx, walletID, params)
		if err != nil {
			return confirmResultMsg{err: err}
		}

		w, err := m.wallets.Get(ctx, walletID)
		if err != nil {
			return confirmResultMsg{err: err}
		}

		return confirmResultMsg{count: len(txs), balance: w.Balance}
	}
}

func newConflictList(conflicts []transaction.Conflict, selected map[int]bool) list.Model {
	items := make([]list.Item, len(conflicts))
	for i, c := range conflicts {
		items[i] = conflictItem{conflict: c, index: i}
	}

	l := list.New(items, conflictDelegate{selected: selected}, 90, 20)
	l.Title = "Possible duplicates (select the lines to import anyway)"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return l
}

type conflictItem struct {
	conflict transaction.Conflict
	index    int
}

func (i conflictItem) FilterValue() string { return i.conflict.Incoming.Note }

type conflictDelegate struct {
	selected map[int]bool
}

func (d conflictDelegate) Height() int                             { return 3 }
func (d conflictDelegate) Spacing() int                            { return 0 }
func (d conflictDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d conflictDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(conflictItem)
	if !ok {
		return
	}

	checkbox := "[ ]"
	if d.selected[item.index] {
		checkbox = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	in, existing := item.conflict.Incoming, item.conflict.Existing

	line1 := fmt.Sprintf("%s%s %s  %-7s %10s  %s",
		cursor, checkbox, FormatDate(in.Date), in.Type, in.Amount.StringFixed(2), in.Note)
	line2 := faintStyle.Render(fmt.Sprintf("       matches %s  %-7s %10s  %s",
		FormatDate(existing.Date), existing.Type, existing.Amount.StringFixed(2), existing.Note))

	if index == m.Index() {
		line1 = activeStyle(line1)
	}

	fmt.Fprintf(w, "%s\n%s\n", line1, line2)
}
