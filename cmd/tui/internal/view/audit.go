package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/audit"
)

type AuditModel struct {
	CommonModel
	auditor *audit.Service

	table   table.Model
	report  *audit.Report
	running bool
	fixed   bool
	err     error
}

type auditDoneMsg struct {
	report *audit.Report
	fix    bool
	err    error
}

func NewAuditModel(auditor *audit.Service) AuditModel {
	return AuditModel{
		auditor: auditor,
		running: true,
		table: newTable([]table.Column{
			{Title: "Wallet", Width: 20},
			{Title: "Stored", Width: 14},
			{Title: "Expected", Width: 14},
			{Title: "Difference", Width: 12},
			{Title: "Txs", Width: 5},
			{Title: "Status", Width: 14},
		}),
	}
}

// Init starts a dry run.
func (m AuditModel) Init() tea.Cmd {
	return m.runCmd(false)
}

func (m AuditModel) runCmd(fix bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		report, err := m.auditor.Run(ctx, fix)

		return auditDoneMsg{report: report, fix: fix, err: err}
	}
}

func (m AuditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case auditDoneMsg:
		m.running = false
		m.err = msg.err

		if msg.err == nil {
			m.report = msg.report
			m.fixed = msg.fix
			m.refreshTable()
		}

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return m, Back
		case "r":
			m.running = true
			return m, m.runCmd(false)
		case "f":
			if m.report == nil || m.report.Discrepancies == 0 {
				return m, nil
			}

			m.running = true

			return m, m.runCmd(true)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *AuditModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.report.Results))

	for _, r := range m.report.Results {
		status := "ok"

		switch {
		case r.Fixed:
			status = "fixed"
		case r.Discrepancy:
			status = "DRIFT"
		case r.BaselineInferred:
			status = "ok (inferred)"
		}

		rows = append(rows, table.Row{
			r.WalletName,
			FormatAmount(r.StoredBalance, r.Currency),
			FormatAmount(r.Expected, r.Currency),
			r.Difference.StringFixed(2),
			fmt.Sprint(r.Totals.Count),
			status,
		})
	}

	m.table.SetRows(rows)
}

func (m AuditModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 2)

	if m.running {
		return style.Render("Auditing wallet balances...")
	}

	if m.err != nil {
		return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + faintStyle.Render("r retry • esc back"))
	}

	var summary string

	switch {
	case m.fixed:
		summary = successStyle.Render(fmt.Sprintf("Fixed %d of %d wallets.", m.report.Fixed, len(m.report.Results)))
	case m.report.Discrepancies > 0:
		summary = errorStyle.Render(fmt.Sprintf("%d of %d wallets drift from their ledger (tolerance %s).",
			m.report.Discrepancies, len(m.report.Results), m.report.Tolerance.StringFixed(2)))
	default:
		summary = successStyle.Render(fmt.Sprintf("All %d wallets match their ledger.", len(m.report.Results)))
	}

	help := faintStyle.Render("r re-run • f fix drift • esc back")

	return style.Render(summary + "\n\n" + tableBox(m.table) + "\n\n" + help)
}
