package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/audit"
	"github.com/MrJamesThe3rd/tally/internal/category"
	categoryStore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/logging"
	"github.com/MrJamesThe3rd/tally/internal/rule"
	ruleStore "github.com/MrJamesThe3rd/tally/internal/rule/store"
	"github.com/MrJamesThe3rd/tally/internal/subscription"
	subscriptionStore "github.com/MrJamesThe3rd/tally/internal/subscription/store"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txStore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
	walletStore "github.com/MrJamesThe3rd/tally/internal/wallet/store"
)

type View int

const (
	ViewMenu View = iota
	ViewWallets
	ViewTransactions
	ViewSubscriptions
	ViewImport
	ViewAudit
)

type services struct {
	ledger        *transaction.Service
	wallets       *wallet.Service
	categories    *category.Service
	subscriptions *subscription.Service
	auditor       *audit.Service
	importer      *importer.Service
	exporter      *export.Service
	leadDays      int
}

type model struct {
	svc         services
	appName     string
	remind      bool
	reminder    string
	currentView View
	active      tea.Model
}

var reminderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// stdout belongs to the TUI
	logFile, err := os.OpenFile(filepath.Join(os.TempDir(), "tally-tui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.NewWriter(logFile, cfg.App.LogLevel, cfg.App.LogJSON).With("app", cfg.App.Name))

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var (
		ledger     = transaction.NewService(txStore.New(db))
		wallets    = wallet.NewService(walletStore.New(db))
		categories = category.NewService(categoryStore.New(db))
	)

	return model{
		svc: services{
			ledger:        ledger,
			wallets:       wallets,
			categories:    categories,
			subscriptions: subscription.NewService(subscriptionStore.New(db), ledger),
			auditor:       audit.NewService(walletStore.New(db), cfg.Audit.Tolerance),
			importer:      importer.NewService(rule.NewService(ruleStore.New(db))),
			exporter:      export.NewService(ledger, wallets, categories),
			leadDays:      cfg.Notifications.LeadDays,
		},
		appName:     cfg.App.Name,
		remind:      cfg.Notifications.Enabled,
		currentView: ViewMenu,
	}
}

func (m model) open(v View) (tea.Model, tea.Cmd) {
	switch v {
	case ViewWallets:
		m.active = view.NewWalletsModel(m.svc.wallets)
	case ViewTransactions:
		m.active = view.NewTransactionsModel(m.svc.ledger, m.svc.wallets, m.svc.categories, m.svc.exporter)
	case ViewSubscriptions:
		m.active = view.NewSubscriptionsModel(m.svc.subscriptions, m.svc.wallets, m.svc.leadDays)
	case ViewImport:
		m.active = view.NewImportModel(m.svc.ledger, m.svc.importer, m.svc.wallets, m.svc.categories)
	case ViewAudit:
		m.active = view.NewAuditModel(m.svc.auditor)
	default:
		return m, nil
	}

	m.currentView = v

	return m, m.active.Init()
}

func (m model) Init() tea.Cmd {
	if !m.remind {
		return nil
	}

	return view.LoadReminders(m.svc.subscriptions, m.svc.leadDays)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				return m.open(ViewWallets)
			case "2":
				return m.open(ViewTransactions)
			case "3":
				return m.open(ViewSubscriptions)
			case "4":
				return m.open(ViewImport)
			case "5":
				return m.open(ViewAudit)
			}
		}
	case view.RemindersMsg:
		if msg.Err != nil {
			slog.Warn("failed to load subscription reminders", "error", msg.Err)
			return m, nil
		}

		m.reminder = view.Reminder(msg.Due, time.Now())

		return m, nil
	case view.BackMsg:
		m.currentView = ViewMenu
		m.active = nil

		if m.remind {
			return m, view.LoadReminders(m.svc.subscriptions, m.svc.leadDays)
		}

		return m, nil
	}

	if m.active == nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.active, cmd = m.active.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.currentView == ViewMenu || m.active == nil {
		banner := ""
		if m.reminder != "" {
			banner = reminderStyle.Render(m.reminder) + "\n\n"
		}

		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + "\n\n" + banner +
				"1. Wallets\n" +
				"2. Transactions\n" +
				"3. Subscriptions\n" +
				"4. Import Bank Statement\n" +
				"5. Audit Balances\n\n" +
				"q. Quit",
		)
	}

	return m.active.View()
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
