package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/apguard/apguard/cmd/tui/internal/view"
	"github.com/apguard/apguard/internal/config"
	"github.com/apguard/apguard/internal/database"
	"github.com/apguard/apguard/internal/invoice"
	invoiceStore "github.com/apguard/apguard/internal/invoice/store"
	"github.com/apguard/apguard/internal/workflow"
	workflowStore "github.com/apguard/apguard/internal/workflow/store"
)

type model struct {
	engine         *workflow.Engine
	invoiceService *invoice.Service
	approver       string

	currentView View

	queueView    view.QueueModel
	reviewView   view.ReviewModel
	invoicesView view.InvoicesModel
}

type View int

const (
	ViewMenu     View = 0
	ViewQueue    View = 1
	ViewReview   View = 2
	ViewInvoices View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	approver := os.Getenv("APPROVER_ID")
	if approver == "" {
		slog.Error("APPROVER_ID must be set")
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	chains, err := workflow.NewChainSet(workflow.DefaultChains())
	if err != nil {
		slog.Error("failed to load approval chains", "error", err)
		os.Exit(1)
	}

	invoiceSvc := invoice.NewService(invoiceStore.New(db))
	engine := workflow.NewEngine(workflowStore.New(db), chains, workflow.LogPublisher{}, nil)

	return model{
		engine:         engine,
		invoiceService: invoiceSvc,
		approver:       approver,
		currentView:    ViewMenu,
		queueView:      view.NewQueueModel(engine),
		invoicesView:   view.NewInvoicesModel(invoiceSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewQueue
				m.queueView = view.NewQueueModel(m.engine)

				return m, m.queueView.Init()
			case "2":
				m.currentView = ViewInvoices
				m.invoicesView = view.NewInvoicesModel(m.invoiceService)

				return m, m.invoicesView.Init()
			}
		}
	case view.OpenReviewMsg:
		m.currentView = ViewReview
		m.reviewView = view.NewReviewModel(m.engine, m.invoiceService, m.approver, msg.Workflow)

		return m, m.reviewView.Init()
	case view.BackMsg:
		if m.currentView == ViewReview {
			m.currentView = ViewQueue
			m.queueView = view.NewQueueModel(m.engine)

			return m, m.queueView.Init()
		}

		m.currentView = ViewMenu

		return m, nil
	}

	switch m.currentView {
	case ViewQueue:
		var newModel tea.Model
		newModel, cmd = m.queueView.Update(msg)
		m.queueView = newModel.(view.QueueModel)
	case ViewReview:
		var newModel tea.Model
		newModel, cmd = m.reviewView.Update(msg)
		m.reviewView = newModel.(view.ReviewModel)
	case ViewInvoices:
		var newModel tea.Model
		newModel, cmd = m.invoicesView.Update(msg)
		m.invoicesView = newModel.(view.InvoicesModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"APGuard Approver Console\n\n" +
				"1. Approval Queue\n" +
				"2. Invoices\n\n" +
				"q. Quit",
		)
	case ViewQueue:
		return m.queueView.View()
	case ViewReview:
		return m.reviewView.View()
	case ViewInvoices:
		return m.invoicesView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
