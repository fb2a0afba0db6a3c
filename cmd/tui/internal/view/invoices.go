package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/apguard/apguard/internal/invoice"
)

// InvoicesModel lists received invoices and their lifecycle state.
type InvoicesModel struct {
	CommonModel
	invoices *invoice.Service

	table table.Model
	invs  []*invoice.Invoice

	statusFilterIdx int
	filter          invoice.ListFilter

	loading bool
	err     error
}

func NewInvoicesModel(invoices *invoice.Service) InvoicesModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Number", Width: 16},
		{Title: "Vendor", Width: 28},
		{Title: "Total", Width: 12},
		{Title: "Status", Width: 14},
	}

	return InvoicesModel{
		invoices: invoices,
		table:    newListTable(columns),
	}
}

func (m InvoicesModel) Title() string { return "Invoices" }
func (m InvoicesModel) ShortHelp() string {
	return "Esc: back | s: status filter | r: refresh"
}

func (m InvoicesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadInvoicesMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.invs = msg.invs
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % 5
			m.applyFilter()

			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m InvoicesModel) View() string {
	if m.loading {
		return messagePanel("Loading invoices...")
	}

	if m.err != nil {
		return messagePanel(fmt.Sprintf("Error: %v", m.err))
	}

	statusLabels := []string{"All", "Received", "In Approval", "Approved", "Rejected"}

	return listView(statusLabels[m.statusFilterIdx], m.table)
}

func (m *InvoicesModel) applyFilter() {
	var status invoice.Status

	switch m.statusFilterIdx {
	case 1:
		status = invoice.StatusReceived
	case 2:
		status = invoice.StatusInApproval
	case 3:
		status = invoice.StatusApproved
	case 4:
		status = invoice.StatusRejected
	default:
		m.filter.Status = nil
		return
	}

	m.filter.Status = &status
}

func (m *InvoicesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.invs))

	for _, inv := range m.invs {
		rows = append(rows, table.Row{
			FormatDate(inv.Date),
			inv.Number,
			inv.VendorName,
			FormatAmount(inv.Total),
			string(inv.Status),
		})
	}

	m.table.SetRows(rows)
}

type loadInvoicesMsg struct {
	invs []*invoice.Invoice
	err  error
}

func (m InvoicesModel) loadCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		invs, err := m.invoices.List(ctx, filter)

		return loadInvoicesMsg{invs: invs, err: err}
	}
}
