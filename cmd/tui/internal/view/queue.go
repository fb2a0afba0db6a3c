package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/apguard/apguard/internal/workflow"
)

// OpenReviewMsg asks the root model to open the review screen for one
// workflow.
type OpenReviewMsg struct {
	Workflow *workflow.Workflow
}

// QueueModel lists workflows awaiting approval.
type QueueModel struct {
	CommonModel
	engine *workflow.Engine

	table table.Model
	wfs   []*workflow.Workflow

	statusFilterIdx int
	filter          workflow.ListFilter

	loading bool
	err     error
}

func NewQueueModel(engine *workflow.Engine) QueueModel {
	columns := []table.Column{
		{Title: "Created", Width: 12},
		{Title: "Status", Width: 14},
		{Title: "Chain", Width: 14},
		{Title: "Level", Width: 16},
		{Title: "Amount", Width: 12},
		{Title: "Risk", Width: 12},
		{Title: "Expires", Width: 12},
	}

	inProgress := workflow.StatusInProgress

	return QueueModel{
		engine: engine,
		table:  newListTable(columns),
		filter: workflow.ListFilter{Status: &inProgress},
	}
}

func (m QueueModel) Title() string { return "Approval Queue" }
func (m QueueModel) ShortHelp() string {
	return "Esc: back | Enter: review | s: status filter | r: refresh"
}

func (m QueueModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m QueueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadQueueMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.wfs = msg.wfs
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
			m.statusFilterIdx = (m.statusFilterIdx + 1) % 4
			m.applyFilter()

			return m, m.loadCmd()
		case "enter":
			idx := m.table.Cursor()
			if idx >= 0 && idx < len(m.wfs) {
				wf := m.wfs[idx]
				return m, func() tea.Msg { return OpenReviewMsg{Workflow: wf} }
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m QueueModel) View() string {
	if m.loading {
		return messagePanel("Loading workflows...")
	}

	if m.err != nil {
		return messagePanel(fmt.Sprintf("Error: %v", m.err))
	}

	statusLabels := []string{"In Progress", "Pending E-Sign", "Approved", "All"}

	return listView(statusLabels[m.statusFilterIdx], m.table)
}

func (m *QueueModel) applyFilter() {
	var status workflow.Status

	switch m.statusFilterIdx {
	case 0:
		status = workflow.StatusInProgress
	case 1:
		status = workflow.StatusPendingESign
	case 2:
		status = workflow.StatusApproved
	default:
		m.filter.Status = nil
		return
	}

	m.filter.Status = &status
}

func (m *QueueModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.wfs))

	for _, wf := range m.wfs {
		level := fmt.Sprintf("%d", wf.CurrentLevel)
		if wf.CurrentLevel < len(wf.Chain.Levels) {
			level = wf.Chain.Levels[wf.CurrentLevel].Name
		}

		if wf.Escalated {
			level += " (escalated)"
		}

		rows = append(rows, table.Row{
			FormatDate(wf.CreatedAt),
			string(wf.Status),
			wf.ChainName,
			level,
			FormatAmount(wf.Amount),
			fmt.Sprintf("%.2f %s", wf.RiskScore, wf.RiskAction),
			FormatDate(wf.ExpiresAt),
		})
	}

	m.table.SetRows(rows)
}

type loadQueueMsg struct {
	wfs []*workflow.Workflow
	err error
}

func (m QueueModel) loadCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		wfs, err := m.engine.List(ctx, filter)

		return loadQueueMsg{wfs: wfs, err: err}
	}
}
