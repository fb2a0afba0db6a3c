package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/workflow"
)

type reviewState int

const (
	reviewStateLoading reviewState = iota
	reviewStateDecide
	reviewStateDone
)

// ReviewModel shows one workflow with its invoice and collects the
// approver's decision.
type ReviewModel struct {
	CommonModel
	engine   *workflow.Engine
	invoices *invoice.Service
	approver string

	wf  *workflow.Workflow
	inv *invoice.Invoice

	state reviewState
	form  *huh.Form

	formDecision string
	formComment  string

	status string
	err    error
}

func NewReviewModel(engine *workflow.Engine, invoices *invoice.Service, approver string, wf *workflow.Workflow) ReviewModel {
	return ReviewModel{
		engine:   engine,
		invoices: invoices,
		approver: approver,
		wf:       wf,
		state:    reviewStateLoading,
	}
}

func (m ReviewModel) Title() string { return "Review Workflow" }
func (m ReviewModel) ShortHelp() string {
	return "Navigate form | Esc: back"
}

func (m ReviewModel) Init() tea.Cmd {
	return m.loadInvoiceCmd()
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadInvoiceMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.inv = msg.inv
		m.state = reviewStateDecide
		m.buildForm()

		return m, m.form.Init()

	case actionAppliedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			m.state = reviewStateDecide
			m.buildForm()

			return m, m.form.Init()
		}

		m.wf = msg.wf
		m.state = reviewStateDone
		m.status = fmt.Sprintf("Recorded %s; workflow is now %s", m.formDecision, msg.wf.Status)

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc || (m.state == reviewStateDone && msg.String() == "enter") {
			return m, Back
		}
	}

	if m.state != reviewStateDecide || m.form == nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.applyCmd()
}

func (m *ReviewModel) buildForm() {
	m.formDecision = string(workflow.DecisionApprove)
	m.formComment = ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("decision").
				Title("Decision").
				Options(
					huh.NewOption("Approve", string(workflow.DecisionApprove)),
					huh.NewOption("Reject", string(workflow.DecisionReject)),
					huh.NewOption("Escalate", string(workflow.DecisionEscalate)),
				).
				Value(&m.formDecision),

			huh.NewInput().
				Key("comment").
				Title("Comment").
				Placeholder("optional for approve, required for reject").
				Value(&m.formComment).
				Validate(func(s string) error {
					if m.formDecision == string(workflow.DecisionReject) && strings.TrimSpace(s) == "" {
						return fmt.Errorf("a rejection needs a comment")
					}

					return nil
				}),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ReviewModel) View() string {
	if m.err != nil {
		return messagePanel(fmt.Sprintf("Error: %v", m.err))
	}

	if m.state == reviewStateLoading {
		return messagePanel("Loading invoice...")
	}

	detail := m.detailPanel()

	if m.state == reviewStateDone {
		return lipgloss.NewStyle().Padding(1).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				detail,
				lipgloss.NewStyle().PaddingTop(1).Render(m.status+"\n\nEnter: back to queue"),
			),
		)
	}

	formPanel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(54).
		Render(m.form.View())

	content := lipgloss.JoinHorizontal(lipgloss.Top, detail, formPanel)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ReviewModel) detailPanel() string {
	var sb strings.Builder

	level := fmt.Sprintf("%d", m.wf.CurrentLevel)
	if m.wf.CurrentLevel < len(m.wf.Chain.Levels) {
		spec := m.wf.Chain.Levels[m.wf.CurrentLevel]
		level = fmt.Sprintf("%s (%d approval(s) required)", spec.Name, spec.Required)
	}

	fmt.Fprintf(&sb, "Chain: %s\n", m.wf.ChainName)
	fmt.Fprintf(&sb, "Level: %s\n", level)
	fmt.Fprintf(&sb, "Risk: %.2f -> %s\n", m.wf.RiskScore, m.wf.RiskAction)
	fmt.Fprintf(&sb, "Expires: %s\n", FormatDate(m.wf.ExpiresAt))

	if m.wf.Escalated {
		sb.WriteString("Escalated to higher authority\n")
	}

	if m.inv != nil {
		fmt.Fprintf(&sb, "\nInvoice %s from %s\n", m.inv.Number, m.inv.VendorName)
		fmt.Fprintf(&sb, "Date: %s  Total: %s %s\n", FormatDate(m.inv.Date), FormatAmount(m.inv.Total), m.inv.Currency)

		for _, line := range m.inv.Lines {
			fmt.Fprintf(&sb, "  %-32s x%-4d %s\n", line.Description, line.Quantity, FormatAmount(line.UnitPrice))
		}
	}

	if len(m.wf.Actions) > 0 {
		sb.WriteString("\nHistory:\n")

		for _, a := range m.wf.Actions {
			fmt.Fprintf(&sb, "  L%d %s by %s\n", a.Level, a.Decision, a.ApproverID)
		}
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(sb.String())
}

type loadInvoiceMsg struct {
	inv *invoice.Invoice
	err error
}

func (m ReviewModel) loadInvoiceCmd() tea.Cmd {
	invoiceID := m.wf.InvoiceID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		inv, err := m.invoices.Get(ctx, invoiceID)

		return loadInvoiceMsg{inv: inv, err: err}
	}
}

type actionAppliedMsg struct {
	wf  *workflow.Workflow
	err error
}

func (m ReviewModel) applyCmd() tea.Cmd {
	params := workflow.ActionParams{
		Level:      m.wf.CurrentLevel,
		ApproverID: m.approver,
		Decision:   workflow.Decision(m.formDecision),
		Comment:    m.formComment,
	}
	workflowID := m.wf.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		wf, err := m.engine.ApplyAction(ctx, workflowID, params)

		return actionAppliedMsg{wf: wf, err: err}
	}
}
