package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/risk"
)

//go:generate mockgen -source=engine.go -destination=engine_mock.go -package=workflow
type Repository interface {
	CreateWorkflow(ctx context.Context, w *Workflow) error
	// GetWorkflow loads the workflow with its full action log.
	GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error)
	UpdateWorkflow(ctx context.Context, w *Workflow) error
	// AppendAction adds to the append-only audit log.
	AppendAction(ctx context.Context, a *Action) error
	ListWorkflows(ctx context.Context, filter ListFilter) ([]*Workflow, error)
	// ListExpired returns ids of in-progress workflows whose expiry passed.
	ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// ESigner is the external e-sign collaborator. RequestSignature is
// fire-and-forget; completion arrives later through CompleteESign.
type ESigner interface {
	RequestSignature(ctx context.Context, workflowID, invoiceID uuid.UUID, amount int64) error
}

type ListFilter struct {
	Status    *Status
	InvoiceID *uuid.UUID
}

// Engine drives approval workflows through their state machine. Transitions
// against the same workflow are serialized by a per-workflow lock, so an
// approval can never race a timeout into a double advance or two terminal
// states.
type Engine struct {
	repo   Repository
	chains *ChainSet
	pub    Publisher
	esign  ESigner
	now    func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the engine clock. Tests use it; production keeps
// time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(repo Repository, chains *ChainSet, pub Publisher, esign ESigner, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		chains: chains,
		pub:    pub,
		esign:  esign,
		now:    time.Now,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// lockFor returns the mutex serializing transitions for one workflow.
func (e *Engine) lockFor(id uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}

	return l
}

// Submit creates a workflow for an assessed invoice at level 0 and starts
// the first level's clock. Chain selection is by amount, overridden to the
// strict chain when risk recommended escalation or rejection.
func (e *Engine) Submit(ctx context.Context, inv *invoice.Invoice, assessment *risk.Assessment) (*Workflow, error) {
	if assessment == nil {
		return nil, fmt.Errorf("%w: assessment is required", ErrInvalidAction)
	}

	chain := e.chains.Select(inv.Total, assessment.Action)
	now := e.now()

	w := &Workflow{
		InvoiceID:    inv.ID,
		Amount:       inv.Total,
		Currency:     inv.Currency,
		ChainName:    chain.Name,
		Chain:        chain,
		CurrentLevel: 0,
		Status:       StatusPending,
		ExpiresAt:    now.Add(chain.Levels[0].Timeout),
		RiskAction:   assessment.Action,
		RiskScore:    assessment.Score,
		CreatedAt:    now,
	}

	// PENDING exists only between creation and the first level opening.
	w.Status = StatusInProgress

	if err := e.repo.CreateWorkflow(ctx, w); err != nil {
		return nil, fmt.Errorf("creating workflow: %w", err)
	}

	e.pub.Publish(ctx, Event{
		WorkflowID: w.ID,
		InvoiceID:  w.InvoiceID,
		From:       StatusPending,
		To:         StatusInProgress,
		Level:      0,
		Note:       fmt.Sprintf("submitted on chain %s", chain.Name),
		At:         now,
	})

	return w, nil
}

// ActionParams is one approver decision aimed at a specific level.
type ActionParams struct {
	Level      int
	ApproverID string
	Decision   Decision
	Comment    string
}

func (p ActionParams) validate() error {
	if p.ApproverID == "" {
		return fmt.Errorf("%w: approver id is required", ErrInvalidAction)
	}

	switch p.Decision {
	case DecisionApprove, DecisionReject, DecisionEscalate:
		return nil
	default:
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidAction, p.Decision)
	}
}

// ApplyAction applies one approver decision. Only valid while the workflow
// is in progress and the action targets the current level; anything else is
// a stale-action error so callers can distinguish races from bugs.
func (e *Engine) ApplyAction(ctx context.Context, workflowID uuid.UUID, params ActionParams) (*Workflow, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	l := e.lockFor(workflowID)
	l.Lock()
	defer l.Unlock()

	w, err := e.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if w.Status.Terminal() {
		return nil, fmt.Errorf("%w: workflow %s is %s", ErrStaleAction, w.ID, w.Status)
	}

	if w.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: workflow %s is %s, not accepting actions", ErrStaleAction, w.ID, w.Status)
	}

	if params.Level != w.CurrentLevel {
		return nil, fmt.Errorf("%w: action targets level %d, current level is %d",
			ErrStaleAction, params.Level, w.CurrentLevel)
	}

	now := e.now()

	action := &Action{
		WorkflowID: w.ID,
		Level:      w.CurrentLevel,
		ApproverID: params.ApproverID,
		Decision:   params.Decision,
		Comment:    params.Comment,
		CreatedAt:  now,
	}

	// Audit record first; the log must contain the action even if the
	// transition below fails and is retried.
	if err := e.repo.AppendAction(ctx, action); err != nil {
		return nil, fmt.Errorf("recording action: %w", err)
	}

	w.Actions = append(w.Actions, *action)

	switch params.Decision {
	case DecisionReject:
		// One rejection anywhere is terminal, sequential or parallel.
		e.transition(ctx, w, StatusRejected, params.ApproverID, "rejected", now)

	case DecisionEscalate:
		e.escalate(ctx, w, params.ApproverID, "escalated by approver", now)

	case DecisionApprove:
		if w.ApprovalsAt(w.CurrentLevel) >= w.CurrentLevelSpec().Required {
			e.completeLevel(ctx, w, params.ApproverID, now)
		}
	}

	if err := e.repo.UpdateWorkflow(ctx, w); err != nil {
		return nil, fmt.Errorf("updating workflow: %w", err)
	}

	return w, nil
}

// completeLevel advances past a fully approved level, or finishes the
// workflow when it was the last one. Final approval detours through the
// e-sign pending state when the chain demands a signature.
func (e *Engine) completeLevel(ctx context.Context, w *Workflow, actor string, now time.Time) {
	if !w.LastLevel() {
		w.CurrentLevel++
		w.Escalated = false
		w.ExpiresAt = now.Add(w.CurrentLevelSpec().Timeout)

		e.pub.Publish(ctx, Event{
			WorkflowID: w.ID,
			InvoiceID:  w.InvoiceID,
			From:       StatusInProgress,
			To:         StatusInProgress,
			Level:      w.CurrentLevel,
			Actor:      actor,
			Note:       fmt.Sprintf("advanced to level %d (%s)", w.CurrentLevel, w.CurrentLevelSpec().Name),
			At:         now,
		})

		return
	}

	if w.Chain.RequiresESign(w.Amount) {
		e.transition(ctx, w, StatusPendingESign, actor, "awaiting e-signature", now)

		if e.esign != nil {
			if err := e.esign.RequestSignature(ctx, w.ID, w.InvoiceID, w.Amount); err != nil {
				// The signature request is retried by the collaborator's
				// own delivery; the workflow stays pending either way.
				slog.Error("e-sign request failed", "workflow_id", w.ID, "error", err)
			}
		}

		return
	}

	e.transition(ctx, w, StatusApproved, actor, "all levels approved", now)
}

// escalate performs the ESCALATED self-loop: the status passes through
// escalated and immediately re-enters in progress with the current level
// rerouted to the escalation authority. The level pointer does not move
// until that authority acts, so it never decreases.
func (e *Engine) escalate(ctx context.Context, w *Workflow, actor, note string, now time.Time) {
	from := w.Status
	w.Status = StatusEscalated

	e.pub.Publish(ctx, Event{
		WorkflowID: w.ID,
		InvoiceID:  w.InvoiceID,
		From:       from,
		To:         StatusEscalated,
		Level:      w.CurrentLevel,
		Actor:      actor,
		Note:       note,
		At:         now,
	})

	w.Status = StatusInProgress
	w.Escalated = true
	w.ExpiresAt = now.Add(w.CurrentLevelSpec().Timeout)

	e.pub.Publish(ctx, Event{
		WorkflowID: w.ID,
		InvoiceID:  w.InvoiceID,
		From:       StatusEscalated,
		To:         StatusInProgress,
		Level:      w.CurrentLevel,
		Actor:      actor,
		Note:       "rerouted to escalation authority",
		At:         now,
	})
}

func (e *Engine) transition(ctx context.Context, w *Workflow, to Status, actor, note string, now time.Time) {
	from := w.Status
	w.Status = to

	e.pub.Publish(ctx, Event{
		WorkflowID: w.ID,
		InvoiceID:  w.InvoiceID,
		From:       from,
		To:         to,
		Level:      w.CurrentLevel,
		Actor:      actor,
		Note:       note,
		At:         now,
	})
}

// CheckTimeout applies the chain's timeout policy when the current level's
// clock has run out. It is idempotent: a check that lost the race to a
// concurrent approval, or that runs again after an escalation reset the
// clock, observes a workflow that is not overdue and becomes a no-op.
func (e *Engine) CheckTimeout(ctx context.Context, workflowID uuid.UUID, now time.Time) (*Workflow, error) {
	l := e.lockFor(workflowID)
	l.Lock()
	defer l.Unlock()

	w, err := e.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if w.Status != StatusInProgress || !now.After(w.ExpiresAt) {
		return w, nil
	}

	policy := w.Chain.OnTimeout
	if policy == "" {
		policy = TimeoutEscalate
	}

	// A level that already burned its escalation and timed out again does
	// not loop forever; it expires.
	if policy == TimeoutEscalate && w.Escalated {
		policy = TimeoutExpire
	}

	switch policy {
	case TimeoutEscalate:
		action := &Action{
			WorkflowID: w.ID,
			Level:      w.CurrentLevel,
			ApproverID: SystemApprover,
			Decision:   DecisionEscalate,
			CreatedAt:  now,
		}

		if err := e.repo.AppendAction(ctx, action); err != nil {
			return nil, fmt.Errorf("recording timeout action: %w", err)
		}

		w.Actions = append(w.Actions, *action)

		e.escalate(ctx, w, SystemApprover, fmt.Sprintf("level %d timed out", w.CurrentLevel), now)

	case TimeoutExpire:
		e.transition(ctx, w, StatusExpired, SystemApprover, "level timed out", now)
	}

	if err := e.repo.UpdateWorkflow(ctx, w); err != nil {
		return nil, fmt.Errorf("updating workflow: %w", err)
	}

	return w, nil
}

// CompleteESign consumes the e-sign collaborator's callback. A declined or
// failed signature rejects the workflow; a completed one finalizes approval.
func (e *Engine) CompleteESign(ctx context.Context, workflowID uuid.UUID, signed bool, signer string) (*Workflow, error) {
	l := e.lockFor(workflowID)
	l.Lock()
	defer l.Unlock()

	w, err := e.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if w.Status != StatusPendingESign {
		return nil, fmt.Errorf("%w: workflow %s is %s, not awaiting e-sign", ErrStaleAction, w.ID, w.Status)
	}

	now := e.now()

	if signed {
		e.transition(ctx, w, StatusApproved, signer, "e-signature completed", now)
	} else {
		e.transition(ctx, w, StatusRejected, signer, "e-signature declined", now)
	}

	if err := e.repo.UpdateWorkflow(ctx, w); err != nil {
		return nil, fmt.Errorf("updating workflow: %w", err)
	}

	return w, nil
}

// Cancel withdraws an in-flight workflow, typically because the invoice was
// superseded.
func (e *Engine) Cancel(ctx context.Context, workflowID uuid.UUID, actor, reason string) (*Workflow, error) {
	l := e.lockFor(workflowID)
	l.Lock()
	defer l.Unlock()

	w, err := e.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if w.Status.Terminal() {
		return nil, fmt.Errorf("%w: workflow %s is %s", ErrStaleAction, w.ID, w.Status)
	}

	e.transition(ctx, w, StatusCancelled, actor, reason, e.now())

	if err := e.repo.UpdateWorkflow(ctx, w); err != nil {
		return nil, fmt.Errorf("updating workflow: %w", err)
	}

	return w, nil
}

// Get returns the workflow with its action log.
func (e *Engine) Get(ctx context.Context, workflowID uuid.UUID) (*Workflow, error) {
	return e.repo.GetWorkflow(ctx, workflowID)
}

// List returns workflows matching the filter.
func (e *Engine) List(ctx context.Context, filter ListFilter) ([]*Workflow, error) {
	return e.repo.ListWorkflows(ctx, filter)
}

// SweepTimeouts runs CheckTimeout over every overdue workflow. The external
// scheduler calls this periodically; redundant sweeps are harmless because
// each check is idempotent.
func (e *Engine) SweepTimeouts(ctx context.Context, now time.Time) (int, error) {
	ids, err := e.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing expired workflows: %w", err)
	}

	transitioned := 0

	for _, id := range ids {
		if _, err := e.CheckTimeout(ctx, id, now); err != nil {
			slog.Error("timeout check failed", "workflow_id", id, "error", err)
			continue
		}

		transitioned++
	}

	return transitioned, nil
}
