package workflow

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/risk"
)

// Status of a workflow instance.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	// StatusPendingESign holds final approval until the e-sign collaborator
	// calls back.
	StatusPendingESign Status = "pending_esign"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	// StatusEscalated is transient: it immediately re-enters in_progress
	// routed at the escalation authority. It appears in the event stream,
	// never at rest.
	StatusEscalated Status = "escalated"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition may be applied.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// Decision an approver can take.
type Decision string

const (
	DecisionApprove  Decision = "approve"
	DecisionReject   Decision = "reject"
	DecisionEscalate Decision = "escalate"
)

// SystemApprover identifies engine-driven actions (timeout escalations) in
// the audit log.
const SystemApprover = "system:timeout"

var (
	ErrNotFound = errors.New("workflow not found")
	// ErrStaleAction marks an action aimed at a non-current level or a
	// terminal workflow. Distinct so callers can tell a lost race from a
	// bug and recover by re-fetching state.
	ErrStaleAction = errors.New("stale workflow action")
	// ErrInvalidAction marks a malformed action (unknown decision, missing
	// approver).
	ErrInvalidAction = errors.New("invalid workflow action")
)

// Action is one approver decision. The action log is append-only: records
// are never edited or deleted.
type Action struct {
	ID         uuid.UUID
	WorkflowID uuid.UUID
	Level      int
	ApproverID string
	Decision   Decision
	Comment    string
	CreatedAt  time.Time
}

// Workflow is a running approval instance: one invoice moving through one
// chain. It mutates only through engine transitions; the current level never
// decreases and terminal states are final.
type Workflow struct {
	ID           uuid.UUID
	InvoiceID    uuid.UUID
	Amount       int64
	Currency     string
	ChainName    string
	Chain        Chain
	CurrentLevel int
	Status       Status
	// Escalated marks the current level as rerouted to the escalation
	// authority after a timeout or an explicit escalate decision. Cleared
	// when the level advances.
	Escalated  bool
	Actions    []Action
	ExpiresAt  time.Time
	RiskAction risk.Action
	RiskScore  float64
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// ApprovalsAt counts distinct approvers who approved the given level.
func (w *Workflow) ApprovalsAt(level int) int {
	seen := map[string]struct{}{}

	for _, a := range w.Actions {
		if a.Level == level && a.Decision == DecisionApprove {
			seen[a.ApproverID] = struct{}{}
		}
	}

	return len(seen)
}

// CurrentLevelSpec returns the chain level the workflow is sitting at.
func (w *Workflow) CurrentLevelSpec() Level {
	return w.Chain.Levels[w.CurrentLevel]
}

// LastLevel reports whether the workflow is at the final rung.
func (w *Workflow) LastLevel() bool {
	return w.CurrentLevel == len(w.Chain.Levels)-1
}
