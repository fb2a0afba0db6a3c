package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/risk"
	"github.com/apguard/apguard/internal/workflow"
)

type actionDTO struct {
	Level      int               `json:"level"`
	ApproverID string            `json:"approver_id"`
	Decision   workflow.Decision `json:"decision"`
	Comment    string            `json:"comment,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type workflowResponse struct {
	ID           uuid.UUID       `json:"id"`
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	Amount       int64           `json:"amount"`
	Currency     string          `json:"currency"`
	ChainName    string          `json:"chain_name"`
	CurrentLevel int             `json:"current_level"`
	LevelName    string          `json:"level_name,omitempty"`
	Status       workflow.Status `json:"status"`
	Escalated    bool            `json:"escalated"`
	Actions      []actionDTO     `json:"actions"`
	ExpiresAt    time.Time       `json:"expires_at"`
	RiskAction   risk.Action     `json:"risk_action"`
	RiskScore    float64         `json:"risk_score"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

func toResponse(wf *workflow.Workflow) workflowResponse {
	actions := make([]actionDTO, 0, len(wf.Actions))
	for _, a := range wf.Actions {
		actions = append(actions, actionDTO{
			Level:      a.Level,
			ApproverID: a.ApproverID,
			Decision:   a.Decision,
			Comment:    a.Comment,
			CreatedAt:  a.CreatedAt,
		})
	}

	resp := workflowResponse{
		ID:           wf.ID,
		InvoiceID:    wf.InvoiceID,
		Amount:       wf.Amount,
		Currency:     wf.Currency,
		ChainName:    wf.ChainName,
		CurrentLevel: wf.CurrentLevel,
		Status:       wf.Status,
		Escalated:    wf.Escalated,
		Actions:      actions,
		ExpiresAt:    wf.ExpiresAt,
		RiskAction:   wf.RiskAction,
		RiskScore:    wf.RiskScore,
		CreatedAt:    wf.CreatedAt,
		UpdatedAt:    wf.UpdatedAt,
	}

	if wf.CurrentLevel < len(wf.Chain.Levels) {
		resp.LevelName = wf.Chain.Levels[wf.CurrentLevel].Name
	}

	return resp
}

func toResponseList(wfs []*workflow.Workflow) []workflowResponse {
	resp := make([]workflowResponse, len(wfs))
	for i, wf := range wfs {
		resp[i] = toResponse(wf)
	}

	return resp
}
