package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/risk"
	"github.com/apguard/apguard/internal/workflow"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectWorkflowColumns = `
	id, invoice_id, amount, currency, chain_name, chain, current_level,
	status, escalated, expires_at, risk_action, risk_score, created_at, updated_at
`

func scanWorkflow(s scanner) (*workflow.Workflow, error) {
	var w workflow.Workflow

	var statusStr, riskActionStr string

	var chainJSON []byte

	if err := s.Scan(
		&w.ID, &w.InvoiceID, &w.Amount, &w.Currency, &w.ChainName,
		&chainJSON, &w.CurrentLevel, &statusStr, &w.Escalated,
		&w.ExpiresAt, &riskActionStr, &w.RiskScore, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}

	w.Status = workflow.Status(statusStr)
	w.RiskAction = risk.Action(riskActionStr)

	// The chain is stored with the workflow so later edits to configured
	// chains never reshape workflows already in flight.
	if err := json.Unmarshal(chainJSON, &w.Chain); err != nil {
		return nil, fmt.Errorf("decoding chain: %w", err)
	}

	return &w, nil
}

func (s *Store) CreateWorkflow(ctx context.Context, w *workflow.Workflow) error {
	chainJSON, err := json.Marshal(w.Chain)
	if err != nil {
		return fmt.Errorf("encoding chain: %w", err)
	}

	query := `
		INSERT INTO workflows (invoice_id, amount, currency, chain_name, chain,
			current_level, status, escalated, expires_at, risk_action, risk_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		w.InvoiceID, w.Amount, w.Currency, w.ChainName, chainJSON,
		w.CurrentLevel, w.Status, w.Escalated, w.ExpiresAt,
		string(w.RiskAction), w.RiskScore,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating workflow: %w", err)
	}

	return nil
}

func (s *Store) GetWorkflow(ctx context.Context, id uuid.UUID) (*workflow.Workflow, error) {
	query := `SELECT ` + selectWorkflowColumns + ` FROM workflows WHERE id = $1`

	w, err := scanWorkflow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, workflow.ErrNotFound
		}

		return nil, fmt.Errorf("getting workflow: %w", err)
	}

	actions, err := s.listActions(ctx, id)
	if err != nil {
		return nil, err
	}

	w.Actions = actions

	return w, nil
}

func (s *Store) UpdateWorkflow(ctx context.Context, w *workflow.Workflow) error {
	query := `
		UPDATE workflows
		SET current_level = $2, status = $3, escalated = $4, expires_at = $5,
			updated_at = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query,
		w.ID, w.CurrentLevel, w.Status, w.Escalated, w.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("updating workflow: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return workflow.ErrNotFound
	}

	return nil
}

func (s *Store) AppendAction(ctx context.Context, a *workflow.Action) error {
	query := `
		INSERT INTO workflow_actions (workflow_id, level, approver_id, decision, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		a.WorkflowID, a.Level, a.ApproverID, a.Decision, a.Comment, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("appending workflow action: %w", err)
	}

	return nil
}

func (s *Store) ListWorkflows(ctx context.Context, filter workflow.ListFilter) ([]*workflow.Workflow, error) {
	query := `SELECT ` + selectWorkflowColumns + ` FROM workflows WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.InvoiceID != nil {
		query += fmt.Sprintf(" AND invoice_id = $%d", argIdx)
		args = append(args, *filter.InvoiceID)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying workflows: %w", err)
	}
	defer rows.Close()

	var ws []*workflow.Workflow

	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workflow: %w", err)
		}

		ws = append(ws, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workflows: %w", err)
	}

	return ws, nil
}

func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM workflows
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, workflow.StatusInProgress, now)
	if err != nil {
		return nil, fmt.Errorf("querying expired workflows: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning workflow id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expired workflows: %w", err)
	}

	return ids, nil
}

func (s *Store) listActions(ctx context.Context, workflowID uuid.UUID) ([]workflow.Action, error) {
	query := `
		SELECT id, workflow_id, level, approver_id, decision, comment, created_at
		FROM workflow_actions
		WHERE workflow_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("querying workflow actions: %w", err)
	}
	defer rows.Close()

	var actions []workflow.Action

	for rows.Next() {
		var a workflow.Action

		var decisionStr string

		if err := rows.Scan(
			&a.ID, &a.WorkflowID, &a.Level, &a.ApproverID,
			&decisionStr, &a.Comment, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning workflow action: %w", err)
		}

		a.Decision = workflow.Decision(decisionStr)

		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workflow actions: %w", err)
	}

	return actions, nil
}
