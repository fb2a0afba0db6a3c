// Package export pushes workflow outcomes back to the ERP. Invoice status
// tracks the workflow's terminal state, and fully approved invoices are
// released for payment through the ERP's HTTP API.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/workflow"
)

// Exporter is a workflow event sink. Non-terminal transitions are ignored.
type Exporter struct {
	invoices *invoice.Service
	client   *http.Client
	baseURL  string
	apiToken string
}

func NewExporter(invoices *invoice.Service, baseURL, apiToken string) *Exporter {
	return &Exporter{
		invoices: invoices,
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  baseURL,
		apiToken: apiToken,
	}
}

// Publish implements workflow.Publisher. Failures are logged, never
// propagated: the workflow transition already committed, and the ERP side
// is reconciled by the next sweep or a manual retry.
func (e *Exporter) Publish(ctx context.Context, evt workflow.Event) {
	switch evt.To {
	case workflow.StatusApproved:
		if err := e.invoices.UpdateStatus(ctx, evt.InvoiceID, invoice.StatusApproved); err != nil {
			slog.Error("updating invoice status", "invoice_id", evt.InvoiceID, "error", err)
		}

		if err := e.releasePayment(ctx, evt); err != nil {
			slog.Error("releasing payment", "invoice_id", evt.InvoiceID, "error", err)
		}

	case workflow.StatusRejected, workflow.StatusExpired:
		if err := e.invoices.UpdateStatus(ctx, evt.InvoiceID, invoice.StatusRejected); err != nil {
			slog.Error("updating invoice status", "invoice_id", evt.InvoiceID, "error", err)
		}
	}
}

type releaseRequest struct {
	InvoiceID  uuid.UUID `json:"invoice_id"`
	WorkflowID uuid.UUID `json:"workflow_id"`
	ApprovedBy string    `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
}

func (e *Exporter) releasePayment(ctx context.Context, evt workflow.Event) error {
	if e.baseURL == "" {
		return nil
	}

	body, err := json.Marshal(releaseRequest{
		InvoiceID:  evt.InvoiceID,
		WorkflowID: evt.WorkflowID,
		ApprovedBy: evt.Actor,
		ApprovedAt: evt.At,
	})
	if err != nil {
		return fmt.Errorf("encoding release request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/payments/release", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if e.apiToken != "" {
		req.Header.Set("Authorization", "Token "+e.apiToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	return nil
}
