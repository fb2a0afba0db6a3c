package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event is a workflow state change, published for audit logging, ERP export
// and notification dispatch. It carries enough context to be verified
// independently later.
type Event struct {
	WorkflowID uuid.UUID
	InvoiceID  uuid.UUID
	From       Status
	To         Status
	Level      int
	Actor      string
	Note       string
	At         time.Time
}

// Publisher receives workflow events. Implementations must be fast or
// buffer internally; the engine calls them inline after persisting.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// LogPublisher writes events to the structured log. It is the default sink
// and usually runs alongside the ERP exporter.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, evt Event) {
	slog.Info("workflow transition",
		"workflow_id", evt.WorkflowID,
		"invoice_id", evt.InvoiceID,
		"from", evt.From,
		"to", evt.To,
		"level", evt.Level,
		"actor", evt.Actor,
		"note", evt.Note,
	)
}

// MultiPublisher fans one event out to several sinks.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, evt Event) {
	for _, p := range m {
		p.Publish(ctx, evt)
	}
}
