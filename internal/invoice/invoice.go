package invoice

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an invoice.
type Status string

const (
	StatusReceived   Status = "received"
	StatusInApproval Status = "in_approval"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusSuperseded Status = "superseded"
)

var (
	ErrNotFound = errors.New("invoice not found")
	// ErrInvalid wraps field-level validation failures. Invalid invoices are
	// rejected at entry; no matching or risk scoring is attempted.
	ErrInvalid = errors.New("invalid invoice")
	// ErrExtractionFailed is returned when the extraction collaborator
	// reported failure. The upload is rejected outright; nothing is stored.
	ErrExtractionFailed = errors.New("extraction failed")
)

// LineItem is a single extracted invoice line. Amounts are minor currency
// units (cents).
type LineItem struct {
	Description string
	Quantity    int64
	UnitPrice   int64
	Total       int64
	Category    string
}

// Invoice is the immutable snapshot produced by the extraction collaborator.
// It is created once per upload and never edited; reprocessing supersedes the
// old row instead of mutating it.
type Invoice struct {
	ID           uuid.UUID
	Number       string
	VendorID     uuid.UUID
	VendorName   string
	Subtotal     int64
	Tax          int64
	Total        int64
	Currency     string
	Date         time.Time
	DueDate      *time.Time
	Lines        []LineItem
	PONumberHint string
	ContentHash  string
	Status       Status
	SupersededBy *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// Validate enforces the entry contract: required fields must be present
// before any downstream processing runs.
func (inv *Invoice) Validate() error {
	var problems []string

	if strings.TrimSpace(inv.Number) == "" {
		problems = append(problems, "number is required")
	}

	if inv.VendorID == uuid.Nil {
		problems = append(problems, "vendor id is required")
	}

	if inv.Total <= 0 {
		problems = append(problems, "total must be positive")
	}

	if inv.Date.IsZero() {
		problems = append(problems, "date is required")
	}

	for i, line := range inv.Lines {
		if line.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("line %d: quantity must be positive", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}

	return nil
}

// Fingerprint computes a deterministic content hash over the extracted
// fields. Extraction normally supplies its own document hash; this is the
// fallback when it does not.
func Fingerprint(inv *Invoice) string {
	h := sha256.New()

	fmt.Fprintf(h, "%s|%s|%d|%d|%d|%s|%s\n",
		inv.Number, inv.VendorID, inv.Subtotal, inv.Tax, inv.Total,
		inv.Currency, inv.Date.Format(time.DateOnly))

	for _, line := range inv.Lines {
		fmt.Fprintf(h, "%s|%d|%d|%d\n", line.Description, line.Quantity, line.UnitPrice, line.Total)
	}

	return hex.EncodeToString(h.Sum(nil))
}
