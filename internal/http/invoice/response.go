package invoice

import (
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/invoice"
)

type invoiceResponse struct {
	ID           uuid.UUID      `json:"id"`
	Number       string         `json:"number"`
	VendorID     uuid.UUID      `json:"vendor_id"`
	VendorName   string         `json:"vendor_name"`
	Subtotal     int64          `json:"subtotal"`
	Tax          int64          `json:"tax"`
	Total        int64          `json:"total"`
	Currency     string         `json:"currency"`
	Date         time.Time      `json:"date"`
	DueDate      *time.Time     `json:"due_date,omitempty"`
	Lines        []lineItemDTO  `json:"lines"`
	PONumberHint string         `json:"po_number_hint,omitempty"`
	ContentHash  string         `json:"content_hash"`
	Status       invoice.Status `json:"status"`
	SupersededBy *uuid.UUID     `json:"superseded_by,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	lines := make([]lineItemDTO, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, lineItemDTO{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
			Category:    l.Category,
		})
	}

	return invoiceResponse{
		ID:           inv.ID,
		Number:       inv.Number,
		VendorID:     inv.VendorID,
		VendorName:   inv.VendorName,
		Subtotal:     inv.Subtotal,
		Tax:          inv.Tax,
		Total:        inv.Total,
		Currency:     inv.Currency,
		Date:         inv.Date,
		DueDate:      inv.DueDate,
		Lines:        lines,
		PONumberHint: inv.PONumberHint,
		ContentHash:  inv.ContentHash,
		Status:       inv.Status,
		SupersededBy: inv.SupersededBy,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
}

func toResponseList(invs []*invoice.Invoice) []invoiceResponse {
	resp := make([]invoiceResponse, len(invs))
	for i, inv := range invs {
		resp[i] = toResponse(inv)
	}

	return resp
}
