package invoice

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/invoice"
)

type Handler struct {
	svc *invoice.Service
}

func NewHandler(svc *invoice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

type lineItemDTO struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
	Category    string `json:"category,omitempty"`
}

// createInvoiceRequest is the extraction collaborator's payload.
type createInvoiceRequest struct {
	ExtractionOK bool          `json:"extraction_ok"`
	Number       string        `json:"number"`
	VendorID     uuid.UUID     `json:"vendor_id"`
	VendorName   string        `json:"vendor_name"`
	Subtotal     int64         `json:"subtotal"`
	Tax          int64         `json:"tax"`
	Total        int64         `json:"total"`
	Currency     string        `json:"currency"`
	Date         time.Time     `json:"date"`
	DueDate      *time.Time    `json:"due_date,omitempty"`
	Lines        []lineItemDTO `json:"lines"`
	PONumberHint string        `json:"po_number_hint,omitempty"`
	ContentHash  string        `json:"content_hash,omitempty"`
	Supersedes   *uuid.UUID    `json:"supersedes,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lines := make([]invoice.LineItem, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, invoice.LineItem{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Total:       l.Total,
			Category:    l.Category,
		})
	}

	inv, err := h.svc.Create(r.Context(), invoice.CreateParams{
		ExtractionOK: req.ExtractionOK,
		Number:       req.Number,
		VendorID:     req.VendorID,
		VendorName:   req.VendorName,
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		Total:        req.Total,
		Currency:     req.Currency,
		Date:         req.Date,
		DueDate:      req.DueDate,
		Lines:        lines,
		PONumberHint: req.PONumberHint,
		ContentHash:  req.ContentHash,
		Supersedes:   req.Supersedes,
	})
	if err != nil {
		if errors.Is(err, invoice.ErrExtractionFailed) || errors.Is(err, invoice.ErrInvalid) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := invoice.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := invoice.Status(s)
		filter.Status = &status
	}

	if s := r.URL.Query().Get("vendor_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			filter.VendorID = &id
		}
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = &t
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = &t
		}
	}

	invs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(invs)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(inv)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
