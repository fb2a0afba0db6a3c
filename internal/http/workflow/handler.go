package workflow

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/evaluation"
	"github.com/apguard/apguard/internal/http/auth"
	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/workflow"
)

type Handler struct {
	engine   *workflow.Engine
	evalSvc  *evaluation.Service
	invoices *invoice.Service
}

func NewHandler(engine *workflow.Engine, evalSvc *evaluation.Service, invoices *invoice.Service) *Handler {
	return &Handler{
		engine:   engine,
		evalSvc:  evalSvc,
		invoices: invoices,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.submit)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/actions", h.action)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/check-timeout", h.checkTimeout)
	r.Post("/{id}/esign", h.esignCallback)
}

type submitRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
}

// submit evaluates the invoice and opens an approval workflow on the chain
// the risk verdict selects.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.evalSvc.Evaluate(r.Context(), req.InvoiceID, time.Now())
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	wf, err := h.engine.Submit(r.Context(), result.Invoice, result.Assessment)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.invoices.UpdateStatus(r.Context(), req.InvoiceID, invoice.StatusInApproval); err != nil {
		slog.Error("updating invoice status", "invoice_id", req.InvoiceID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(wf)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := workflow.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := workflow.Status(s)
		filter.Status = &status
	}

	if s := r.URL.Query().Get("invoice_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			filter.InvoiceID = &id
		}
	}

	wfs, err := h.engine.List(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(wfs)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	wf, err := h.engine.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, workflow.ErrNotFound) {
			http.Error(w, "workflow not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(wf)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type actionRequest struct {
	Level    int               `json:"level"`
	Decision workflow.Decision `json:"decision"`
	Comment  string            `json:"comment,omitempty"`
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	approver := auth.ApproverID(r.Context())
	if approver == "" {
		http.Error(w, "approver identity required", http.StatusUnauthorized)
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wf, err := h.engine.ApplyAction(r.Context(), id, workflow.ActionParams{
		Level:      req.Level,
		ApproverID: approver,
		Decision:   req.Decision,
		Comment:    req.Comment,
	})
	if err != nil {
		writeActionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(wf)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	approver := auth.ApproverID(r.Context())
	if approver == "" {
		http.Error(w, "approver identity required", http.StatusUnauthorized)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wf, err := h.engine.Cancel(r.Context(), id, approver, req.Reason)
	if err != nil {
		writeActionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(wf)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// checkTimeout applies the timeout policy on demand. The periodic sweep
// covers normal operation; this endpoint lets an external scheduler drive
// individual workflows. Idempotent.
func (h *Handler) checkTimeout(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	wf, err := h.engine.CheckTimeout(r.Context(), id, time.Now())
	if err != nil {
		writeActionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(wf)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type esignCallbackRequest struct {
	Signed bool   `json:"signed"`
	Signer string `json:"signer"`
}

// esignCallback consumes the e-sign collaborator's completion webhook.
func (h *Handler) esignCallback(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req esignCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wf, err := h.engine.CompleteESign(r.Context(), id, req.Signed, req.Signer)
	if err != nil {
		writeActionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(wf)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		http.Error(w, "workflow not found", http.StatusNotFound)
	case errors.Is(err, workflow.ErrStaleAction):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, workflow.ErrInvalidAction):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
