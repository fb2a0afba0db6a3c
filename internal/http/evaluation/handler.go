package evaluation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/evaluation"
	"github.com/apguard/apguard/internal/invoice"
)

type Handler struct {
	svc *evaluation.Service
}

func NewHandler(svc *evaluation.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/{invoice_id}", h.evaluate)
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "invoice_id"))
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Evaluate(r.Context(), id, time.Now())
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			http.Error(w, "invoice not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(result)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
