package purchaseorder

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/importer"
	"github.com/apguard/apguard/internal/po"
)

type Handler struct {
	importSvc *importer.Service
	poSvc     *po.Service
}

func NewHandler(importSvc *importer.Service, poSvc *po.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		poSvc:     poSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/import", h.importCSV)
	r.Get("/{number}", h.get)
}

type lineDTO struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Category    string `json:"category,omitempty"`
}

type orderResponse struct {
	ID         uuid.UUID `json:"id"`
	Number     string    `json:"number"`
	VendorID   uuid.UUID `json:"vendor_id"`
	VendorName string    `json:"vendor_name"`
	Lines      []lineDTO `json:"lines"`
	Total      int64     `json:"total"`
	Currency   string    `json:"currency"`
	OrderDate  time.Time `json:"order_date"`
	Status     po.Status `json:"status"`
}

type importSuccessResponse struct {
	Imported int             `json:"imported"`
	Orders   []orderResponse `json:"orders"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatERPCSV
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	orders, err := h.importSvc.Import(format, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.poSvc.CreateBatch(r.Context(), orders); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	resp := importSuccessResponse{
		Imported: len(orders),
		Orders:   toResponseList(orders),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	order, err := h.poSvc.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		if errors.Is(err, po.ErrNotFound) {
			http.Error(w, "purchase order not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(order)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toResponse(order *po.PurchaseOrder) orderResponse {
	lines := make([]lineDTO, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, lineDTO{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Category:    l.Category,
		})
	}

	return orderResponse{
		ID:         order.ID,
		Number:     order.Number,
		VendorID:   order.VendorID,
		VendorName: order.VendorName,
		Lines:      lines,
		Total:      order.Total,
		Currency:   order.Currency,
		OrderDate:  order.OrderDate,
		Status:     order.Status,
	}
}

func toResponseList(orders []*po.PurchaseOrder) []orderResponse {
	resp := make([]orderResponse, len(orders))
	for i, order := range orders {
		resp[i] = toResponse(order)
	}

	return resp
}
