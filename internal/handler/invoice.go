package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tapeo-pos/server/internal/invoice"
	"github.com/tapeo-pos/server/internal/scan"
)

type InvoiceHandler struct {
	svc      invoice.Service
	scanner  *scan.Service
	validate *validator.Validate
	now      func() time.Time
}

func NewInvoiceHandler(svc invoice.Service, scanner *scan.Service) *InvoiceHandler {
	return &InvoiceHandler{
		svc:      svc,
		scanner:  scanner,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (h *InvoiceHandler) RegisterRoutes(router chi.Router) {
	router.Get("/invoices", h.handleList)
	router.Post("/invoices", h.handleCreate)
	router.Get("/invoices/summary", h.handleSummary)
	router.Post("/invoices/scan", h.handleScan)
	router.Get("/invoices/{id}", h.handleGet)
	router.Patch("/invoices/{id}", h.handleUpdate)
	router.Delete("/invoices/{id}", h.handleDelete)
}

type invoiceItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"required"`
}

type invoiceRequest struct {
	Date     time.Time            `json:"date" validate:"required"`
	Supplier string               `json:"supplier" validate:"required"`
	Category string               `json:"category" validate:"required"`
	Items    []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *InvoiceHandler) decodeInvoice(w http.ResponseWriter, r *http.Request) (invoice.Input, bool) {
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return invoice.Input{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return invoice.Input{}, false
	}

	input := invoice.Input{
		Date:     req.Date,
		Supplier: req.Supplier,
		Category: invoice.Category(req.Category),
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, invoice.ItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return input, true
}

func (h *InvoiceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInvoice(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.Create(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeQuery(w, r)
	if !ok {
		return
	}

	list, err := h.svc.List(r.Context(), from, to)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *InvoiceHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	input, ok := h.decodeInvoice(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeQuery(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(r.Context(), from, to)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *InvoiceHandler) handleScan(w http.ResponseWriter, r *http.Request) {
	if !h.scanner.Enabled() {
		respondWithServiceError(w, r, scan.ErrNotConfigured)
		return
	}

	path, err := saveUpload(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "image upload is required")
		return
	}
	defer os.Remove(path)

	suggestion, err := h.scanner.ScanInvoice(r.Context(), path)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, suggestion)
}

// rangeQuery defaults to the current month when from/to are absent.
func (h *InvoiceHandler) rangeQuery(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := h.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	from, ok := dateQuery(w, r, "from", monthStart)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := dateQuery(w, r, "to", now)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
