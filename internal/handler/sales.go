package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapeo-pos/server/internal/sales"
	"github.com/tapeo-pos/server/internal/scan"
)

type SalesHandler struct {
	svc      sales.Service
	scanner  *scan.Service
	validate *validator.Validate
	now      func() time.Time
}

func NewSalesHandler(svc sales.Service, scanner *scan.Service) *SalesHandler {
	return &SalesHandler{
		svc:      svc,
		scanner:  scanner,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (h *SalesHandler) RegisterRoutes(router chi.Router) {
	router.Get("/sales", h.handleList)
	router.Post("/sales", h.handleCreateManual)
	router.Get("/sales/stats", h.handleStats)
	router.Post("/sales/scan", h.handleScan)
	router.Get("/sales/{id}", h.handleGet)
	router.Delete("/sales/{id}", h.handleDelete)
}

func (h *SalesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := now

	var ok bool
	if from, ok = dateQuery(w, r, "from", from); !ok {
		return
	}
	if to, ok = dateQuery(w, r, "to", to); !ok {
		return
	}

	list, err := h.svc.List(r.Context(), from, to)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

type manualSaleItem struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

type manualSaleRequest struct {
	Date  time.Time        `json:"date"`
	Items []manualSaleItem `json:"items" validate:"required,min=1,dive"`
}

func (h *SalesHandler) handleCreateManual(w http.ResponseWriter, r *http.Request) {
	var req manualSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return
	}

	input := sales.ManualInput{Date: req.Date}
	for _, it := range req.Items {
		input.Items = append(input.Items, sales.ManualItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	sale, err := h.svc.CreateManual(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, sale)
}

func (h *SalesHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	sale, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sale)
}

func (h *SalesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
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

func (h *SalesHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("type")
	if period == "" {
		period = "day"
	}

	stats, err := h.svc.Stats(r.Context(), period)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *SalesHandler) handleScan(w http.ResponseWriter, r *http.Request) {
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

	suggestion, err := h.scanner.ScanTicket(r.Context(), path)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, suggestion)
}

// dateQuery parses an optional date parameter, accepting either a bare
// day ("2006-01-02") or a full RFC 3339 timestamp.
func dateQuery(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	respondWithError(w, http.StatusBadRequest, "invalid "+name+" parameter")
	return time.Time{}, false
}
