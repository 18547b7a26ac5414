package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tapeo-pos/server/internal/order"
)

type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc, validate: validator.New()}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Get("/orders", h.handleList)
	router.Get("/orders/{id}", h.handleGetByID)
	router.Patch("/orders/{id}/status", h.handleUpdateStatus)
}

// RegisterPublicRoutes mounts the endpoints the customer-facing page
// hits without credentials.
func (h *OrderHandler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreate)
}

type createOrderRequest struct {
	CustomerName  string             `json:"customerName" validate:"required,min=2"`
	CustomerPhone string             `json:"customerPhone"`
	PickupTime    string             `json:"pickupTime" validate:"required"`
	Items         []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemRequest struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type createOrderResponse struct {
	ID     uuid.UUID       `json:"id"`
	Status order.Status    `json:"status"`
	Total  decimal.Decimal `json:"total"`
}

func (h *OrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return
	}

	input := order.CreateInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PickupTime:    req.PickupTime,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, order.CreateItem{Name: item.Name, Quantity: item.Quantity})
	}

	o, err := h.svc.Create(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, createOrderResponse{ID: o.ID, Status: o.Status, Total: o.Total})
}

type listOrdersResponse struct {
	Orders []order.Order `json:"orders"`
	Total  int           `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

func (h *OrderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := order.ListFilter{
		Page:  intQuery(r, "page", 1),
		Limit: intQuery(r, "limit", 20),
	}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := order.Status(raw)
		if !status.Known() {
			respondWithError(w, http.StatusBadRequest, "unknown status filter "+strconv.Quote(raw))
			return
		}
		filter.Status = &status
	}

	orders, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, listOrdersResponse{
		Orders: orders,
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
}

func (h *OrderHandler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Err(err).Str("param", name).Str("value", raw).Msg("Failed to parse id parameter")
		respondWithError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
