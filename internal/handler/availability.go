package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tapeo-pos/server/internal/availability"
	"github.com/tapeo-pos/server/internal/order"
)

// AvailabilityHandler exposes the store-hours gate so clients do not
// need their own copy of the schedule logic.
type AvailabilityHandler struct {
	store order.StoreConfigSource
	now   func() time.Time
}

func NewAvailabilityHandler(store order.StoreConfigSource) *AvailabilityHandler {
	return &AvailabilityHandler{store: store, now: time.Now}
}

func (h *AvailabilityHandler) RegisterRoutes(router chi.Router) {
	router.Get("/availability", h.handleCheck)
}

func (h *AvailabilityHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.StoreConfig(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	pickup := r.URL.Query().Get("pickup")
	respondWithJSON(w, http.StatusOK, availability.Check(cfg, h.now(), pickup))
}
