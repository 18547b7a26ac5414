package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tapeo-pos/server/internal/settings"
)

type SettingsHandler struct {
	svc settings.Service
}

func NewSettingsHandler(svc settings.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/settings", h.handleGet)
	router.Patch("/settings", h.handlePatch)
}

func (h *SettingsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	values, err := h.svc.All(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, values)
}

func (h *SettingsHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(values) == 0 {
		respondWithError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	if err := h.svc.Apply(r.Context(), values); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	values, err := h.svc.All(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, values)
}
