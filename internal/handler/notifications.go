package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tapeo-pos/server/internal/notify"
)

type NotificationHandler struct {
	hub *notify.Hub
}

func NewNotificationHandler(hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

func (h *NotificationHandler) RegisterRoutes(router chi.Router) {
	router.Get("/notifications", h.handleStream)
}

// handleStream holds the connection open until the client goes away.
func (h *NotificationHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	types := notify.ParseTypes(r.URL.Query().Get("types"))

	if err := h.hub.Serve(w, r, types); err != nil {
		log.Warn().Err(err).Msg("SSE stream ended with error")
	}
}
