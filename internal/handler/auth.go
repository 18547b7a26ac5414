package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tapeo-pos/server/internal/auth"
)

type AuthHandler struct {
	svc      *auth.Service
	validate *validator.Validate
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc, validate: validator.New()}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/login", h.handleLogin)
	router.Post("/auth/logout", h.handleLogout)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return
	}

	token, err := h.svc.Login(req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	h.svc.SetSessionCookie(w, token)
	respondWithJSON(w, http.StatusOK, map[string]string{"username": req.Username})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
