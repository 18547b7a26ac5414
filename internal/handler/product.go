package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapeo-pos/server/internal/product"
)

type ProductHandler struct {
	svc      product.Service
	validate *validator.Validate
}

func NewProductHandler(svc product.Service) *ProductHandler {
	return &ProductHandler{svc: svc, validate: validator.New()}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Post("/products", h.handleCreateProduct)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Patch("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)

	router.Get("/categories", h.handleListCategories)
	router.Post("/categories", h.handleCreateCategory)
	router.Patch("/categories/{id}", h.handleUpdateCategory)
	router.Delete("/categories/{id}", h.handleDeleteCategory)
}

type productRequest struct {
	Name       string          `json:"name" validate:"required"`
	Price      decimal.Decimal `json:"price" validate:"required"`
	Active     *bool           `json:"active"`
	CategoryID *uuid.UUID      `json:"category_id"`
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	p := &product.Product{
		Name:   req.Name,
		Price:  req.Price,
		Active: true,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.CategoryID != nil {
		p.CategoryID = uuid.NullUUID{UUID: *req.CategoryID, Valid: true}
	}

	if err := h.svc.CreateProduct(r.Context(), p); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	p := &product.Product{
		ID:     id,
		Name:   req.Name,
		Price:  req.Price,
		Active: true,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.CategoryID != nil {
		p.CategoryID = uuid.NullUUID{UUID: *req.CategoryID, Valid: true}
	}

	if err := h.svc.UpdateProduct(r.Context(), p); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *ProductHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return
	}

	c := &product.Category{Name: req.Name}
	if err := h.svc.CreateCategory(r.Context(), c); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *ProductHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *ProductHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return
	}

	c := &product.Category{ID: id, Name: req.Name}
	if err := h.svc.UpdateCategory(r.Context(), c); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *ProductHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (*productRequest, bool) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return nil, false
	}
	return &req, true
}
