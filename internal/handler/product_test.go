package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tapeo-pos/server/internal/product"
)

type mockProductService struct {
	CreateProductFunc  func(ctx context.Context, p *product.Product) error
	GetProductFunc     func(ctx context.Context, id uuid.UUID) (*product.Product, error)
	ListProductsFunc   func(ctx context.Context) ([]product.Product, error)
	UpdateProductFunc  func(ctx context.Context, p *product.Product) error
	DeleteProductFunc  func(ctx context.Context, id uuid.UUID) error
	CreateCategoryFunc func(ctx context.Context, c *product.Category) error
	ListCategoriesFunc func(ctx context.Context) ([]product.Category, error)
	UpdateCategoryFunc func(ctx context.Context, c *product.Category) error
	DeleteCategoryFunc func(ctx context.Context, id uuid.UUID) error
}

func (m *mockProductService) CreateProduct(ctx context.Context, p *product.Product) error {
	return m.CreateProductFunc(ctx, p)
}

func (m *mockProductService) GetProduct(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	return m.GetProductFunc(ctx, id)
}

func (m *mockProductService) ListProducts(ctx context.Context) ([]product.Product, error) {
	return m.ListProductsFunc(ctx)
}

func (m *mockProductService) UpdateProduct(ctx context.Context, p *product.Product) error {
	return m.UpdateProductFunc(ctx, p)
}

func (m *mockProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.DeleteProductFunc(ctx, id)
}

func (m *mockProductService) CreateCategory(ctx context.Context, c *product.Category) error {
	return m.CreateCategoryFunc(ctx, c)
}

func (m *mockProductService) ListCategories(ctx context.Context) ([]product.Category, error) {
	return m.ListCategoriesFunc(ctx)
}

func (m *mockProductService) UpdateCategory(ctx context.Context, c *product.Category) error {
	return m.UpdateCategoryFunc(ctx, c)
}

func (m *mockProductService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.DeleteCategoryFunc(ctx, id)
}

func newProductRouter(svc product.Service) chi.Router {
	router := chi.NewRouter()
	NewProductHandler(svc).RegisterRoutes(router)
	return router
}

func TestProductHandler_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		create         func(ctx context.Context, p *product.Product) error
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			body: `{"name": "Hamburguesa completa", "price": "8.50"}`,
			create: func(ctx context.Context, p *product.Product) error {
				p.ID = uuid.Must(uuid.NewV4())
				return nil
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"Hamburguesa completa"`,
		},
		{
			name: "duplicate_name",
			body: `{"name": "Hamburguesa completa", "price": "8.50"}`,
			create: func(ctx context.Context, p *product.Product) error {
				return product.ErrNameExists
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"name already exists"`,
		},
		{
			name:           "missing_price",
			body:           `{"name": "Hamburguesa completa"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"validation failed"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newProductRouter(&mockProductService{CreateProductFunc: tt.create})

			req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
		})
	}
}

func TestProductHandler_CreateDefaultsActive(t *testing.T) {
	var got *product.Product
	router := newProductRouter(&mockProductService{
		CreateProductFunc: func(ctx context.Context, p *product.Product) error {
			got = p
			return nil
		},
	})

	body := `{"name": "Patatas fritas", "price": "3.20"}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, got.Active)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("3.20")))
}

func TestProductHandler_GetNotFound(t *testing.T) {
	router := newProductRouter(&mockProductService{
		GetProductFunc: func(ctx context.Context, id uuid.UUID) (*product.Product, error) {
			return nil, product.ErrProductNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/products/"+uuid.Must(uuid.NewV4()).String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"product not found"`)
}

func TestProductHandler_DeleteCategoryWithProducts(t *testing.T) {
	router := newProductRouter(&mockProductService{
		DeleteCategoryFunc: func(ctx context.Context, id uuid.UUID) error {
			return product.ErrCategoryNotEmpty
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/categories/"+uuid.Must(uuid.NewV4()).String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"category still has products"`)
}
