package product_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapeo-pos/server/internal/notify"
	"github.com/tapeo-pos/server/internal/product"
)

type mockRepository struct {
	product.Repository

	createProductFunc  func(ctx context.Context, p *product.Product) error
	deleteCategoryFunc func(ctx context.Context, id uuid.UUID) error
	countFunc          func(ctx context.Context, id uuid.UUID) (int, error)
	listCategoriesFunc func(ctx context.Context) ([]product.Category, error)
}

func (m *mockRepository) CreateProduct(ctx context.Context, p *product.Product) error {
	return m.createProductFunc(ctx, p)
}

func (m *mockRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.deleteCategoryFunc(ctx, id)
}

func (m *mockRepository) CountProductsInCategory(ctx context.Context, id uuid.UUID) (int, error) {
	return m.countFunc(ctx, id)
}

func (m *mockRepository) ListCategories(ctx context.Context) ([]product.Category, error) {
	return m.listCategoriesFunc(ctx)
}

type mockNotifier struct {
	events []notify.EventType
}

func (m *mockNotifier) Broadcast(t notify.EventType) { m.events = append(m.events, t) }

func TestCreateProductValidation(t *testing.T) {
	svc := product.NewService(&mockRepository{}, &mockNotifier{})

	err := svc.CreateProduct(context.Background(), &product.Product{Price: decimal.NewFromInt(5)})
	assert.Error(t, err, "missing name")

	err = svc.CreateProduct(context.Background(), &product.Product{Name: "Tortilla", Price: decimal.NewFromInt(-1)})
	assert.Error(t, err, "negative price")
}

func TestCreateProductBroadcasts(t *testing.T) {
	repo := &mockRepository{
		createProductFunc: func(ctx context.Context, p *product.Product) error { return nil },
	}
	notifier := &mockNotifier{}
	svc := product.NewService(repo, notifier)

	err := svc.CreateProduct(context.Background(), &product.Product{
		Name: "Tortilla", Price: decimal.NewFromFloat(6.50), Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []notify.EventType{notify.EventProductsUpdated}, notifier.events)
}

func TestDeleteCategoryRefusesWhenNotEmpty(t *testing.T) {
	deleted := false
	repo := &mockRepository{
		countFunc: func(ctx context.Context, id uuid.UUID) (int, error) { return 3, nil },
		deleteCategoryFunc: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc := product.NewService(repo, &mockNotifier{})

	err := svc.DeleteCategory(context.Background(), uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, product.ErrCategoryNotEmpty)
	assert.False(t, deleted)
}

func TestSortCategories(t *testing.T) {
	cats := []product.Category{
		{Name: "Vinos"},
		{Name: "Bebidas"},
		{Name: "Arroces"},
		{Name: "Entrantes"},
		{Name: "Postres"},
	}

	product.SortCategories(cats)

	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	// Pinned sections first in menu order, the rest alphabetical.
	assert.Equal(t, []string{"Entrantes", "Postres", "Bebidas", "Arroces", "Vinos"}, names)
}
