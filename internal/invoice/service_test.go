package invoice_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapeo-pos/server/internal/invoice"
	"github.com/tapeo-pos/server/internal/notify"
)

type mockRepository struct {
	createFunc  func(ctx context.Context, inv *invoice.Invoice) error
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)
	listFunc    func(ctx context.Context, from, to time.Time) ([]invoice.Invoice, error)
	updateFunc  func(ctx context.Context, inv *invoice.Invoice) error
	deleteFunc  func(ctx context.Context, id uuid.UUID) error
	summaryFunc func(ctx context.Context, from, to time.Time) (map[invoice.Category]decimal.Decimal, error)
}

func (m *mockRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	return m.createFunc(ctx, inv)
}
func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return m.getByIDFunc(ctx, id)
}
func (m *mockRepository) List(ctx context.Context, from, to time.Time) ([]invoice.Invoice, error) {
	return m.listFunc(ctx, from, to)
}
func (m *mockRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	return m.updateFunc(ctx, inv)
}
func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}
func (m *mockRepository) SummaryByCategory(ctx context.Context, from, to time.Time) (map[invoice.Category]decimal.Decimal, error) {
	return m.summaryFunc(ctx, from, to)
}

type mockNotifier struct {
	events []notify.EventType
}

func (m *mockNotifier) Broadcast(t notify.EventType) { m.events = append(m.events, t) }

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestCreateDerivesTotals(t *testing.T) {
	var created *invoice.Invoice
	repo := &mockRepository{
		createFunc: func(ctx context.Context, inv *invoice.Invoice) error {
			created = inv
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := invoice.NewService(repo, notifier)

	inv, err := svc.Create(context.Background(), invoice.Input{
		Supplier: "Distribuciones García",
		Category: invoice.CategoryIngredients,
		Items: []invoice.ItemInput{
			{Description: "Carne picada 5kg", Quantity: 2, UnitPrice: price("32.40")},
			{Description: "Pan de hamburguesa", Quantity: 10, UnitPrice: price("1.85")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "83.30", inv.Total.StringFixed(2)) // 64.80 + 18.50
	assert.Equal(t, "64.80", created.Items[0].TotalPrice.StringFixed(2))
	assert.Equal(t, "18.50", created.Items[1].TotalPrice.StringFixed(2))
	assert.Equal(t, []notify.EventType{notify.EventInvoicesUpdated}, notifier.events)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input invoice.Input
	}{
		{
			name:  "missing_supplier",
			input: invoice.Input{Category: invoice.CategoryOther, Items: []invoice.ItemInput{{Description: "x", Quantity: 1}}},
		},
		{
			name:  "unknown_category",
			input: invoice.Input{Supplier: "s", Category: "FOOD", Items: []invoice.ItemInput{{Description: "x", Quantity: 1}}},
		},
		{
			name:  "no_items",
			input: invoice.Input{Supplier: "s", Category: invoice.CategoryOther},
		},
		{
			name: "zero_quantity",
			input: invoice.Input{Supplier: "s", Category: invoice.CategoryOther,
				Items: []invoice.ItemInput{{Description: "x", Quantity: 0}}},
		},
		{
			name: "negative_unit_price",
			input: invoice.Input{Supplier: "s", Category: invoice.CategoryOther,
				Items: []invoice.ItemInput{{Description: "x", Quantity: 1, UnitPrice: price("-1")}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := invoice.NewService(&mockRepository{}, &mockNotifier{})
			_, err := svc.Create(context.Background(), tt.input)
			assert.Error(t, err)
		})
	}
}
