package sales_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapeo-pos/server/internal/notify"
	"github.com/tapeo-pos/server/internal/order"
	"github.com/tapeo-pos/server/internal/sales"
)

type mockRepository struct {
	createFunc       func(ctx context.Context, s *sales.Sale) error
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*sales.Sale, error)
	getByOrderIDFunc func(ctx context.Context, orderID uuid.UUID) (*sales.Sale, error)
	listFunc         func(ctx context.Context, from, to time.Time) ([]sales.Sale, error)
	deleteFunc       func(ctx context.Context, id uuid.UUID) error
	statsFunc        func(ctx context.Context, from, to time.Time) (*sales.Stats, error)
}

func (m *mockRepository) Create(ctx context.Context, s *sales.Sale) error { return m.createFunc(ctx, s) }
func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	return m.getByIDFunc(ctx, id)
}
func (m *mockRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*sales.Sale, error) {
	return m.getByOrderIDFunc(ctx, orderID)
}
func (m *mockRepository) List(ctx context.Context, from, to time.Time) ([]sales.Sale, error) {
	return m.listFunc(ctx, from, to)
}
func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error { return m.deleteFunc(ctx, id) }
func (m *mockRepository) StatsBetween(ctx context.Context, from, to time.Time) (*sales.Stats, error) {
	return m.statsFunc(ctx, from, to)
}

type mockNotifier struct {
	events []notify.EventType
}

func (m *mockNotifier) Broadcast(t notify.EventType) { m.events = append(m.events, t) }

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func deliveredOrder() *order.Order {
	return &order.Order{
		ID:     uuid.Must(uuid.NewV4()),
		Status: order.StatusDelivered,
		Total:  price("20.30"),
		Items: []order.OrderItem{
			{ProductID: uuid.Must(uuid.NewV4()), Quantity: 2, Price: price("8.50")},
			{ProductID: uuid.Must(uuid.NewV4()), Quantity: 1, Price: price("3.20")},
		},
	}
}

func TestRecordDelivered(t *testing.T) {
	o := deliveredOrder()

	var created *sales.Sale
	repo := &mockRepository{
		getByOrderIDFunc: func(ctx context.Context, orderID uuid.UUID) (*sales.Sale, error) {
			return nil, sales.ErrSaleNotFound
		},
		createFunc: func(ctx context.Context, s *sales.Sale) error {
			created = s
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := sales.NewService(repo, notifier)

	require.NoError(t, svc.RecordDelivered(context.Background(), o))

	require.NotNil(t, created)
	assert.Equal(t, sales.SourceOrder, created.Source)
	assert.Equal(t, o.ID, created.OrderID.UUID)
	assert.True(t, created.OrderID.Valid)
	assert.Equal(t, "20.30", created.Total.StringFixed(2))
	require.Len(t, created.Items, 2)
	assert.Equal(t, "17.00", created.Items[0].TotalPrice.StringFixed(2))
	assert.Equal(t, "3.20", created.Items[1].TotalPrice.StringFixed(2))
	assert.Equal(t, []notify.EventType{notify.EventSalesUpdated}, notifier.events)
}

func TestRecordDeliveredIsIdempotent(t *testing.T) {
	o := deliveredOrder()
	existing := &sales.Sale{ID: uuid.Must(uuid.NewV4()), OrderID: uuid.NullUUID{UUID: o.ID, Valid: true}}

	createCalls := 0
	repo := &mockRepository{
		getByOrderIDFunc: func(ctx context.Context, orderID uuid.UUID) (*sales.Sale, error) {
			return existing, nil
		},
		createFunc: func(ctx context.Context, s *sales.Sale) error {
			createCalls++
			return nil
		},
	}
	notifier := &mockNotifier{}
	svc := sales.NewService(repo, notifier)

	require.NoError(t, svc.RecordDelivered(context.Background(), o))
	require.NoError(t, svc.RecordDelivered(context.Background(), o))

	assert.Equal(t, 0, createCalls, "existing sale must not be duplicated")
	assert.Empty(t, notifier.events)
}

func TestCreateManualDerivesTotal(t *testing.T) {
	var created *sales.Sale
	repo := &mockRepository{
		createFunc: func(ctx context.Context, s *sales.Sale) error {
			created = s
			return nil
		},
	}
	svc := sales.NewService(repo, &mockNotifier{})

	sale, err := svc.CreateManual(context.Background(), sales.ManualInput{
		Items: []sales.ManualItem{
			{ProductID: uuid.Must(uuid.NewV4()), Quantity: 3, UnitPrice: price("2.50")},
			{ProductID: uuid.Must(uuid.NewV4()), Quantity: 1, UnitPrice: price("4.00")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, sales.SourceManual, sale.Source)
	assert.Equal(t, "11.50", sale.Total.StringFixed(2))
	assert.False(t, created.OrderID.Valid)
}

func TestCreateManualRejectsEmptyAndZeroQuantity(t *testing.T) {
	svc := sales.NewService(&mockRepository{}, &mockNotifier{})

	_, err := svc.CreateManual(context.Background(), sales.ManualInput{})
	assert.Error(t, err)

	_, err = svc.CreateManual(context.Background(), sales.ManualInput{
		Items: []sales.ManualItem{{ProductID: uuid.Must(uuid.NewV4()), Quantity: 0, UnitPrice: price("2.50")}},
	})
	assert.Error(t, err)
}

func TestPeriodRange(t *testing.T) {
	// Thursday 2025-06-19 15:30 UTC
	now := time.Date(2025, 6, 19, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period   string
		wantFrom time.Time
		wantTo   time.Time
		wantErr  bool
	}{
		{
			period:   "day",
			wantFrom: time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			period:   "week",
			wantFrom: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), // Monday
			wantTo:   time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC),
		},
		{
			period:   "month",
			wantFrom: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{period: "year", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			from, to, err := sales.PeriodRange(tt.period, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, sales.ErrUnknownPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}
