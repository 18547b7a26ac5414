package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tapeo-pos/server/internal/availability"
	"github.com/tapeo-pos/server/internal/notify"
	"github.com/tapeo-pos/server/internal/product"
)

// Every order carries a fixed packaging charge.
var bagFee = decimal.New(10, -2) // 0.10

// Orders above this total require a contact phone.
var phoneThreshold = decimal.NewFromInt(30)

var ErrInvalidStatusTransition = errors.New("invalid status transition")

// RuleError is a business-rule rejection: the request was well-formed
// but the store's rules refuse it. Handlers map it to 400.
type RuleError struct {
	Reason string
}

func (e *RuleError) Error() string { return e.Reason }

func reject(format string, args ...any) error {
	return &RuleError{Reason: fmt.Sprintf(format, args...)}
}

// ProductCatalog resolves requested item names against the menu.
type ProductCatalog interface {
	ActiveByName(ctx context.Context, name string) (*product.Product, error)
}

// StoreConfigSource supplies the current availability settings.
type StoreConfigSource interface {
	StoreConfig(ctx context.Context) (availability.StoreConfig, error)
}

// SaleRecorder turns a delivered order into a sale record.
type SaleRecorder interface {
	RecordDelivered(ctx context.Context, o *Order) error
}

type Notifier interface {
	Broadcast(t notify.EventType)
}

type CreateItem struct {
	Name     string
	Quantity int
}

type CreateInput struct {
	CustomerName  string
	CustomerPhone string
	PickupTime    string
	Items         []CreateItem
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) (*Order, error)
}

type service struct {
	repo     Repository
	catalog  ProductCatalog
	store    StoreConfigSource
	sales    SaleRecorder
	notifier Notifier
	now      func() time.Time
}

type Option func(*service)

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(repo Repository, catalog ProductCatalog, store StoreConfigSource, sales SaleRecorder, notifier Notifier, opts ...Option) Service {
	s := &service{
		repo:     repo,
		catalog:  catalog,
		store:    store,
		sales:    sales,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the store rules, snapshots product prices and
// persists the order atomically. Nothing is written when any rule
// fails.
func (s *service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, reject("order must contain at least one item")
	}

	cfg, err := s.store.StoreConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load store config: %w", err)
	}

	if v := availability.Check(cfg, s.now(), input.PickupTime); !v.Open {
		log.Warn().Str("reason", v.Reason).Str("pickup", input.PickupTime).Msg("service: order rejected by availability gate")
		return nil, &RuleError{Reason: v.Reason}
	}

	o := &Order{
		Status:        StatusReceived,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		PickupTime:    input.PickupTime,
	}

	total := decimal.Zero
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, reject("quantity for %q must be greater than zero", item.Name)
		}

		p, err := s.catalog.ActiveByName(ctx, item.Name)
		if err != nil {
			if errors.Is(err, product.ErrProductNotFound) {
				return nil, reject("no active product named %q", item.Name)
			}
			return nil, fmt.Errorf("service: failed to resolve product %q: %w", item.Name, err)
		}

		o.Items = append(o.Items, OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			Price:       p.Price,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	o.Total = total.Add(bagFee).Round(2)

	if o.Total.GreaterThan(phoneThreshold) && o.CustomerPhone == "" {
		return nil, reject("customer phone is required for orders over %s", phoneThreshold.StringFixed(2))
	}

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Str("pickup", o.PickupTime).
		Str("total", o.Total.StringFixed(2)).
		Msg("Order created")
	s.notifier.Broadcast(notify.EventOrdersUpdated)

	return o, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus moves an order through the lifecycle. On the transition
// to DELIVERED it also records the sale; a sale failure is logged but
// never fails the transition, and the ORDERS_UPDATED broadcast goes
// out either way.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) (*Order, error) {
	if !newStatus.Known() {
		return nil, reject("unknown status %q", string(newStatus))
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if !CanTransition(current.Status, newStatus) {
		log.Warn().
			Stringer("order_id", id).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w from %s to %s", ErrInvalidStatusTransition, current.Status, newStatus)
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}
	current.Status = newStatus

	if newStatus == StatusDelivered {
		if err := s.sales.RecordDelivered(ctx, current); err != nil {
			log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to record sale for delivered order")
		}
	}

	log.Info().
		Stringer("order_id", id).
		Stringer("new_status", newStatus).
		Msg("Order status updated")
	s.notifier.Broadcast(notify.EventOrdersUpdated)

	return current, nil
}
