package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tapeo-pos/server/internal/notify"
	"github.com/tapeo-pos/server/internal/order"
)

var ErrUnknownPeriod = errors.New("unknown stats period")

type Notifier interface {
	Broadcast(t notify.EventType)
}

type ManualItem struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

type ManualInput struct {
	Date  time.Time
	Items []ManualItem
}

type Service interface {
	RecordDelivered(ctx context.Context, o *order.Order) error
	CreateManual(ctx context.Context, input ManualInput) (*Sale, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	List(ctx context.Context, from, to time.Time) ([]Sale, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, period string) (*Stats, error)
}

type service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(repo Repository, notifier Notifier, opts ...Option) Service {
	s := &service{repo: repo, notifier: notifier, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordDelivered creates the sale for a delivered order. It is
// idempotent by order ID: a second call for the same order finds the
// existing record and does nothing.
func (s *service) RecordDelivered(ctx context.Context, o *order.Order) error {
	existing, err := s.repo.GetByOrderID(ctx, o.ID)
	if err != nil && !errors.Is(err, ErrSaleNotFound) {
		return fmt.Errorf("service: failed to check for existing sale: %w", err)
	}
	if existing != nil {
		log.Debug().Stringer("order_id", o.ID).Stringer("sale_id", existing.ID).Msg("Sale already recorded for order")
		return nil
	}

	sale := &Sale{
		Date:    s.now().UTC(),
		Source:  SourceOrder,
		OrderID: uuid.NullUUID{UUID: o.ID, Valid: true},
		Total:   o.Total,
	}
	for _, item := range o.Items {
		sale.Items = append(sale.Items, SaleItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			TotalPrice: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
		})
	}

	if err := s.repo.Create(ctx, sale); err != nil {
		return fmt.Errorf("service: failed to record sale for order %s: %w", o.ID, err)
	}

	log.Info().Stringer("sale_id", sale.ID).Stringer("order_id", o.ID).Msg("Sale recorded from delivered order")
	s.notifier.Broadcast(notify.EventSalesUpdated)
	return nil
}

func (s *service) CreateManual(ctx context.Context, input ManualInput) (*Sale, error) {
	if len(input.Items) == 0 {
		return nil, errors.New("service: manual sale must contain at least one item")
	}

	date := input.Date
	if date.IsZero() {
		date = s.now().UTC()
	}

	sale := &Sale{Date: date, Source: SourceManual, Total: decimal.Zero}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("service: quantity for product %s must be greater than zero", item.ProductID)
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		sale.Items = append(sale.Items, SaleItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: lineTotal,
		})
		sale.Total = sale.Total.Add(lineTotal)
	}

	if err := s.repo.Create(ctx, sale); err != nil {
		return nil, fmt.Errorf("service: failed to create manual sale: %w", err)
	}

	log.Info().Stringer("sale_id", sale.ID).Str("total", sale.Total.StringFixed(2)).Msg("Manual sale created")
	s.notifier.Broadcast(notify.EventSalesUpdated)
	return sale, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, from, to time.Time) ([]Sale, error) {
	return s.repo.List(ctx, from, to)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.Broadcast(notify.EventSalesUpdated)
	return nil
}

// Stats aggregates sales over the current day, week (starting Monday)
// or month.
func (s *service) Stats(ctx context.Context, period string) (*Stats, error) {
	from, to, err := PeriodRange(period, s.now())
	if err != nil {
		return nil, err
	}
	return s.repo.StatsBetween(ctx, from, to)
}

// PeriodRange resolves a period name to a [from, to) interval around
// now.
func PeriodRange(period string, now time.Time) (time.Time, time.Time, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case "day":
		return day, day.AddDate(0, 0, 1), nil
	case "week":
		offset := (int(day.Weekday()) + 6) % 7 // Monday start
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case "month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
}
