package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tapeo-pos/server/internal/notify"
)

type Notifier interface {
	Broadcast(t notify.EventType)
}

type ItemInput struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type Input struct {
	Date     time.Time
	Supplier string
	Category Category
	Items    []ItemInput
}

type Service interface {
	Create(ctx context.Context, input Input) (*Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, from, to time.Time) ([]Invoice, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (*Invoice, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, from, to time.Time) (map[Category]decimal.Decimal, error)
}

type service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) Service {
	return &service{repo: repo, notifier: notifier}
}

func (s *service) Create(ctx context.Context, input Input) (*Invoice, error) {
	inv, err := buildInvoice(input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("service: failed to create invoice: %w", err)
	}

	log.Info().Stringer("invoice_id", inv.ID).Str("supplier", inv.Supplier).Str("total", inv.Total.StringFixed(2)).Msg("Invoice created")
	s.notifier.Broadcast(notify.EventInvoicesUpdated)
	return inv, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	return s.repo.List(ctx, from, to)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input Input) (*Invoice, error) {
	inv, err := buildInvoice(input)
	if err != nil {
		return nil, err
	}
	inv.ID = id

	if err := s.repo.Update(ctx, inv); err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("service: failed to update invoice: %w", err)
	}

	log.Info().Stringer("invoice_id", id).Msg("Invoice updated")
	s.notifier.Broadcast(notify.EventInvoicesUpdated)
	return inv, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Stringer("invoice_id", id).Msg("Invoice deleted")
	s.notifier.Broadcast(notify.EventInvoicesUpdated)
	return nil
}

func (s *service) Summary(ctx context.Context, from, to time.Time) (map[Category]decimal.Decimal, error) {
	return s.repo.SummaryByCategory(ctx, from, to)
}

// buildInvoice validates the input and derives every line total and
// the invoice total. Client-supplied totals are ignored.
func buildInvoice(input Input) (*Invoice, error) {
	if input.Supplier == "" {
		return nil, errors.New("service: supplier is required")
	}
	if !input.Category.Known() {
		return nil, fmt.Errorf("service: unknown invoice category %q", string(input.Category))
	}
	if len(input.Items) == 0 {
		return nil, errors.New("service: invoice must contain at least one item")
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	inv := &Invoice{Date: date, Supplier: input.Supplier, Category: input.Category, Total: decimal.Zero}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("service: quantity for %q must be greater than zero", item.Description)
		}
		if item.UnitPrice.LessThan(decimal.Zero) {
			return nil, fmt.Errorf("service: unit price for %q cannot be negative", item.Description)
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		inv.Items = append(inv.Items, InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  lineTotal,
		})
		inv.Total = inv.Total.Add(lineTotal)
	}
	return inv, nil
}
