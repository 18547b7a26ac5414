package product

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tapeo-pos/server/internal/notify"
)

var ErrCategoryNotEmpty = errors.New("category still has products")

// displayOrder pins the menu sections the dashboard shows first; any
// other category falls back to alphabetical order after them.
var displayOrder = []string{
	"Entrantes",
	"Hamburguesas",
	"Bocadillos",
	"Raciones",
	"Postres",
	"Bebidas",
}

type Notifier interface {
	Broadcast(t notify.EventType)
}

type Service interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) Service {
	return &service{repo: repo, notifier: notifier}
}

func (s *service) CreateProduct(ctx context.Context, p *Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return err
	}
	log.Info().Stringer("product_id", p.ID).Str("name", p.Name).Msg("Product created")
	s.notifier.Broadcast(notify.EventProductsUpdated)
	return nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *service) UpdateProduct(ctx context.Context, p *Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return err
	}
	log.Info().Stringer("product_id", p.ID).Msg("Product updated")
	s.notifier.Broadcast(notify.EventProductsUpdated)
	return nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	log.Info().Stringer("product_id", id).Msg("Product deleted")
	s.notifier.Broadcast(notify.EventProductsUpdated)
	return nil
}

func (s *service) CreateCategory(ctx context.Context, c *Category) error {
	if c.Name == "" {
		return errors.New("service: category name is required")
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return err
	}
	log.Info().Stringer("category_id", c.ID).Str("name", c.Name).Msg("Category created")
	s.notifier.Broadcast(notify.EventCategoriesUpdated)
	return nil
}

// ListCategories returns categories in display order: the fixed menu
// sections first, everything else alphabetically.
func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	SortCategories(cats)
	return cats, nil
}

func (s *service) UpdateCategory(ctx context.Context, c *Category) error {
	if c.Name == "" {
		return errors.New("service: category name is required")
	}
	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return err
	}
	s.notifier.Broadcast(notify.EventCategoriesUpdated)
	return nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d products attached", ErrCategoryNotEmpty, n)
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	log.Info().Stringer("category_id", id).Msg("Category deleted")
	s.notifier.Broadcast(notify.EventCategoriesUpdated)
	return nil
}

func SortCategories(cats []Category) {
	rank := make(map[string]int, len(displayOrder))
	for i, name := range displayOrder {
		rank[name] = i
	}
	sort.SliceStable(cats, func(i, j int) bool {
		ri, iPinned := rank[cats[i].Name]
		rj, jPinned := rank[cats[j].Name]
		switch {
		case iPinned && jPinned:
			return ri < rj
		case iPinned:
			return true
		case jPinned:
			return false
		default:
			return cats[i].Name < cats[j].Name
		}
	})
}

func validateProduct(p *Product) error {
	if p.Name == "" {
		return errors.New("service: product name is required")
	}
	if p.Price.LessThan(decimal.Zero) {
		return fmt.Errorf("service: product price cannot be negative, got %s", p.Price)
	}
	return nil
}
