package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNameExists       = errors.New("name already exists")
)

type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ActiveByName(ctx context.Context, name string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CountProductsInCategory(ctx context.Context, id uuid.UUID) (int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, name, price, active, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.Name, p.Price, p.Active, p.CategoryID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, price, active, category_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Active, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) ActiveByName(ctx context.Context, name string) (*Product, error) {
	query := `
		SELECT id, name, price, active, category_id, created_at, updated_at
		FROM products
		WHERE name = $1 AND active
	`
	var p Product
	err := r.db.QueryRow(ctx, query, name).Scan(&p.ID, &p.Name, &p.Price, &p.Active, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %q: %w", name, err)
	}
	return &p, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context) ([]Product, error) {
	query := `
		SELECT id, name, price, active, category_id, created_at, updated_at
		FROM products
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Active, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, price = $2, active = $3, category_id = $4, updated_at = $5
		WHERE id = $6
	`
	tag, err := r.db.Exec(ctx, query, p.Name, p.Price, p.Active, p.CategoryID, p.UpdatedAt, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate category ID: %w", err)
		}
		c.ID = id
	}
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx, `INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, c *Category) error {
	tag, err := r.db.Exec(ctx, `UPDATE categories SET name = $1 WHERE id = $2`, c.Name, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("repository: failed to update category %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete category %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepository) CountProductsInCategory(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE category_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count products in category %s: %w", id, err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
