package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrSaleNotFound = errors.New("sale not found")

type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Sale, error)
	List(ctx context.Context, from, to time.Time) ([]Sale, error)
	Delete(ctx context.Context, id uuid.UUID) error
	StatsBetween(ctx context.Context, from, to time.Time) (*Stats, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, s *Sale) error {
	if s.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate sale ID: %w", err)
		}
		s.ID = id
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Stringer("sale_id", s.ID).Msg("Failed to rollback sale transaction")
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO sales (id, date, source, order_id, total) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Date, string(s.Source), s.OrderID, s.Total)
	if err != nil {
		return fmt.Errorf("repository: failed to insert sale: %w", err)
	}

	for i := range s.Items {
		item := &s.Items[i]

		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate sale item ID: %w", err)
		}
		item.ID = itemID
		item.SaleID = s.ID

		_, err = tx.Exec(ctx,
			`INSERT INTO sale_items (id, sale_id, product_id, quantity, unit_price, total_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice)
		if err != nil {
			return fmt.Errorf("repository: failed to insert sale item for sale %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit sale transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	return r.getBy(ctx, `SELECT id, date, source, order_id, total FROM sales WHERE id = $1`, id)
}

func (r *postgresRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Sale, error) {
	return r.getBy(ctx, `SELECT id, date, source, order_id, total FROM sales WHERE order_id = $1`, orderID)
}

func (r *postgresRepository) getBy(ctx context.Context, query string, arg any) (*Sale, error) {
	var s Sale
	err := r.db.QueryRow(ctx, query, arg).Scan(&s.ID, &s.Date, &s.Source, &s.OrderID, &s.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("repository: failed to select sale: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, sale_id, product_id, quantity, unit_price, total_price FROM sale_items WHERE sale_id = $1`,
		s.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query sale items for %s: %w", s.ID, err)
	}
	defer rows.Close()

	s.Items = make([]SaleItem, 0)
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, fmt.Errorf("repository: failed to scan sale item: %w", err)
		}
		s.Items = append(s.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating sale items: %w", err)
	}
	return &s, nil
}

func (r *postgresRepository) List(ctx context.Context, from, to time.Time) ([]Sale, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, date, source, order_id, total FROM sales WHERE date >= $1 AND date < $2 ORDER BY date DESC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query sales: %w", err)
	}
	defer rows.Close()

	out := make([]Sale, 0)
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.Date, &s.Source, &s.OrderID, &s.Total); err != nil {
			return nil, fmt.Errorf("repository: failed to scan sale: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating sales: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete sale %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSaleNotFound
	}
	return nil
}

func (r *postgresRepository) StatsBetween(ctx context.Context, from, to time.Time) (*Stats, error) {
	stats := &Stats{From: from, To: to, TotalSales: decimal.Zero, Products: make([]ProductStat, 0)}

	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(sum(total), 0), count(*) FROM sales WHERE date >= $1 AND date < $2`,
		from, to).Scan(&stats.TotalSales, &stats.OrderCount)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to aggregate sales: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT si.product_id, sum(si.quantity), sum(si.total_price)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.date >= $1 AND s.date < $2
		GROUP BY si.product_id
		ORDER BY sum(si.quantity) DESC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to aggregate sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p ProductStat
		if err := rows.Scan(&p.ProductID, &p.Quantity, &p.Revenue); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product stat: %w", err)
		}
		stats.Products = append(stats.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating product stats: %w", err)
	}
	return stats, nil
}
