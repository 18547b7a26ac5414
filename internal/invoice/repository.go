package invoice

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

var ErrInvoiceNotFound = errors.New("invoice not found")

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, from, to time.Time) ([]Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	SummaryByCategory(ctx context.Context, from, to time.Time) (map[Category]decimal.Decimal, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, inv *Invoice) error {
	if inv.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate invoice ID: %w", err)
		}
		inv.ID = id
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Stringer("invoice_id", inv.ID).Msg("Failed to rollback invoice transaction")
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO invoices (id, date, supplier, category, total) VALUES ($1, $2, $3, $4, $5)`,
		inv.ID, inv.Date, inv.Supplier, string(inv.Category), inv.Total)
	if err != nil {
		return fmt.Errorf("repository: failed to insert invoice: %w", err)
	}

	if err := insertItems(ctx, tx, inv); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit invoice transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	var inv Invoice
	err := r.db.QueryRow(ctx,
		`SELECT id, date, supplier, category, total FROM invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.Date, &inv.Supplier, &inv.Category, &inv.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("repository: failed to select invoice %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, invoice_id, description, quantity, unit_price, total_price
		 FROM invoice_items WHERE invoice_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query invoice items for %s: %w", id, err)
	}
	defer rows.Close()

	inv.Items = make([]InvoiceItem, 0)
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return nil, fmt.Errorf("repository: failed to scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating invoice items: %w", err)
	}
	return &inv, nil
}

func (r *postgresRepository) List(ctx context.Context, from, to time.Time) ([]Invoice, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, date, supplier, category, total FROM invoices
		 WHERE date >= $1 AND date < $2 ORDER BY date DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query invoices: %w", err)
	}
	defer rows.Close()

	out := make([]Invoice, 0)
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Date, &inv.Supplier, &inv.Category, &inv.Total); err != nil {
			return nil, fmt.Errorf("repository: failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating invoices: %w", err)
	}
	return out, nil
}

// Update rewrites the invoice row and replaces its items in one
// transaction.
func (r *postgresRepository) Update(ctx context.Context, inv *Invoice) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Stringer("invoice_id", inv.ID).Msg("Failed to rollback invoice transaction")
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE invoices SET date = $1, supplier = $2, category = $3, total = $4 WHERE id = $5`,
		inv.Date, inv.Supplier, string(inv.Category), inv.Total, inv.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update invoice %s: %w", inv.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("repository: failed to clear invoice items for %s: %w", inv.ID, err)
	}
	if err := insertItems(ctx, tx, inv); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit invoice transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *postgresRepository) SummaryByCategory(ctx context.Context, from, to time.Time) (map[Category]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT category, COALESCE(sum(total), 0) FROM invoices
		 WHERE date >= $1 AND date < $2 GROUP BY category`, from, to)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to aggregate invoices: %w", err)
	}
	defer rows.Close()

	out := make(map[Category]decimal.Decimal)
	for rows.Next() {
		var cat Category
		var total decimal.Decimal
		if err := rows.Scan(&cat, &total); err != nil {
			return nil, fmt.Errorf("repository: failed to scan invoice summary: %w", err)
		}
		out[cat] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating invoice summary: %w", err)
	}
	return out, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, inv *Invoice) error {
	query := `
		INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range inv.Items {
		item := &inv.Items[i]

		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate invoice item ID: %w", err)
		}
		item.ID = itemID
		item.InvoiceID = inv.ID

		_, err = tx.Exec(ctx, query,
			item.ID, item.InvoiceID, item.Description, item.Quantity, item.UnitPrice, item.TotalPrice)
		if err != nil {
			return fmt.Errorf("repository: failed to insert invoice item for %s: %w", inv.ID, err)
		}
	}
	return nil
}
