package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrOrderNotFound = errors.New("order not found")

type ListFilter struct {
	Status *Status
	Page   int
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// Create inserts the order and its items in a single transaction.
func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		o.ID = id
	}

	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback order transaction")
		}
	}()

	queryOrder := `
		INSERT INTO orders (id, status, customer_name, customer_phone, pickup_time, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.ID, string(o.Status), o.CustomerName, o.CustomerPhone, o.PickupTime, o.Total, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := range o.Items {
		item := &o.Items[i]

		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		item.ID = itemID
		item.OrderID = o.ID
		item.CreatedAt = now

		_, err = tx.Exec(ctx, queryItem,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit order transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	queryOrder := `
		SELECT id, status, customer_name, customer_phone, pickup_time, total, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRow(ctx, queryOrder, id).Scan(
		&o.ID, &o.Status, &o.CustomerName, &o.CustomerPhone, &o.PickupTime, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	items, err := r.itemsForOrders(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = make([]OrderItem, 0)
	}

	return &o, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where := ""
	args := []any{}
	if filter.Status != nil {
		where = "WHERE status = $1"
		args = append(args, string(*filter.Status))
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM orders %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	listQuery := fmt.Sprintf(`
		SELECT id, status, customer_name, customer_phone, pickup_time, total, created_at, updated_at
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, offset)

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		var o Order
		err := rows.Scan(&o.ID, &o.Status, &o.CustomerName, &o.CustomerPhone, &o.PickupTime, &o.Total, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.Items = make([]OrderItem, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, total, nil
	}

	itemsByOrder, err := r.itemsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, 0, err
	}
	for orderID, items := range itemsByOrder {
		if o, ok := ordersMap[orderID]; ok {
			o.Items = items
		}
	}

	result := make([]Order, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		result = append(result, *ordersMap[orderID])
	}
	return result, total, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	tag, err := r.db.Exec(ctx, query, string(newStatus), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) itemsForOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, price, created_at
		FROM order_items
		WHERE order_id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]OrderItem)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		out[item.OrderID] = append(out[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}
	return out, nil
}
