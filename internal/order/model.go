package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusReceived  Status = "RECEIVED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusReceived, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// allowedTransitions is the full lifecycle: orders only move forward,
// and only open orders can be cancelled. DELIVERED and CANCELLED are
// terminal.
var allowedTransitions = map[Status]map[Status]bool{
	StatusReceived: {
		StatusPreparing: true,
		StatusCancelled: true,
	},
	StatusPreparing: {
		StatusReady:     true,
		StatusCancelled: true,
	},
	StatusReady: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether moving from one status to another is
// allowed by the lifecycle table.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	return ok && next[to]
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"` // snapshot of the product price at order time
	CreatedAt   time.Time       `json:"created_at"`
}

type Order struct {
	ID            uuid.UUID       `json:"id"`
	Status        Status          `json:"status"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	PickupTime    string          `json:"pickup_time"` // HH:MM
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
