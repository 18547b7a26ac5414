package product

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Active     bool            `json:"active"`
	CategoryID uuid.NullUUID   `json:"category_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
