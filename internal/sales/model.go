package sales

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Source string

const (
	SourceOrder  Source = "ORDER"
	SourceManual Source = "MANUAL"
)

type SaleItem struct {
	ID         uuid.UUID       `json:"id"`
	SaleID     uuid.UUID       `json:"sale_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type Sale struct {
	ID      uuid.UUID       `json:"id"`
	Date    time.Time       `json:"date"`
	Source  Source          `json:"source"`
	OrderID uuid.NullUUID   `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
	Items   []SaleItem      `json:"items"`
}

// Stats is the aggregate the dashboard charts consume.
type Stats struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	TotalSales decimal.Decimal `json:"totalSales"`
	OrderCount int             `json:"orderCount"`
	Products   []ProductStat   `json:"products"`
}

type ProductStat struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}
