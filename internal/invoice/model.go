package invoice

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Category classifies an expense invoice for the back-office reports.
type Category string

const (
	CategoryIngredients Category = "INGREDIENTS"
	CategoryBeverages   Category = "BEVERAGES"
	CategorySupplies    Category = "SUPPLIES"
	CategoryEquipment   Category = "EQUIPMENT"
	CategoryServices    Category = "SERVICES"
	CategoryOther       Category = "OTHER"
)

func (c Category) Known() bool {
	switch c {
	case CategoryIngredients, CategoryBeverages, CategorySupplies,
		CategoryEquipment, CategoryServices, CategoryOther:
		return true
	}
	return false
}

type InvoiceItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type Invoice struct {
	ID       uuid.UUID       `json:"id"`
	Date     time.Time       `json:"date"`
	Supplier string          `json:"supplier"`
	Category Category        `json:"category"`
	Total    decimal.Decimal `json:"total"` // always derived from items
	Items    []InvoiceItem   `json:"items"`
}
