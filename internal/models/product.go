package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ProductStatusActive = "active"
	sizeOptionKey       = "size"
)

// Product is the catalog's view of a jersey. This service only reads it.
type Product struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	StockQuantity  int             `json:"stock_quantity"`
	Status         string          `json:"status"`
	SizeVariations []string        `json:"size_variations,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (p *Product) IsPurchasable() bool {
	return p.Status == ProductStatusActive
}

// ValidateOptions checks the size option against the sizes the product is offered in.
func (p *Product) ValidateOptions(opts LineOptions) error {
	if len(p.SizeVariations) == 0 {
		return nil
	}

	size, ok := opts[sizeOptionKey]
	if !ok {
		return fmt.Errorf("size is required, available: %v", p.SizeVariations)
	}

	if !slices.Contains(p.SizeVariations, size) {
		return fmt.Errorf("size %q is not available, available: %v", size, p.SizeVariations)
	}

	return nil
}

// PriceSnapshot is a point-in-time read of a product. Nothing is reserved.
type PriceSnapshot struct {
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	AvailableStock int             `json:"available_stock"`
}
