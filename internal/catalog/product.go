package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/pricing"
)

// Product is a pharmacy catalog entry. Box and sheet pricing is optional;
// unset fields fall back to base price and the configured pack-size defaults
// when a variant is resolved.
type Product struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	GenericName       string         `json:"genericName,omitempty"`
	Category          string         `json:"category,omitempty"`
	BasePrice         pricing.Money  `json:"basePrice"`
	BoxPrice          *pricing.Money `json:"boxPrice,omitempty"`
	SheetPrice        *pricing.Money `json:"sheetPrice,omitempty"`
	PiecesPerBox      *int           `json:"piecesPerBox,omitempty"`
	PiecesPerSheet    *int           `json:"piecesPerSheet,omitempty"`
	StockQuantity     int            `json:"stockQuantity"`
	LowStockThreshold int            `json:"lowStockThreshold"`
	ExpiresAt         *time.Time     `json:"expiresAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Snapshot converts the product into the cart's resolution input.
func (p Product) Snapshot() cart.Product {
	return cart.Product{
		ID:             p.ID,
		Name:           p.Name,
		BasePrice:      p.BasePrice,
		BoxPrice:       p.BoxPrice,
		SheetPrice:     p.SheetPrice,
		PiecesPerBox:   p.PiecesPerBox,
		PiecesPerSheet: p.PiecesPerSheet,
		Stock:          p.StockQuantity,
	}
}

// LowOnStock reports whether the product sits at or below its threshold.
func (p Product) LowOnStock() bool {
	return p.LowStockThreshold > 0 && p.StockQuantity <= p.LowStockThreshold
}

// Input captures payload for creating or updating a product.
type Input struct {
	Name              string         `json:"name" validate:"required"`
	GenericName       string         `json:"genericName"`
	Category          string         `json:"category"`
	BasePrice         pricing.Money  `json:"basePrice" validate:"gte=0"`
	BoxPrice          *pricing.Money `json:"boxPrice" validate:"omitempty,gte=0"`
	SheetPrice        *pricing.Money `json:"sheetPrice" validate:"omitempty,gte=0"`
	PiecesPerBox      *int           `json:"piecesPerBox" validate:"omitempty,gte=1"`
	PiecesPerSheet    *int           `json:"piecesPerSheet" validate:"omitempty,gte=1"`
	StockQuantity     int            `json:"stockQuantity" validate:"gte=0"`
	LowStockThreshold int            `json:"lowStockThreshold" validate:"gte=0"`
	ExpiresAt         *time.Time     `json:"expiresAt"`
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
	Limit    int
}
