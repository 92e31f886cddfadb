package sales

import (
	"time"

	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/pricing"
)

// Sale is a persisted, immutable record of a completed checkout.
type Sale struct {
	ID                 uuid.UUID     `json:"id"`
	Number             string        `json:"number"`
	Subtotal           pricing.Money `json:"subtotal"`
	Tax                pricing.Money `json:"tax"`
	Discount           pricing.Money `json:"discount"`
	Total              pricing.Money `json:"total"`
	Tendered           pricing.Money `json:"tendered"`
	Change             pricing.Money `json:"change"`
	PaymentMethod      string        `json:"paymentMethod"`
	DiscountType       string        `json:"discountType"`
	DiscountIDNumber   string        `json:"discountIdNumber,omitempty"`
	DiscountHolderName string        `json:"discountHolderName,omitempty"`
	Currency           string        `json:"currency"`
	CreatedAt          time.Time     `json:"createdAt"`
	Items              []Item        `json:"items,omitempty"`
}

// Item is one sold line on a sale.
type Item struct {
	ID            uuid.UUID     `json:"id"`
	SaleID        uuid.UUID     `json:"saleId"`
	ProductID     uuid.UUID     `json:"productId"`
	ProductName   string        `json:"productName"`
	Variant       string        `json:"variant"`
	UnitPrice     pricing.Money `json:"unitPrice"`
	PiecesPerUnit int           `json:"piecesPerUnit"`
	Quantity      int           `json:"quantity"`
	Subtotal      pricing.Money `json:"subtotal"`
}

// DailySummary aggregates one day of sales for the dashboard.
type DailySummary struct {
	Day           string        `json:"day"`
	SaleCount     int64         `json:"saleCount"`
	GrossSubtotal pricing.Money `json:"grossSubtotal"`
	TotalDiscount pricing.Money `json:"totalDiscount"`
	TotalTax      pricing.Money `json:"totalTax"`
	NetTotal      pricing.Money `json:"netTotal"`
}

// ListParams filters the sales history listing.
type ListParams struct {
	From  *time.Time
	To    *time.Time
	Page  int
	Limit int
}
