package cart

import (
	"errors"

	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/pricing"
)

var (
	// ErrOutOfStock is returned when a variant has no sellable units at all.
	ErrOutOfStock = errors.New("cart: variant out of stock")
	// ErrInsufficientStock is returned when the requested quantity exceeds availability.
	ErrInsufficientStock = errors.New("cart: insufficient stock for requested quantity")
	// ErrInvalidQuantity is returned when an add is attempted with a non-positive quantity.
	ErrInvalidQuantity = errors.New("cart: quantity must be positive")
)

// Variant identifies the packaging unit a product is sold in.
type Variant string

const (
	VariantPiece Variant = "piece"
	VariantBox   Variant = "box"
	VariantSheet Variant = "sheet"
)

// ParseVariant normalises a wire value into a Variant.
func ParseVariant(value string) (Variant, error) {
	switch Variant(value) {
	case VariantPiece, VariantBox, VariantSheet:
		return Variant(value), nil
	default:
		return "", errors.New("cart: unknown variant")
	}
}

// Defaults carries pack-size fallbacks for products that do not configure
// their own box or sheet contents.
type Defaults struct {
	PiecesPerBox   int
	PiecesPerSheet int
}

func (d Defaults) piecesPerBox() int {
	if d.PiecesPerBox > 0 {
		return d.PiecesPerBox
	}
	return 12
}

func (d Defaults) piecesPerSheet() int {
	if d.PiecesPerSheet > 0 {
		return d.PiecesPerSheet
	}
	return 1
}

// Product is the catalog snapshot the cart resolves variants against. Prices
// are minor units; nil box/sheet fields fall back to base price and Defaults.
type Product struct {
	ID             uuid.UUID
	Name           string
	BasePrice      pricing.Money
	BoxPrice       *pricing.Money
	SheetPrice     *pricing.Money
	PiecesPerBox   *int
	PiecesPerSheet *int
	Stock          int
}

// LineItem is one (product, variant) pairing with a quantity. UnitPrice,
// PiecesPerUnit and AvailableUnits are snapshots taken when the line was
// added or last refreshed.
type LineItem struct {
	ProductID      uuid.UUID     `json:"productId"`
	ProductName    string        `json:"productName"`
	Variant        Variant       `json:"variant"`
	UnitPrice      pricing.Money `json:"unitPrice"`
	PiecesPerUnit  int           `json:"piecesPerUnit"`
	Quantity       int           `json:"quantity"`
	AvailableUnits int           `json:"availableUnits"`
}

// Subtotal returns the line's extended price.
func (li LineItem) Subtotal() pricing.Money {
	return pricing.Money(li.Quantity) * li.UnitPrice
}

// Cart is an ordered sequence of line items keyed by (product, variant).
// It is owned by a single register session and is not safe for concurrent
// use; callers serialise access.
type Cart struct {
	items    []LineItem
	defaults Defaults
}

// New constructs an empty cart with the given pack-size defaults.
func New(defaults Defaults) *Cart {
	return &Cart{defaults: defaults}
}

// resolve derives unit price, pieces per unit and available units for a
// variant of the product.
func (c *Cart) resolve(p Product, v Variant) (unitPrice pricing.Money, piecesPerUnit int) {
	switch v {
	case VariantBox:
		unitPrice = p.BasePrice
		if p.BoxPrice != nil {
			unitPrice = *p.BoxPrice
		}
		piecesPerUnit = c.defaults.piecesPerBox()
		if p.PiecesPerBox != nil && *p.PiecesPerBox > 0 {
			piecesPerUnit = *p.PiecesPerBox
		}
	case VariantSheet:
		unitPrice = p.BasePrice
		if p.SheetPrice != nil {
			unitPrice = *p.SheetPrice
		}
		piecesPerUnit = c.defaults.piecesPerSheet()
		if p.PiecesPerSheet != nil && *p.PiecesPerSheet > 0 {
			piecesPerUnit = *p.PiecesPerSheet
		}
	default:
		unitPrice = p.BasePrice
		piecesPerUnit = 1
	}
	return unitPrice, piecesPerUnit
}

func (c *Cart) find(productID uuid.UUID, v Variant) int {
	for i := range c.items {
		if c.items[i].ProductID == productID && c.items[i].Variant == v {
			return i
		}
	}
	return -1
}

// AddItem resolves the variant against the product snapshot and inserts a new
// line or increments an existing one. The cart is left untouched when the
// variant is out of stock or the resulting quantity would exceed availability.
func (c *Cart) AddItem(p Product, v Variant, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	unitPrice, perUnit := c.resolve(p, v)
	available := 0
	if p.Stock > 0 && perUnit > 0 {
		available = p.Stock / perUnit
	}
	if available <= 0 {
		return ErrOutOfStock
	}
	if idx := c.find(p.ID, v); idx >= 0 {
		// Merge into the existing line, refreshing the availability snapshot.
		next := c.items[idx].Quantity + qty
		if next > available {
			return ErrInsufficientStock
		}
		c.items[idx].Quantity = next
		c.items[idx].AvailableUnits = available
		c.items[idx].UnitPrice = unitPrice
		c.items[idx].PiecesPerUnit = perUnit
		return nil
	}
	if qty > available {
		return ErrInsufficientStock
	}
	c.items = append(c.items, LineItem{
		ProductID:      p.ID,
		ProductName:    p.Name,
		Variant:        v,
		UnitPrice:      unitPrice,
		PiecesPerUnit:  perUnit,
		Quantity:       qty,
		AvailableUnits: available,
	})
	return nil
}

// UpdateQuantity replaces the quantity on a line. A quantity of zero or less
// removes the line. Updating an absent line is a no-op.
func (c *Cart) UpdateQuantity(productID uuid.UUID, v Variant, qty int) error {
	idx := c.find(productID, v)
	if idx < 0 {
		return nil
	}
	if qty <= 0 {
		c.RemoveItem(productID, v)
		return nil
	}
	if qty > c.items[idx].AvailableUnits {
		return ErrInsufficientStock
	}
	c.items[idx].Quantity = qty
	return nil
}

// RemoveItem deletes the matching line. Absent lines are a no-op.
func (c *Cart) RemoveItem(productID uuid.UUID, v Variant) {
	idx := c.find(productID, v)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
}

// Clear empties all lines.
func (c *Cart) Clear() {
	c.items = nil
}

// RefreshAvailability updates availability snapshots for every line of the
// product from fresh stock data. Quantities are untouched; a line whose
// quantity now exceeds availability fails validation at finalize time.
func (c *Cart) RefreshAvailability(p Product) {
	for i := range c.items {
		if c.items[i].ProductID != p.ID {
			continue
		}
		perUnit := c.items[i].PiecesPerUnit
		if perUnit <= 0 {
			perUnit = 1
		}
		available := 0
		if p.Stock > 0 {
			available = p.Stock / perUnit
		}
		c.items[i].AvailableUnits = available
	}
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the number of lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// ProductIDs returns the distinct products referenced by the cart.
func (c *Cart) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(c.items))
	out := make([]uuid.UUID, 0, len(c.items))
	for _, it := range c.items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		out = append(out, it.ProductID)
	}
	return out
}

// Subtotal returns the sum of extended line prices.
func (c *Cart) Subtotal() pricing.Money {
	var subtotal pricing.Money
	for _, it := range c.items {
		subtotal += it.Subtotal()
	}
	return subtotal
}

// PricingItems converts the cart lines into the pricing engine's input shape.
func (c *Cart) PricingItems() []pricing.Item {
	out := make([]pricing.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, pricing.Item{Qty: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}
