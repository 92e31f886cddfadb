package cart

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/pricing"
)

func moneyPtr(m pricing.Money) *pricing.Money { return &m }
func intPtr(i int) *int                       { return &i }

func paracetamol() Product {
	return Product{
		ID:             uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Name:           "Paracetamol 500mg",
		BasePrice:      1000,
		BoxPrice:       moneyPtr(10_000),
		SheetPrice:     moneyPtr(4500),
		PiecesPerBox:   intPtr(12),
		PiecesPerSheet: intPtr(5),
		Stock:          60,
	}
}

func TestAddItemPieceResolvesBasePrice(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	if err := c.AddItem(p, VariantPiece, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(items))
	}
	li := items[0]
	if li.UnitPrice != 1000 || li.PiecesPerUnit != 1 || li.AvailableUnits != 60 {
		t.Fatalf("unexpected piece resolution: %+v", li)
	}
	if c.Subtotal() != 3000 {
		t.Fatalf("subtotal = %d, want 3000", c.Subtotal())
	}
}

func TestAddItemBoxAndSheetResolution(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	if err := c.AddItem(p, VariantBox, 1); err != nil {
		t.Fatalf("add box: %v", err)
	}
	if err := c.AddItem(p, VariantSheet, 2); err != nil {
		t.Fatalf("add sheet: %v", err)
	}
	items := c.Items()
	if items[0].UnitPrice != 10_000 || items[0].PiecesPerUnit != 12 || items[0].AvailableUnits != 5 {
		t.Fatalf("unexpected box resolution: %+v", items[0])
	}
	if items[1].UnitPrice != 4500 || items[1].PiecesPerUnit != 5 || items[1].AvailableUnits != 12 {
		t.Fatalf("unexpected sheet resolution: %+v", items[1])
	}
}

func TestAddItemDefaultsPackSizes(t *testing.T) {
	c := New(Defaults{})
	p := Product{ID: uuid.New(), Name: "Amoxicillin", BasePrice: 800, Stock: 24}
	if err := c.AddItem(p, VariantBox, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	li := c.Items()[0]
	// Unconfigured box falls back to 12 pieces at base price.
	if li.PiecesPerUnit != 12 || li.UnitPrice != 800 || li.AvailableUnits != 2 {
		t.Fatalf("unexpected defaults: %+v", li)
	}
}

func TestAddItemMergesSameProductVariant(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	if err := c.AddItem(p, VariantPiece, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.AddItem(p, VariantPiece, 3); err != nil {
		t.Fatalf("add again: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected merge into 1 line, got %d", c.Len())
	}
	if c.Items()[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", c.Items()[0].Quantity)
	}
}

func TestAddItemOutOfStock(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	p.Stock = 0
	if err := c.AddItem(p, VariantPiece, 1); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	// Box of 12 from 10 pieces on hand: zero sellable boxes.
	p.Stock = 10
	if err := c.AddItem(p, VariantBox, 1); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock for fractional box, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("cart must stay empty, got %d lines", c.Len())
	}
}

func TestAddItemInsufficientStockLeavesCartUnchanged(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	if err := c.AddItem(p, VariantPiece, 50); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := c.Items()
	if err := c.AddItem(p, VariantPiece, 11); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	after := c.Items()
	if len(before) != len(after) || before[0].Quantity != after[0].Quantity {
		t.Fatalf("cart mutated by failed add: before %+v after %+v", before, after)
	}
}

func TestUpdateQuantity(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	if err := c.AddItem(p, VariantPiece, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.UpdateQuantity(p.ID, VariantPiece, 10); err != nil {
		t.Fatalf("update: %v", err)
	}
	if c.Items()[0].Quantity != 10 {
		t.Fatalf("quantity = %d, want 10", c.Items()[0].Quantity)
	}
	if err := c.UpdateQuantity(p.ID, VariantPiece, 61); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if c.Items()[0].Quantity != 10 {
		t.Fatalf("failed update must not change quantity")
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	if err := c.AddItem(p, VariantPiece, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.AddItem(p, VariantSheet, 1); err != nil {
		t.Fatalf("add sheet: %v", err)
	}
	if err := c.UpdateQuantity(p.ID, VariantPiece, 0); err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected exactly one line removed, got %d lines", c.Len())
	}
	if c.Items()[0].Variant != VariantSheet {
		t.Fatalf("wrong line removed")
	}
}

func TestUpdateAndRemoveAbsentLineIsNoop(t *testing.T) {
	c := New(Defaults{})
	if err := c.UpdateQuantity(uuid.New(), VariantPiece, 5); err != nil {
		t.Fatalf("update absent: %v", err)
	}
	c.RemoveItem(uuid.New(), VariantBox)
	if c.Len() != 0 {
		t.Fatalf("cart must stay empty")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	if err := c.AddItem(p, VariantPiece, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cart after clear")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cart after second clear")
	}
}

func TestRefreshAvailability(t *testing.T) {
	c := New(Defaults{})
	p := paracetamol()
	if err := c.AddItem(p, VariantPiece, 30); err != nil {
		t.Fatalf("add: %v", err)
	}
	p.Stock = 20
	c.RefreshAvailability(p)
	li := c.Items()[0]
	if li.AvailableUnits != 20 {
		t.Fatalf("available = %d, want 20", li.AvailableUnits)
	}
	// Quantity stays; the invariant is enforced at finalize time.
	if li.Quantity != 30 {
		t.Fatalf("quantity = %d, want 30", li.Quantity)
	}
}

// The availability invariant must hold after any successful mutation.
func TestQuantityNeverExceedsAvailabilityUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	products := []Product{paracetamol()}
	for i := 0; i < 4; i++ {
		products = append(products, Product{
			ID:        uuid.New(),
			Name:      "Generic",
			BasePrice: pricing.Money(rng.Intn(5000) + 1),
			Stock:     rng.Intn(100),
		})
	}
	variants := []Variant{VariantPiece, VariantBox, VariantSheet}
	c := New(Defaults{})
	for op := 0; op < 2000; op++ {
		p := products[rng.Intn(len(products))]
		v := variants[rng.Intn(len(variants))]
		switch rng.Intn(4) {
		case 0:
			_ = c.AddItem(p, v, rng.Intn(5)+1)
		case 1:
			_ = c.UpdateQuantity(p.ID, v, rng.Intn(12))
		case 2:
			c.RemoveItem(p.ID, v)
		case 3:
			if rng.Intn(20) == 0 {
				c.Clear()
			}
		}
		for _, li := range c.Items() {
			if li.Quantity > li.AvailableUnits {
				t.Fatalf("op %d: invariant broken: qty %d > available %d (%s/%s)",
					op, li.Quantity, li.AvailableUnits, li.ProductName, li.Variant)
			}
			if li.Quantity <= 0 {
				t.Fatalf("op %d: non-positive quantity retained", op)
			}
		}
	}
}
