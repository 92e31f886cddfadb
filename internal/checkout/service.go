package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/discount"
	"github.com/botika-labs/pos-api/internal/events"
	"github.com/botika-labs/pos-api/internal/obs"
	"github.com/botika-labs/pos-api/internal/pricing"
)

// CartSource exposes a session's cart for exclusive use while fn runs.
// The session registry implements it.
type CartSource interface {
	WithCart(ctx context.Context, sessionID uuid.UUID, fn func(*cart.Cart) error) error
}

// Snapshots provides current product state for pre-finalize revalidation.
type Snapshots interface {
	Snapshot(ctx context.Context, productID uuid.UUID) (cart.Product, error)
}

// LowStockAlert flags a product whose stock crossed its threshold during a
// sale.
type LowStockAlert struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Stock     int       `json:"stock"`
	Threshold int       `json:"threshold"`
}

// PersistResult is what the sale store reports back after committing.
type PersistResult struct {
	SaleID   uuid.UUID
	Number   string
	LowStock []LowStockAlert
}

// Persister commits a finalized sale record atomically, including stock
// decrements.
type Persister interface {
	Persist(ctx context.Context, rec SaleRecord, currency string) (PersistResult, error)
}

// Quote is the non-committing pricing preview for a session's cart.
type Quote struct {
	Lines    []SaleLine      `json:"lines"`
	Summary  pricing.Summary `json:"summary"`
	Tendered *pricing.Money  `json:"tendered,omitempty"`
	Change   *pricing.Money  `json:"change,omitempty"`
	Payable  bool            `json:"payable"`
}

// Receipt is the API-facing result of a committed checkout.
type Receipt struct {
	SaleID   uuid.UUID       `json:"saleId"`
	Number   string          `json:"number"`
	Record   SaleRecord      `json:"record"`
	LowStock []LowStockAlert `json:"lowStock,omitempty"`
}

// Service runs quotes and checkouts against session carts.
type Service struct {
	Carts    CartSource
	Catalog  Snapshots
	Sales    Persister
	Events   *events.Bus
	Calc     Calculator
	Currency string
	Logger   zerolog.Logger
}

// refresh re-resolves availability for every cart line from live product
// state; quantities are left alone so validation can catch overselling.
func (s *Service) refresh(ctx context.Context, ct *cart.Cart) error {
	for _, id := range ct.ProductIDs() {
		p, err := s.Catalog.Snapshot(ctx, id)
		if err != nil {
			return fmt.Errorf("refresh product %s: %w", id, err)
		}
		ct.RefreshAvailability(p)
	}
	return nil
}

// Quote prices the session's cart under a policy and, when a tender amount
// is supplied, reports the change due and whether the sale could proceed.
func (s *Service) Quote(ctx context.Context, sessionID uuid.UUID, p discount.Policy, pay *Payment) (Quote, error) {
	var q Quote
	err := s.Carts.WithCart(ctx, sessionID, func(ct *cart.Cart) error {
		if err := s.refresh(ctx, ct); err != nil {
			return err
		}
		summary := s.Calc.Summary(ct, p)
		q = Quote{Summary: summary, Lines: saleLines(ct)}
		if pay != nil {
			change := pay.AmountTendered - summary.Total
			q.Tendered = &pay.AmountTendered
			q.Change = &change
			q.Payable = s.Calc.CanFinalize(ct, *pay, p)
		}
		return nil
	})
	return q, err
}

// Checkout finalizes the session's cart, persists the sale, publishes the
// completion event, and clears the cart. The cart survives untouched on any
// failure before the commit.
func (s *Service) Checkout(ctx context.Context, sessionID uuid.UUID, pay Payment, p discount.Policy) (Receipt, error) {
	var receipt Receipt
	err := s.Carts.WithCart(ctx, sessionID, func(ct *cart.Cart) error {
		if err := s.refresh(ctx, ct); err != nil {
			return err
		}
		rec, err := s.Calc.Finalize(ct, pay, p)
		if err != nil {
			return err
		}
		res, err := s.Sales.Persist(ctx, rec, s.Currency)
		if err != nil {
			return err
		}
		receipt = Receipt{SaleID: res.SaleID, Number: res.Number, Record: rec, LowStock: res.LowStock}
		ct.Clear()
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	obs.RecordSale(string(receipt.Record.PaymentMethod), string(receipt.Record.DiscountType), receipt.Record.Total)
	if len(receipt.LowStock) > 0 {
		obs.RecordLowStockEvent()
	}

	if s.Events != nil {
		payload := map[string]any{
			"number":   receipt.Number,
			"total":    receipt.Record.Total,
			"tendered": receipt.Record.Tendered,
			"change":   receipt.Record.Change,
			"method":   receipt.Record.PaymentMethod,
		}
		if _, err := s.Events.Emit(ctx, events.TopicSaleCompleted, receipt.SaleID, payload); err != nil {
			s.Logger.Error().Err(err).Str("sale", receipt.Number).Msg("sale completed event not fully delivered")
		}
	}
	return receipt, nil
}

func saleLines(ct *cart.Cart) []SaleLine {
	items := ct.Items()
	lines := make([]SaleLine, 0, len(items))
	for _, li := range items {
		lines = append(lines, SaleLine{
			ProductID:     li.ProductID.String(),
			ProductName:   li.ProductName,
			Variant:       li.Variant,
			UnitPrice:     li.UnitPrice,
			PiecesPerUnit: li.PiecesPerUnit,
			Quantity:      li.Quantity,
			Subtotal:      li.Subtotal(),
		})
	}
	return lines
}
