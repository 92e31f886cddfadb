package checkout

import (
	"errors"
	"strings"
	"time"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/discount"
	"github.com/botika-labs/pos-api/internal/pricing"
)

var (
	// ErrValidationFailed is returned when a sale cannot be finalized.
	ErrValidationFailed = errors.New("checkout: validation failed")
	// ErrEmptyCart is returned when finalizing a cart with no lines.
	ErrEmptyCart = errors.New("checkout: cart is empty")
)

// PaymentMethod enumerates accepted tender kinds.
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentEWallet PaymentMethod = "e_wallet"
)

// ParsePaymentMethod normalises a wire value into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(value))) {
	case PaymentCash:
		return PaymentCash, nil
	case PaymentEWallet:
		return PaymentEWallet, nil
	default:
		return "", errors.New("checkout: unknown payment method")
	}
}

// Payment is the tender supplied by the operator.
type Payment struct {
	Method         PaymentMethod
	AmountTendered pricing.Money
}

// SaleLine is an immutable copy of a cart line captured on a sale record.
type SaleLine struct {
	ProductID     string        `json:"productId"`
	ProductName   string        `json:"productName"`
	Variant       cart.Variant  `json:"variant"`
	UnitPrice     pricing.Money `json:"unitPrice"`
	PiecesPerUnit int           `json:"piecesPerUnit"`
	Quantity      int           `json:"quantity"`
	Subtotal      pricing.Money `json:"subtotal"`
}

// SaleRecord is the immutable snapshot produced by a successful finalize.
// Producing the record ends the calculator's responsibility; persistence is
// a collaborator concern.
type SaleRecord struct {
	Lines              []SaleLine    `json:"lines"`
	Subtotal           pricing.Money `json:"subtotal"`
	Tax                pricing.Money `json:"tax"`
	Discount           pricing.Money `json:"discount"`
	Total              pricing.Money `json:"total"`
	Tendered           pricing.Money `json:"tendered"`
	Change             pricing.Money `json:"change"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	DiscountType       discount.Type `json:"discountType"`
	DiscountIDNumber   string        `json:"discountIdNumber,omitempty"`
	DiscountHolderName string        `json:"discountHolderName,omitempty"`
	OccurredAt         time.Time     `json:"occurredAt"`
}

// Calculator derives monetary totals from cart state and validates sales.
// All operations are pure with respect to the cart.
type Calculator struct {
	TaxBps    int
	Discounts discount.Engine
	Now       func() time.Time
}

func (c Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// TaxAmount returns the tax owed on the cart subtotal.
func (c Calculator) TaxAmount(ct *cart.Cart) pricing.Money {
	return pricing.Tax(ct.Subtotal(), c.TaxBps)
}

// DiscountAmount resolves the discount a policy grants against the cart.
func (c Calculator) DiscountAmount(ct *cart.Cart, p discount.Policy) pricing.Money {
	return c.Discounts.Amount(ct.Subtotal(), p)
}

// Summary computes the full pricing breakdown for the cart under a policy.
func (c Calculator) Summary(ct *cart.Cart, p discount.Policy) pricing.Summary {
	return pricing.Compute(ct.PricingItems(), c.DiscountAmount(ct, p), c.TaxBps)
}

// Total returns subtotal plus tax minus discount, floored at zero.
func (c Calculator) Total(ct *cart.Cart, p discount.Policy) pricing.Money {
	return c.Summary(ct, p).Total
}

// Change returns tendered minus total. A negative result signals
// insufficient payment; it is never clamped.
func (c Calculator) Change(ct *cart.Cart, pay Payment, p discount.Policy) pricing.Money {
	return pay.AmountTendered - c.Total(ct, p)
}

// CanFinalize reports whether the sale may proceed: every line within
// availability, the discount policy complete, and the tender covering the
// total.
func (c Calculator) CanFinalize(ct *cart.Cart, pay Payment, p discount.Policy) bool {
	return c.validate(ct, pay, p) == nil
}

func (c Calculator) validate(ct *cart.Cart, pay Payment, p discount.Policy) error {
	if ct.Len() == 0 {
		return ErrEmptyCart
	}
	for _, li := range ct.Items() {
		if li.Quantity > li.AvailableUnits {
			return cart.ErrInsufficientStock
		}
	}
	if p.Type != discount.TypeNone && p.Type != "" {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if pay.AmountTendered < c.Total(ct, p) {
		return errors.New("checkout: insufficient payment")
	}
	return nil
}

// Finalize validates the sale against the cart's current state and produces
// an immutable sale record. The cart itself is not mutated; callers clear it
// once the record has been accepted downstream.
func (c Calculator) Finalize(ct *cart.Cart, pay Payment, p discount.Policy) (SaleRecord, error) {
	if err := c.validate(ct, pay, p); err != nil {
		return SaleRecord{}, errors.Join(ErrValidationFailed, err)
	}
	summary := c.Summary(ct, p)
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
	return SaleRecord{
		Lines:              lines,
		Subtotal:           summary.Subtotal,
		Tax:                summary.Tax,
		Discount:           summary.Discount,
		Total:              summary.Total,
		Tendered:           pay.AmountTendered,
		Change:             pay.AmountTendered - summary.Total,
		PaymentMethod:      pay.Method,
		DiscountType:       p.Type,
		DiscountIDNumber:   p.IDNumber,
		DiscountHolderName: p.HolderName,
		OccurredAt:         c.now(),
	}, nil
}
