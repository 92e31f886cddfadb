package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/discount"
	"github.com/botika-labs/pos-api/internal/pricing"
	"github.com/botika-labs/pos-api/internal/session"
)

type fakeSnapshots struct {
	products map[uuid.UUID]cart.Product
}

func (f *fakeSnapshots) Snapshot(_ context.Context, id uuid.UUID) (cart.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return cart.Product{}, errors.New("no such product")
	}
	return p, nil
}

type fakePersister struct {
	calls  []SaleRecord
	result PersistResult
	err    error
}

func (f *fakePersister) Persist(_ context.Context, rec SaleRecord, _ string) (PersistResult, error) {
	f.calls = append(f.calls, rec)
	if f.err != nil {
		return PersistResult{}, f.err
	}
	return f.result, nil
}

func newTestService(t *testing.T, snaps *fakeSnapshots, persist *fakePersister) (*Service, *session.Registry) {
	t.Helper()
	reg := session.NewRegistry(time.Hour, cart.Defaults{})
	svc := &Service{
		Carts:    reg,
		Catalog:  snaps,
		Sales:    persist,
		Calc:     Calculator{TaxBps: 1200, Discounts: discount.Engine{SeniorPWDBps: 2000}},
		Currency: "PHP",
		Logger:   zerolog.Nop(),
	}
	return svc, reg
}

func seedCart(t *testing.T, reg *session.Registry, id uuid.UUID, p cart.Product, qty int) {
	t.Helper()
	err := reg.WithCart(context.Background(), id, func(ct *cart.Cart) error {
		return ct.AddItem(p, cart.VariantPiece, qty)
	})
	require.NoError(t, err)
}

func TestServiceCheckout(t *testing.T) {
	product := cart.Product{ID: uuid.New(), Name: "Amoxicillin 500mg", BasePrice: 1000, Stock: 50}
	snaps := &fakeSnapshots{products: map[uuid.UUID]cart.Product{product.ID: product}}
	saleID := uuid.New()
	persist := &fakePersister{result: PersistResult{SaleID: saleID, Number: "POS-20260309-0001"}}
	svc, reg := newTestService(t, snaps, persist)

	info := reg.Open()
	seedCart(t, reg, info.ID, product, 3)

	receipt, err := svc.Checkout(context.Background(), info.ID,
		Payment{Method: PaymentCash, AmountTendered: 5000}, discount.None())
	require.NoError(t, err)

	assert.Equal(t, saleID, receipt.SaleID)
	assert.Equal(t, "POS-20260309-0001", receipt.Number)
	assert.Equal(t, pricing.Money(3000), receipt.Record.Subtotal)
	assert.Equal(t, pricing.Money(360), receipt.Record.Tax)
	assert.Equal(t, pricing.Money(3360), receipt.Record.Total)
	assert.Equal(t, pricing.Money(1640), receipt.Record.Change)
	require.Len(t, persist.calls, 1)

	// cart is cleared once the sale is committed
	got, err := reg.Get(info.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestServiceCheckoutPersistFailureKeepsCart(t *testing.T) {
	product := cart.Product{ID: uuid.New(), Name: "Amoxicillin 500mg", BasePrice: 1000, Stock: 50}
	snaps := &fakeSnapshots{products: map[uuid.UUID]cart.Product{product.ID: product}}
	persist := &fakePersister{err: errors.New("db down")}
	svc, reg := newTestService(t, snaps, persist)

	info := reg.Open()
	seedCart(t, reg, info.ID, product, 2)

	_, err := svc.Checkout(context.Background(), info.ID,
		Payment{Method: PaymentCash, AmountTendered: 5000}, discount.None())
	require.Error(t, err)

	got, err := reg.Get(info.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestServiceCheckoutRefreshCatchesShrunkStock(t *testing.T) {
	product := cart.Product{ID: uuid.New(), Name: "Amoxicillin 500mg", BasePrice: 1000, Stock: 50}
	snaps := &fakeSnapshots{products: map[uuid.UUID]cart.Product{product.ID: product}}
	persist := &fakePersister{}
	svc, reg := newTestService(t, snaps, persist)

	info := reg.Open()
	seedCart(t, reg, info.ID, product, 10)

	// another register sold most of the stock in the meantime
	shrunk := product
	shrunk.Stock = 4
	snaps.products[product.ID] = shrunk

	_, err := svc.Checkout(context.Background(), info.ID,
		Payment{Method: PaymentCash, AmountTendered: 50_000}, discount.None())
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, err, cart.ErrInsufficientStock)
	assert.Empty(t, persist.calls)
}

func TestServiceQuote(t *testing.T) {
	product := cart.Product{ID: uuid.New(), Name: "Cetirizine 10mg", BasePrice: 1500, Stock: 20}
	snaps := &fakeSnapshots{products: map[uuid.UUID]cart.Product{product.ID: product}}
	svc, reg := newTestService(t, snaps, &fakePersister{})

	info := reg.Open()
	seedCart(t, reg, info.ID, product, 2)

	pay := Payment{Method: PaymentCash, AmountTendered: 3000}
	quote, err := svc.Quote(context.Background(), info.ID, discount.None(), &pay)
	require.NoError(t, err)

	assert.Equal(t, pricing.Money(3000), quote.Summary.Subtotal)
	assert.Equal(t, pricing.Money(360), quote.Summary.Tax)
	assert.Equal(t, pricing.Money(3360), quote.Summary.Total)
	require.NotNil(t, quote.Change)
	assert.Equal(t, pricing.Money(-360), *quote.Change)
	assert.False(t, quote.Payable)

	// quoting never consumes the cart
	got, err := reg.Get(info.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestServiceQuoteUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, &fakeSnapshots{}, &fakePersister{})
	_, err := svc.Quote(context.Background(), uuid.New(), discount.None(), nil)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
