package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/pricing"
)

func testProduct(price pricing.Money, stock int) cart.Product {
	return cart.Product{ID: uuid.New(), Name: "Paracetamol 500mg", BasePrice: price, Stock: stock}
}

func TestRegistryOpenGetClose(t *testing.T) {
	reg := NewRegistry(time.Hour, cart.Defaults{})

	info := reg.Open()
	require.NotEqual(t, uuid.Nil, info.ID)
	assert.Empty(t, info.Items)

	got, err := reg.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Zero(t, got.Subtotal)

	require.NoError(t, reg.Close(info.ID))
	_, err = reg.Get(info.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, reg.Close(info.ID), ErrNotFound)
}

func TestRegistryWithCart(t *testing.T) {
	reg := NewRegistry(time.Hour, cart.Defaults{})
	info := reg.Open()

	p := testProduct(1500, 10)
	err := reg.WithCart(context.Background(), info.ID, func(ct *cart.Cart) error {
		return ct.AddItem(p, cart.VariantPiece, 2)
	})
	require.NoError(t, err)

	got, err := reg.Get(info.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, pricing.Money(3000), got.Subtotal)

	err = reg.WithCart(context.Background(), uuid.New(), func(*cart.Cart) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryWithCartHonorsContext(t *testing.T) {
	reg := NewRegistry(time.Hour, cart.Defaults{})
	info := reg.Open()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := reg.WithCart(ctx, info.ID, func(*cart.Cart) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestRegistrySweep(t *testing.T) {
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	reg := NewRegistry(time.Hour, cart.Defaults{})
	reg.Now = func() time.Time { return now }

	stale := reg.Open()
	now = now.Add(2 * time.Hour)
	fresh := reg.Open()

	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())

	_, err := reg.Get(stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestRegistryConcurrentCartAccess(t *testing.T) {
	reg := NewRegistry(time.Hour, cart.Defaults{})
	info := reg.Open()
	p := testProduct(100, 10_000)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.WithCart(context.Background(), info.ID, func(ct *cart.Cart) error {
				return ct.AddItem(p, cart.VariantPiece, 1)
			})
		}()
	}
	wg.Wait()

	got, err := reg.Get(info.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 50, got.Items[0].Quantity)
}

func TestRegistrySweepDuringCartAccess(t *testing.T) {
	reg := NewRegistry(time.Hour, cart.Defaults{})
	info := reg.Open()
	p := testProduct(100, 10_000)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = reg.WithCart(context.Background(), info.ID, func(ct *cart.Cart) error {
				return ct.AddItem(p, cart.VariantPiece, 1)
			})
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			reg.Sweep()
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(done)
	wg.Wait()

	// The session stays active the whole time, so the sweeper must not
	// have reclaimed it.
	_, err := reg.Get(info.ID)
	assert.NoError(t, err)
}
