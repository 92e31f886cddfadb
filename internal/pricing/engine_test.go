package pricing

import (
	"math/rand"
	"testing"
)

func TestApplyBpsRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount Money
		bps    int
		want   Money
	}{
		{3000, 1200, 360},  // 30.00 at 12% -> 3.60 exactly
		{1005, 1200, 121},  // 120.6 rounds up
		{1004, 1200, 120},  // 120.48 rounds down
		{125, 1200, 15},    // 15.0 exactly
		{104, 1200, 12},    // 12.48 rounds down
		{0, 1200, 0},
		{-500, 1200, 0},
		{1000, 0, 0},
	}
	for _, tc := range cases {
		if got := ApplyBps(tc.amount, tc.bps); got != tc.want {
			t.Fatalf("ApplyBps(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestComputeNoDiscount(t *testing.T) {
	// One line: 10.00 x 3 at 12% tax.
	items := []Item{{Qty: 3, UnitPrice: 1000}}
	s := Compute(items, 0, 1200)
	if s.Subtotal != 3000 {
		t.Fatalf("subtotal = %d, want 3000", s.Subtotal)
	}
	if s.Tax != 360 {
		t.Fatalf("tax = %d, want 360", s.Tax)
	}
	if s.Total != 3360 {
		t.Fatalf("total = %d, want 3360", s.Total)
	}
	if s.Total != s.Subtotal+s.Tax {
		t.Fatalf("total without discount must equal subtotal+tax")
	}
}

func TestComputeWithDiscount(t *testing.T) {
	items := []Item{{Qty: 3, UnitPrice: 1000}}
	discount := ApplyBps(3000, 1000) // 10% of 30.00
	if discount != 300 {
		t.Fatalf("discount = %d, want 300", discount)
	}
	s := Compute(items, discount, 1200)
	if s.Total != 3060 {
		t.Fatalf("total = %d, want 3060", s.Total)
	}
}

func TestComputeDiscountCappedAtSubtotal(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 500}}
	s := Compute(items, 10_000, 1200)
	if s.Discount != 500 {
		t.Fatalf("discount = %d, want cap at subtotal 500", s.Discount)
	}
	if s.Total != s.Tax {
		t.Fatalf("total = %d, want tax only %d", s.Total, s.Tax)
	}
}

func TestComputeIgnoresNonPositiveQty(t *testing.T) {
	items := []Item{{Qty: 0, UnitPrice: 999}, {Qty: -2, UnitPrice: 999}, {Qty: 2, UnitPrice: 150}}
	if got := Subtotal(items); got != 300 {
		t.Fatalf("subtotal = %d, want 300", got)
	}
}

func TestSubtotalMatchesSumForRandomCarts(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		n := rng.Intn(20)
		items := make([]Item, 0, n)
		var want Money
		for j := 0; j < n; j++ {
			qty := rng.Intn(50) + 1
			price := Money(rng.Intn(100_000))
			items = append(items, Item{Qty: qty, UnitPrice: price})
			want += Money(qty) * price
		}
		if got := Subtotal(items); got != want {
			t.Fatalf("iteration %d: subtotal = %d, want %d", i, got, want)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := map[Money]string{
		3360:  "33.60",
		-60:   "-0.60",
		0:     "0.00",
		5:     "0.05",
		12345: "123.45",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Fatalf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}
