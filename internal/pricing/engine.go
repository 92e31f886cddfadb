package pricing

import "fmt"

// Money represents a monetary value stored in minor units (centavos).
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Tax      Money
	Discount Money
	Total    Money
}

// ApplyBps applies a basis-point rate to an amount, rounding half up to the
// minor unit. Non-positive amounts and rates yield zero.
func ApplyBps(amount Money, bps int) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Money(bps) + 5000) / 10000
}

// Subtotal sums unit price times quantity over all lines. Non-positive
// quantities contribute nothing.
func Subtotal(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	return subtotal
}

// Tax computes the tax owed on a subtotal at the given basis-point rate.
func Tax(subtotal Money, taxBps int) Money {
	return ApplyBps(subtotal, taxBps)
}

// Compute calculates cart totals given the provided inputs. Tax is levied on
// the full subtotal; the discount is capped at the subtotal and the grand
// total never goes below zero.
func Compute(items []Item, discount Money, taxBps int) Summary {
	subtotal := Subtotal(items)
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	tax := Tax(subtotal, taxBps)
	total := subtotal + tax - discount
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    total,
	}
}

// Format renders a Money value as a decimal string, e.g. 3360 -> "33.60".
func Format(m Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}
