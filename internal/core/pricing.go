package core

import (
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// Quantity discount tiers, evaluated highest threshold first.
	// Tiers apply to the fulfilled quantity of a line (in-stock plus
	// restocked portions priced together), not the original request.
	discountTiers = []struct {
		Threshold int64
		Percent   decimal.Decimal
	}{
		{Threshold: 500, Percent: decimal.NewFromInt(15)},
		{Threshold: 100, Percent: decimal.NewFromInt(10)},
	}

	// Historical quotes may pull the unit price at most this far from the
	// catalog sell price in either direction.
	maxMarketAdjust = decimal.NewFromFloat(0.05)
)

// oneMinusPercent converts a percentage like 15 into the multiplier 0.85.
func oneMinusPercent(p decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Sub(p.Div(hundred))
}

// DiscountPercent returns the bulk discount for a fulfilled quantity.
func DiscountPercent(quantity int64) decimal.Decimal {
	for _, tier := range discountTiers {
		if quantity >= tier.Threshold {
			return tier.Percent
		}
	}
	return decimal.Zero
}

// PricingEngine computes quote lines from catalog prices, bulk discount tiers
// and an optional advisory quote history.
type PricingEngine struct{}

func NewPricingEngine() *PricingEngine {
	return &PricingEngine{}
}

// Price builds the quote line for a fulfilled quantity of an item.
// history is advisory: with an empty history the catalog sell price is used
// unmodified, which is always a valid (if less market-sensitive) result.
// The subtotal is rounded half-up to two decimal places once, at line level.
func (e *PricingEngine) Price(itemName string, quantity int64, sellUnitPrice decimal.Decimal, history []HistoricalQuote) QuoteLine {
	unit := e.adjustUnitPrice(sellUnitPrice, history)
	discount := DiscountPercent(quantity)
	subtotal := unit.Mul(decimal.NewFromInt(quantity)).Mul(oneMinusPercent(discount)).Round(2)

	return QuoteLine{
		ItemName:        itemName,
		Quantity:        quantity,
		UnitPrice:       unit,
		DiscountPercent: discount,
		Subtotal:        subtotal,
	}
}

// adjustUnitPrice nudges the catalog sell price toward the average historical
// quoted unit price, clamped to maxMarketAdjust of the catalog price in
// either direction.
func (e *PricingEngine) adjustUnitPrice(sellUnitPrice decimal.Decimal, history []HistoricalQuote) decimal.Decimal {
	if len(history) == 0 || sellUnitPrice.IsZero() {
		return sellUnitPrice
	}

	sum := decimal.Zero
	n := 0
	for _, h := range history {
		if h.UnitPrice.IsPositive() {
			sum = sum.Add(h.UnitPrice)
			n++
		}
	}
	if n == 0 {
		return sellUnitPrice
	}
	avg := sum.Div(decimal.NewFromInt(int64(n)))

	low := sellUnitPrice.Mul(decimal.NewFromInt(1).Sub(maxMarketAdjust))
	high := sellUnitPrice.Mul(decimal.NewFromInt(1).Add(maxMarketAdjust))
	switch {
	case avg.LessThan(low):
		avg = low
	case avg.GreaterThan(high):
		avg = high
	}
	return avg.Round(2)
}
