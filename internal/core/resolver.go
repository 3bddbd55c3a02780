package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decision is the resolver's overall verdict on a request.
type Decision string

const (
	// Proceed: every line is fully coverable from stock and feasible restocks.
	Proceed Decision = "PROCEED"
	// PartialProceed: at least one line is partly coverable.
	PartialProceed Decision = "PARTIAL_PROCEED"
	// Decline: no line has any fulfillable or restockable quantity.
	Decline Decision = "DECLINE"
)

// Resolution is the resolver's best-effort partition of a request.
type Resolution struct {
	Lines         []ResolvedLine
	RestockOrders []RestockOrder
	Decision      Decision
}

// AvailabilityResolver partitions requested lines into fulfillable-now,
// restockable and unfulfillable quantities. It is pure computation over a
// catalog snapshot and a cash balance; it never touches the store.
type AvailabilityResolver struct {
	estimate DeliveryEstimator
}

func NewAvailabilityResolver(estimate DeliveryEstimator) *AvailabilityResolver {
	if estimate == nil {
		estimate = DefaultDeliveryEstimator
	}
	return &AvailabilityResolver{estimate: estimate}
}

// Resolve partitions each requested line and decides tentative restock orders
// subject to the delivery deadline and the cash balance.
//
// Restock candidates compete for cash in request order: earlier lines keep
// their full restock while it fits, the first candidate that no longer fits is
// reduced to the largest affordable unit count, and everything after gets
// whatever cash remains. Dropped units move to the unfulfillable portion and
// are reported on the line, never silently discarded.
func (r *AvailabilityResolver) Resolve(requested []RequestedLine, constraint DeliveryConstraint, catalog map[string]CatalogItem, cashBalance decimal.Decimal) Resolution {
	// Work on a mutable copy of stock levels so duplicate item names in one
	// request cannot allocate the same units twice.
	stock := make(map[string]int64, len(catalog))
	for name, item := range catalog {
		stock[name] = item.StockQuantity
	}

	res := Resolution{Lines: make([]ResolvedLine, 0, len(requested))}

	for _, req := range requested {
		line := ResolvedLine{ItemName: req.ItemName, RequestedQuantity: req.Quantity}

		item, ok := catalog[req.ItemName]
		if !ok {
			line.UnfulfillableQuantity = req.Quantity
			line.Issue = fmt.Sprintf("%q is not in the catalog", req.ItemName)
			res.Lines = append(res.Lines, line)
			continue
		}

		available := min64(req.Quantity, stock[req.ItemName])
		stock[req.ItemName] -= available
		line.FulfillableQuantity = available

		shortfall := req.Quantity - available
		if shortfall > 0 {
			delivery := r.estimate(req.ItemName, shortfall, constraint.RequestDate)
			if constraint.RequiredByDate != nil && delivery.After(*constraint.RequiredByDate) {
				line.UnfulfillableQuantity = shortfall
				line.Issue = fmt.Sprintf("supplier delivery on %s misses the %s deadline",
					delivery.Format("2006-01-02"), constraint.RequiredByDate.Format("2006-01-02"))
			} else {
				line.RestockQuantity = shortfall
				res.RestockOrders = append(res.RestockOrders, RestockOrder{
					ItemName:     req.ItemName,
					Units:        shortfall,
					UnitCost:     item.BuyUnitPrice,
					TotalCost:    item.BuyUnitPrice.Mul(decimal.NewFromInt(shortfall)),
					DeliveryDate: delivery,
				})
			}
		}
		res.Lines = append(res.Lines, line)
	}

	res.RestockOrders = r.capRestocksToCash(res.Lines, res.RestockOrders, cashBalance)
	res.Decision = decide(res.Lines)
	return res
}

// capRestocksToCash trims the tentative restock orders so their total cost
// never exceeds the cash balance, mutating the matching resolved lines as
// units are dropped. Orders are considered in request order.
func (r *AvailabilityResolver) capRestocksToCash(lines []ResolvedLine, orders []RestockOrder, cashBalance decimal.Decimal) []RestockOrder {
	remaining := cashBalance
	kept := orders[:0]

	for _, order := range orders {
		affordable := order.Units
		if order.TotalCost.GreaterThan(remaining) {
			if order.UnitCost.IsPositive() {
				affordable = remaining.Div(order.UnitCost).Floor().IntPart()
			} else {
				affordable = 0
			}
			if affordable > order.Units {
				affordable = order.Units
			}
		}

		dropped := order.Units - affordable
		if dropped > 0 {
			line := findRestockLine(lines, order.ItemName, order.Units)
			if line != nil {
				line.RestockQuantity -= dropped
				line.UnfulfillableQuantity += dropped
				line.Issue = fmt.Sprintf("restocking %d units of %q exceeds available cash; %d units dropped",
					order.Units, order.ItemName, dropped)
			}
		}
		if affordable == 0 {
			continue
		}

		order.Units = affordable
		order.TotalCost = order.UnitCost.Mul(decimal.NewFromInt(affordable))
		remaining = remaining.Sub(order.TotalCost)
		kept = append(kept, order)
	}
	return kept
}

// findRestockLine locates the resolved line a restock order was created for.
// Orders carry their original unit count, so match on that before falling
// back to the first line for the item with any restock quantity.
func findRestockLine(lines []ResolvedLine, itemName string, units int64) *ResolvedLine {
	for i := range lines {
		if lines[i].ItemName == itemName && lines[i].RestockQuantity == units {
			return &lines[i]
		}
	}
	for i := range lines {
		if lines[i].ItemName == itemName && lines[i].RestockQuantity > 0 {
			return &lines[i]
		}
	}
	return nil
}

func decide(lines []ResolvedLine) Decision {
	allCovered := true
	anyCovered := false
	for _, l := range lines {
		if l.FulfillableQuantity+l.RestockQuantity > 0 {
			anyCovered = true
		}
		if l.FulfillableQuantity+l.RestockQuantity != l.RequestedQuantity {
			allCovered = false
		}
	}
	switch {
	case len(lines) == 0 || !anyCovered:
		return Decline
	case allCovered:
		return Proceed
	default:
		return PartialProceed
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
