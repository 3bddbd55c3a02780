package core_test

import (
	"testing"
	"time"

	"resupply-engine/internal/core"

	"github.com/shopspring/decimal"
)

var requestDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func testCatalog() map[string]core.CatalogItem {
	return map[string]core.CatalogItem{
		"Widget": {
			Name:          "Widget",
			Category:      "material",
			StockQuantity: 10,
			BuyUnitPrice:  decimal.RequireFromString("2.00"),
			SellUnitPrice: decimal.RequireFromString("4.00"),
		},
		"Bracket": {
			Name:          "Bracket",
			Category:      "material",
			StockQuantity: 0,
			BuyUnitPrice:  decimal.RequireFromString("5.00"),
			SellUnitPrice: decimal.RequireFromString("8.00"),
		},
	}
}

// checkConservation verifies that every resolved line partitions its requested
// quantity exactly, with no units lost or invented.
func checkConservation(t *testing.T, lines []core.ResolvedLine) {
	t.Helper()
	for _, l := range lines {
		sum := l.FulfillableQuantity + l.RestockQuantity + l.UnfulfillableQuantity
		if sum != l.RequestedQuantity {
			t.Errorf("%q: fulfillable %d + restock %d + unfulfillable %d = %d, want requested %d",
				l.ItemName, l.FulfillableQuantity, l.RestockQuantity, l.UnfulfillableQuantity, sum, l.RequestedQuantity)
		}
	}
}

func TestDefaultDeliveryEstimator_Tiers(t *testing.T) {
	tests := []struct {
		quantity int64
		wantDays int
	}{
		{1, 0},
		{10, 0},
		{11, 1},
		{100, 1},
		{101, 4},
		{1000, 4},
		{1001, 7},
	}

	for _, tc := range tests {
		got := core.DefaultDeliveryEstimator("Widget", tc.quantity, requestDate)
		want := requestDate.AddDate(0, 0, tc.wantDays)
		if !got.Equal(want) {
			t.Errorf("quantity %d: delivery %s, want %s", tc.quantity, got.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
}

func TestResolver_FullyInStock(t *testing.T) {
	r := core.NewAvailabilityResolver(nil)
	res := r.Resolve(
		[]core.RequestedLine{{ItemName: "Widget", Quantity: 10}},
		core.DeliveryConstraint{RequestDate: requestDate},
		testCatalog(),
		decimal.NewFromInt(1000),
	)

	if res.Decision != core.Proceed {
		t.Fatalf("decision = %s, want PROCEED", res.Decision)
	}
	if len(res.RestockOrders) != 0 {
		t.Errorf("expected no restock orders, got %d", len(res.RestockOrders))
	}
	if res.Lines[0].FulfillableQuantity != 10 {
		t.Errorf("fulfillable = %d, want 10", res.Lines[0].FulfillableQuantity)
	}
	checkConservation(t, res.Lines)
}

func TestResolver_ShortfallTriggersRestock(t *testing.T) {
	r := core.NewAvailabilityResolver(nil)
	res := r.Resolve(
		[]core.RequestedLine{{ItemName: "Widget", Quantity: 150}},
		core.DeliveryConstraint{RequestDate: requestDate},
		testCatalog(),
		decimal.NewFromInt(1000),
	)

	if res.Decision != core.Proceed {
		t.Fatalf("decision = %s, want PROCEED", res.Decision)
	}
	line := res.Lines[0]
	if line.FulfillableQuantity != 10 || line.RestockQuantity != 140 {
		t.Errorf("fulfillable/restock = %d/%d, want 10/140", line.FulfillableQuantity, line.RestockQuantity)
	}
	if len(res.RestockOrders) != 1 {
		t.Fatalf("expected 1 restock order, got %d", len(res.RestockOrders))
	}
	ro := res.RestockOrders[0]
	if ro.Units != 140 {
		t.Errorf("restock units = %d, want 140", ro.Units)
	}
	if !ro.TotalCost.Equal(decimal.RequireFromString("280.00")) {
		t.Errorf("restock cost = %s, want 280.00", ro.TotalCost)
	}
	// 140 units is in the four-day lead-time tier.
	if !ro.DeliveryDate.Equal(requestDate.AddDate(0, 0, 4)) {
		t.Errorf("delivery = %s, want %s", ro.DeliveryDate.Format("2006-01-02"), requestDate.AddDate(0, 0, 4).Format("2006-01-02"))
	}
	checkConservation(t, res.Lines)
}

func TestResolver_UnknownItemDeclined(t *testing.T) {
	r := core.NewAvailabilityResolver(nil)
	res := r.Resolve(
		[]core.RequestedLine{{ItemName: "Phantom coupling", Quantity: 5}},
		core.DeliveryConstraint{RequestDate: requestDate},
		testCatalog(),
		decimal.NewFromInt(1000),
	)

	if res.Decision != core.Decline {
		t.Fatalf("decision = %s, want DECLINE", res.Decision)
	}
	line := res.Lines[0]
	if line.UnfulfillableQuantity != 5 {
		t.Errorf("unfulfillable = %d, want 5", line.UnfulfillableQuantity)
	}
	if line.Issue == "" {
		t.Error("expected a per-line issue for unknown item")
	}
	checkConservation(t, res.Lines)
}

func TestResolver_DeadlineMakesRestockInfeasible(t *testing.T) {
	r := core.NewAvailabilityResolver(nil)
	deadline := requestDate // same-day deadline, but 50 units need a day
	res := r.Resolve(
		[]core.RequestedLine{{ItemName: "Bracket", Quantity: 50}},
		core.DeliveryConstraint{RequestDate: requestDate, RequiredByDate: &deadline},
		testCatalog(),
		decimal.NewFromInt(1000),
	)

	if res.Decision != core.Decline {
		t.Fatalf("decision = %s, want DECLINE", res.Decision)
	}
	line := res.Lines[0]
	if line.RestockQuantity != 0 {
		t.Errorf("restock = %d, want 0", line.RestockQuantity)
	}
	if line.UnfulfillableQuantity != 50 {
		t.Errorf("unfulfillable = %d, want 50", line.UnfulfillableQuantity)
	}
	if line.Issue == "" {
		t.Error("expected a deadline issue on the line")
	}
	if len(res.RestockOrders) != 0 {
		t.Errorf("expected no restock orders, got %d", len(res.RestockOrders))
	}
	checkConservation(t, res.Lines)
}

func TestResolver_DeadlineAllowsFeasibleRestock(t *testing.T) {
	r := core.NewAvailabilityResolver(nil)
	deadline := requestDate.AddDate(0, 0, 2)
	res := r.Resolve(
		[]core.RequestedLine{{ItemName: "Bracket", Quantity: 50}},
		core.DeliveryConstraint{RequestDate: requestDate, RequiredByDate: &deadline},
		testCatalog(),
		decimal.NewFromInt(1000),
	)

	if res.Decision != core.Proceed {
		t.Fatalf("decision = %s, want PROCEED", res.Decision)
	}
	if res.Lines[0].RestockQuantity != 50 {
		t.Errorf("restock = %d, want 50", res.Lines[0].RestockQuantity)
	}
}

func TestResolver_CashCapsRestock(t *testing.T) {
	// 60 Brackets at 5.00 cost 300, but only 120 cash is available:
	// 24 units fit, 36 are dropped and reported.
	r := core.NewAvailabilityResolver(nil)
	res := r.Resolve(
		[]core.RequestedLine{{ItemName: "Bracket", Quantity: 60}},
		core.DeliveryConstraint{RequestDate: requestDate},
		testCatalog(),
		decimal.NewFromInt(120),
	)

	if res.Decision != core.PartialProceed {
		t.Fatalf("decision = %s, want PARTIAL_PROCEED", res.Decision)
	}
	line := res.Lines[0]
	if line.RestockQuantity != 24 {
		t.Errorf("restock = %d, want 24", line.RestockQuantity)
	}
	if line.UnfulfillableQuantity != 36 {
		t.Errorf("unfulfillable = %d, want 36", line.UnfulfillableQuantity)
	}
	if line.Issue == "" {
		t.Error("expected a cash issue on the line")
	}
	if len(res.RestockOrders) != 1 {
		t.Fatalf("expected 1 reduced restock order, got %d", len(res.RestockOrders))
	}
	if res.RestockOrders[0].Units != 24 {
		t.Errorf("restock order units = %d, want 24", res.RestockOrders[0].Units)
	}
	if !res.RestockOrders[0].TotalCost.Equal(decimal.RequireFromString("120.00")) {
		t.Errorf("restock order cost = %s, want 120.00", res.RestockOrders[0].TotalCost)
	}
	checkConservation(t, res.Lines)
}

func TestResolver_EarlierLineKeepsCashOverLaterLine(t *testing.T) {
	// Widget restock (arrives first in the request) consumes the cash that
	// the Bracket restock would have needed.
	r := core.NewAvailabilityResolver(nil)
	res := r.Resolve(
		[]core.RequestedLine{
			{ItemName: "Widget", Quantity: 60},  // 10 in stock, restock 50 at 2.00 = 100
			{ItemName: "Bracket", Quantity: 30}, // restock 30 at 5.00 = 150
		},
		core.DeliveryConstraint{RequestDate: requestDate},
		testCatalog(),
		decimal.NewFromInt(110),
	)

	if res.Decision != core.PartialProceed {
		t.Fatalf("decision = %s, want PARTIAL_PROCEED", res.Decision)
	}
	if res.Lines[0].RestockQuantity != 50 {
		t.Errorf("Widget restock = %d, want 50", res.Lines[0].RestockQuantity)
	}
	// 10 cash left after the Widget restock buys 2 Brackets.
	if res.Lines[1].RestockQuantity != 2 {
		t.Errorf("Bracket restock = %d, want 2", res.Lines[1].RestockQuantity)
	}
	if res.Lines[1].UnfulfillableQuantity != 28 {
		t.Errorf("Bracket unfulfillable = %d, want 28", res.Lines[1].UnfulfillableQuantity)
	}
	checkConservation(t, res.Lines)
}

func TestResolver_DuplicateLinesDoNotDoubleAllocateStock(t *testing.T) {
	r := core.NewAvailabilityResolver(nil)
	res := r.Resolve(
		[]core.RequestedLine{
			{ItemName: "Widget", Quantity: 8},
			{ItemName: "Widget", Quantity: 8},
		},
		core.DeliveryConstraint{RequestDate: requestDate},
		testCatalog(),
		decimal.NewFromInt(1000),
	)

	if res.Lines[0].FulfillableQuantity != 8 {
		t.Errorf("first line fulfillable = %d, want 8", res.Lines[0].FulfillableQuantity)
	}
	if res.Lines[1].FulfillableQuantity != 2 {
		t.Errorf("second line fulfillable = %d, want 2", res.Lines[1].FulfillableQuantity)
	}
	if res.Lines[1].RestockQuantity != 6 {
		t.Errorf("second line restock = %d, want 6", res.Lines[1].RestockQuantity)
	}
	checkConservation(t, res.Lines)
}

func TestResolver_EmptyRequestDeclined(t *testing.T) {
	r := core.NewAvailabilityResolver(nil)
	res := r.Resolve(nil, core.DeliveryConstraint{RequestDate: requestDate}, testCatalog(), decimal.NewFromInt(1000))
	if res.Decision != core.Decline {
		t.Errorf("decision = %s, want DECLINE", res.Decision)
	}
}
