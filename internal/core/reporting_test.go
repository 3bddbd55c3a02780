package core_test

import (
	"context"
	"testing"

	"resupply-engine/internal/core"
	"resupply-engine/internal/store"

	"github.com/shopspring/decimal"
)

func TestBuildFinancialReport(t *testing.T) {
	s := store.NewMemoryStore(store.DefaultOpeningCash)
	if err := store.SeedMemoryStore(s, requestDate.AddDate(0, 0, -30)); err != nil {
		t.Fatalf("SeedMemoryStore: %v", err)
	}

	// Sell a few items so the top-sellers section has content.
	runRequest(t, s, []core.RequestedLine{
		{ItemName: "Carbon mesh panel", Quantity: 5},
		{ItemName: "Aerogel sheet", Quantity: 2},
	})

	report, err := core.BuildFinancialReport(context.Background(), s, requestDate)
	if err != nil {
		t.Fatalf("BuildFinancialReport: %v", err)
	}

	if len(report.Inventory) != len(store.SeedCatalog()) {
		t.Errorf("inventory lines = %d, want %d", len(report.Inventory), len(store.SeedCatalog()))
	}
	if !report.TotalAssets.Equal(report.CashBalance.Add(report.InventoryValue)) {
		t.Errorf("total assets %s != cash %s + inventory %s",
			report.TotalAssets, report.CashBalance, report.InventoryValue)
	}

	// Itemized values must sum to the snapshot inventory value.
	sum := decimal.Zero
	for _, line := range report.Inventory {
		sum = sum.Add(line.Value)
	}
	if !sum.Equal(report.InventoryValue) {
		t.Errorf("sum of line values %s != inventory value %s", sum, report.InventoryValue)
	}

	if len(report.TopSellers) != 2 {
		t.Fatalf("top sellers = %d, want 2", len(report.TopSellers))
	}
	// Carbon mesh panel: 5 * 8.50 = 42.50 beats Aerogel sheet: 2 * 11.10 = 22.20.
	if report.TopSellers[0].ItemName != "Carbon mesh panel" {
		t.Errorf("top seller = %q, want Carbon mesh panel", report.TopSellers[0].ItemName)
	}
	if report.TopSellers[0].UnitsSold != 5 {
		t.Errorf("top seller units = %d, want 5", report.TopSellers[0].UnitsSold)
	}
}
