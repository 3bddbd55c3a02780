package core_test

import (
	"context"
	"strings"
	"testing"

	"resupply-engine/internal/core"
	"resupply-engine/internal/store"

	"github.com/shopspring/decimal"
)

// newWidgetStore builds a ledger with one Widget line (buy 2.00, sell 4.00),
// 10 units in stock, and exactly cashAfterSeed cash remaining after the
// opening stock purchase.
func newWidgetStore(t *testing.T, cashAfterSeed int64) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(decimal.NewFromInt(cashAfterSeed + 20))
	if err := s.AddItem("Widget", "material", decimal.RequireFromString("2.00"), decimal.RequireFromString("4.00")); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	_, err := s.AppendTransactions(context.Background(), []core.TransactionInput{{
		ItemName:  "Widget",
		Kind:      core.StockOrder,
		Units:     10,
		UnitPrice: decimal.RequireFromString("2.00"),
		Total:     decimal.RequireFromString("20.00"),
		Date:      requestDate.AddDate(0, 0, -30),
	}})
	if err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return s
}

func runRequest(t *testing.T, s core.LedgerStore, lines []core.RequestedLine) *core.Response {
	t.Helper()
	engine := core.NewWorkflowEngine(s, nil)
	resp, err := engine.Run(context.Background(), core.Request{
		Lines:      lines,
		Constraint: core.DeliveryConstraint{RequestDate: requestDate},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return resp
}

func TestWorkflow_AllInStock(t *testing.T) {
	s := newWidgetStore(t, 1000)
	resp := runRequest(t, s, []core.RequestedLine{{ItemName: "Widget", Quantity: 10}})

	if resp.Status != core.StatusSuccessful {
		t.Fatalf("status = %s, want SUCCESSFUL", resp.Status)
	}
	if resp.Order == nil || resp.Order.Status != core.OrderSuccessful {
		t.Fatalf("expected a successful order, got %+v", resp.Order)
	}
	if len(resp.Order.TransactionIDs) != 1 {
		t.Errorf("transaction count = %d, want 1 (single sale, no restock)", len(resp.Order.TransactionIDs))
	}
	if resp.Quote == nil || !resp.Quote.TotalPrice.Equal(decimal.RequireFromString("40.00")) {
		t.Errorf("quote total = %v, want 40.00", resp.Quote)
	}
	if !resp.SnapshotBefore.CashBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("cash before = %s, want 1000", resp.SnapshotBefore.CashBalance)
	}
	if !resp.SnapshotAfter.CashBalance.Equal(decimal.NewFromInt(1040)) {
		t.Errorf("cash after = %s, want 1040", resp.SnapshotAfter.CashBalance)
	}

	item, err := s.GetCatalogItem(context.Background(), "Widget")
	if err != nil {
		t.Fatalf("GetCatalogItem: %v", err)
	}
	if item.StockQuantity != 0 {
		t.Errorf("stock after sale = %d, want 0", item.StockQuantity)
	}
}

func TestWorkflow_RestockWithBulkDiscount(t *testing.T) {
	s := newWidgetStore(t, 1000)
	resp := runRequest(t, s, []core.RequestedLine{{ItemName: "Widget", Quantity: 150}})

	if resp.Status != core.StatusSuccessful {
		t.Fatalf("status = %s, want SUCCESSFUL", resp.Status)
	}
	// One stock order for the 140-unit shortfall plus one sale.
	if len(resp.Order.TransactionIDs) != 2 {
		t.Errorf("transaction count = %d, want 2", len(resp.Order.TransactionIDs))
	}
	// 150 units at 4.00 with the 10% bulk discount.
	if !resp.Quote.TotalPrice.Equal(decimal.RequireFromString("540.00")) {
		t.Errorf("quote total = %s, want 540.00", resp.Quote.TotalPrice)
	}
	if !resp.Order.TotalAmount.Equal(decimal.RequireFromString("540.00")) {
		t.Errorf("order total = %s, want 540.00", resp.Order.TotalAmount)
	}
	// 1000 - 280 restock + 540 sale.
	if !resp.SnapshotAfter.CashBalance.Equal(decimal.NewFromInt(1260)) {
		t.Errorf("cash after = %s, want 1260", resp.SnapshotAfter.CashBalance)
	}

	notes := strings.Join(resp.Quote.Notes, "\n")
	if !strings.Contains(notes, "bulk discount") {
		t.Errorf("expected a bulk discount note, got %q", notes)
	}
	if !strings.Contains(notes, "restocking 140 units") {
		t.Errorf("expected a restock note, got %q", notes)
	}

	item, _ := s.GetCatalogItem(context.Background(), "Widget")
	if item.StockQuantity != 0 {
		t.Errorf("stock after = %d, want 0 (10 held + 140 restocked, 150 sold)", item.StockQuantity)
	}
}

func TestWorkflow_UnknownItemDeclinesWithoutMutation(t *testing.T) {
	s := newWidgetStore(t, 1000)
	resp := runRequest(t, s, []core.RequestedLine{{ItemName: "Phantom coupling", Quantity: 5}})

	if resp.Status != core.StatusDeclined {
		t.Fatalf("status = %s, want DECLINED", resp.Status)
	}
	if resp.Order != nil {
		t.Errorf("expected no order on a resolver decline, got %+v", resp.Order)
	}
	if resp.DeclineReason == "" {
		t.Error("expected a decline reason")
	}
	if !resp.SnapshotAfter.CashBalance.Equal(resp.SnapshotBefore.CashBalance) {
		t.Errorf("cash changed on decline: %s -> %s", resp.SnapshotBefore.CashBalance, resp.SnapshotAfter.CashBalance)
	}

	sellers, _ := s.TopSellers(context.Background(), 5)
	if len(sellers) != 0 {
		t.Errorf("expected no sales recorded, got %d sellers", len(sellers))
	}
}

func TestWorkflow_PartialWhenCashCapsRestock(t *testing.T) {
	// 20 cash buys only 10 of the 25 units the shortfall needs.
	s := newWidgetStore(t, 20)
	resp := runRequest(t, s, []core.RequestedLine{{ItemName: "Widget", Quantity: 35}})

	if resp.Status != core.StatusPartiallyFulfilled {
		t.Fatalf("status = %s, want PARTIALLY_FULFILLED", resp.Status)
	}
	line := resp.Lines[0]
	if line.FulfillableQuantity != 10 || line.RestockQuantity != 10 || line.UnfulfillableQuantity != 15 {
		t.Errorf("line partition = %d/%d/%d, want 10/10/15",
			line.FulfillableQuantity, line.RestockQuantity, line.UnfulfillableQuantity)
	}
	if line.Issue == "" {
		t.Error("expected a cash issue reported on the line")
	}
	// Sale of 20 units at 4.00, no discount tier reached.
	if !resp.Quote.TotalPrice.Equal(decimal.RequireFromString("80.00")) {
		t.Errorf("quote total = %s, want 80.00", resp.Quote.TotalPrice)
	}
	// 20 - 20 restock + 80 sale.
	if !resp.SnapshotAfter.CashBalance.Equal(decimal.NewFromInt(80)) {
		t.Errorf("cash after = %s, want 80", resp.SnapshotAfter.CashBalance)
	}
}

func TestWorkflow_DeadlineDecline(t *testing.T) {
	s := newWidgetStore(t, 1000)
	engine := core.NewWorkflowEngine(s, nil)
	deadline := requestDate // shortfall of 140 units needs four days
	resp, err := engine.Run(context.Background(), core.Request{
		Lines:      []core.RequestedLine{{ItemName: "Widget", Quantity: 150}},
		Constraint: core.DeliveryConstraint{RequestDate: requestDate, RequiredByDate: &deadline},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The 10 in-stock units are still sellable; only the restock is lost.
	if resp.Status != core.StatusPartiallyFulfilled {
		t.Fatalf("status = %s, want PARTIALLY_FULFILLED", resp.Status)
	}
	if resp.Lines[0].UnfulfillableQuantity != 140 {
		t.Errorf("unfulfillable = %d, want 140", resp.Lines[0].UnfulfillableQuantity)
	}
	if !resp.Quote.TotalPrice.Equal(decimal.RequireFromString("40.00")) {
		t.Errorf("quote total = %s, want 40.00", resp.Quote.TotalPrice)
	}
}

func TestWorkflow_QuoteHistoryRecordedOnSuccessOnly(t *testing.T) {
	s := newWidgetStore(t, 1000)

	runRequest(t, s, []core.RequestedLine{{ItemName: "Phantom coupling", Quantity: 5}})
	history, _ := s.ListQuotesForItem(context.Background(), "Widget", 5)
	if len(history) != 0 {
		t.Fatalf("declined run recorded %d quotes", len(history))
	}

	runRequest(t, s, []core.RequestedLine{{ItemName: "Widget", Quantity: 5}})
	history, _ = s.ListQuotesForItem(context.Background(), "Widget", 5)
	if len(history) != 1 {
		t.Fatalf("expected 1 recorded quote, got %d", len(history))
	}
	if !history[0].UnitPrice.Equal(decimal.RequireFromString("4.00")) {
		t.Errorf("recorded unit price = %s, want 4.00", history[0].UnitPrice)
	}
}

func TestWorkflow_SnapshotInvariant(t *testing.T) {
	s := newWidgetStore(t, 1000)
	resp := runRequest(t, s, []core.RequestedLine{{ItemName: "Widget", Quantity: 150}})

	for _, snap := range []core.FinancialSnapshot{resp.SnapshotBefore, resp.SnapshotAfter} {
		if !snap.TotalAssets.Equal(snap.CashBalance.Add(snap.InventoryValue)) {
			t.Errorf("total assets %s != cash %s + inventory %s",
				snap.TotalAssets, snap.CashBalance, snap.InventoryValue)
		}
	}
}
