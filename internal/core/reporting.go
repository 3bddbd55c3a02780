package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryLine is one item row of the financial report.
type InventoryLine struct {
	ItemName         string
	Category         string
	Stock            int64
	BuyUnitPrice     decimal.Decimal
	SellUnitPrice    decimal.Decimal
	Value            decimal.Decimal // Stock * BuyUnitPrice
	EstimatedRevenue decimal.Decimal // Stock * SellUnitPrice
}

// FinancialReport is the full business-state report: the snapshot plus an
// itemized inventory breakdown and the best-selling items by revenue.
type FinancialReport struct {
	AsOf                      time.Time
	CashBalance               decimal.Decimal
	InventoryValue            decimal.Decimal
	EstimatedInventoryRevenue decimal.Decimal
	TotalAssets               decimal.Decimal
	Inventory                 []InventoryLine
	TopSellers                []SellerStat
}

// BuildFinancialReport assembles the report from the store's read paths.
func BuildFinancialReport(ctx context.Context, store LedgerStore, asOf time.Time) (*FinancialReport, error) {
	snapshot, err := store.GetFinancialSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read financial snapshot: %w", err)
	}

	items, err := store.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	report := &FinancialReport{
		AsOf:           asOf,
		CashBalance:    snapshot.CashBalance,
		InventoryValue: snapshot.InventoryValue,
		TotalAssets:    snapshot.TotalAssets,
	}

	for _, item := range items {
		qty := decimal.NewFromInt(item.StockQuantity)
		line := InventoryLine{
			ItemName:         item.Name,
			Category:         item.Category,
			Stock:            item.StockQuantity,
			BuyUnitPrice:     item.BuyUnitPrice,
			SellUnitPrice:    item.SellUnitPrice,
			Value:            qty.Mul(item.BuyUnitPrice),
			EstimatedRevenue: qty.Mul(item.SellUnitPrice),
		}
		report.Inventory = append(report.Inventory, line)
		report.EstimatedInventoryRevenue = report.EstimatedInventoryRevenue.Add(line.EstimatedRevenue)
	}

	sellers, err := store.TopSellers(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to read top sellers: %w", err)
	}
	report.TopSellers = sellers

	return report, nil
}
