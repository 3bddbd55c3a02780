package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"resupply-engine/internal/app"
	"resupply-engine/internal/core"
)

// fulfillInput is the stdin JSON shape of the fulfill command. Dates are
// plain YYYY-MM-DD strings for ease of hand-writing.
type fulfillInput struct {
	Lines []struct {
		ItemName string `json:"item_name"`
		Quantity int64  `json:"quantity"`
	} `json:"lines"`
	RequestDate string `json:"request_date,omitempty"`
	RequiredBy  string `json:"required_by,omitempty"`
}

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:], so the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "quote", "q":
		if len(args) < 2 {
			log.Fatal("Usage: app quote \"<resupply request text>\"")
		}
		result, err := svc.QuoteFromText(ctx, args[1], time.Now())
		if err != nil {
			log.Fatalf("Quote failed: %v", err)
		}
		printResult(result)

	case "fulfill", "f":
		var input fulfillInput
		if err := json.NewDecoder(os.Stdin).Decode(&input); err != nil {
			log.Fatalf("Invalid JSON: %v", err)
		}
		req, err := buildRequest(input)
		if err != nil {
			log.Fatalf("Invalid request: %v", err)
		}
		result, err := svc.Fulfill(ctx, req)
		if err != nil {
			log.Fatalf("Fulfillment failed: %v", err)
		}
		printResult(result)

	case "report", "r":
		report, err := svc.GetFinancialReport(ctx, time.Now())
		if err != nil {
			log.Fatalf("Failed to build report: %v", err)
		}
		printReport(report)

	case "snapshot", "snap":
		snapshot, err := svc.GetSnapshot(ctx)
		if err != nil {
			log.Fatalf("Failed to read snapshot: %v", err)
		}
		printSnapshot(snapshot)

	case "catalog", "cat":
		items, err := svc.ListCatalog(ctx)
		if err != nil {
			log.Fatalf("Failed to read catalog: %v", err)
		}
		printCatalog(items)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: quote, fulfill, report, snapshot, catalog", args[0])
	}
}

func buildRequest(input fulfillInput) (app.FulfillRequest, error) {
	var req app.FulfillRequest
	for _, line := range input.Lines {
		req.Lines = append(req.Lines, core.RequestedLine{ItemName: line.ItemName, Quantity: line.Quantity})
	}
	if input.RequestDate != "" {
		date, err := time.Parse("2006-01-02", input.RequestDate)
		if err != nil {
			return req, fmt.Errorf("invalid request_date: %w", err)
		}
		req.RequestDate = date
	}
	if input.RequiredBy != "" {
		deadline, err := time.Parse("2006-01-02", input.RequiredBy)
		if err != nil {
			return req, fmt.Errorf("invalid required_by: %w", err)
		}
		req.RequiredBy = &deadline
	}
	return req, nil
}

func printResult(result *app.FulfillmentResult) {
	resp := result.Response

	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  FULFILLMENT RESULT: %s\n", resp.Status)
	fmt.Println(strings.Repeat("=", 62))

	for _, line := range resp.Lines {
		fmt.Printf("  %-30s requested %5d | stock %5d | restock %5d | dropped %5d\n",
			line.ItemName, line.RequestedQuantity, line.FulfillableQuantity,
			line.RestockQuantity, line.UnfulfillableQuantity)
	}

	if resp.Quote != nil {
		fmt.Println(strings.Repeat("-", 62))
		for _, ql := range resp.Quote.Lines {
			discount := ""
			if ql.DiscountPercent.IsPositive() {
				discount = fmt.Sprintf(" (%s%% off)", ql.DiscountPercent.String())
			}
			fmt.Printf("  %-30s %5d @ %10s%s = %12s\n",
				ql.ItemName, ql.Quantity, ql.UnitPrice.StringFixed(2), discount, ql.Subtotal.StringFixed(2))
		}
		fmt.Printf("  %-49s %12s\n", "TOTAL", resp.Quote.TotalPrice.StringFixed(2))
		for _, note := range resp.Quote.Notes {
			fmt.Printf("  note: %s\n", note)
		}
	}

	if resp.Order != nil {
		fmt.Println(strings.Repeat("-", 62))
		fmt.Printf("  Order %s: %s (%s)\n", resp.Order.ID, resp.Order.Status, resp.Order.Message)
	}
	if resp.DeclineReason != "" {
		fmt.Printf("  Declined: %s\n", resp.DeclineReason)
	}

	fmt.Println(strings.Repeat("-", 62))
	fmt.Printf("  Cash   before %12s | after %12s\n",
		resp.SnapshotBefore.CashBalance.StringFixed(2), resp.SnapshotAfter.CashBalance.StringFixed(2))
	fmt.Printf("  Assets before %12s | after %12s\n",
		resp.SnapshotBefore.TotalAssets.StringFixed(2), resp.SnapshotAfter.TotalAssets.StringFixed(2))
	fmt.Println(strings.Repeat("=", 62))
}

func printSnapshot(s *core.FinancialSnapshot) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  FINANCIAL SNAPSHOT as of %s\n", s.AsOf.Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("  %-25s %15s\n", "Cash balance", s.CashBalance.StringFixed(2))
	fmt.Printf("  %-25s %15s\n", "Inventory value", s.InventoryValue.StringFixed(2))
	fmt.Printf("  %-25s %15s\n", "Total assets", s.TotalAssets.StringFixed(2))
	fmt.Println(strings.Repeat("=", 62))
}

func printReport(r *core.FinancialReport) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  FINANCIAL REPORT as of %s\n", r.AsOf.Format("2006-01-02"))
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-30s %15s\n", "Cash balance", r.CashBalance.StringFixed(2))
	fmt.Printf("  %-30s %15s\n", "Inventory value", r.InventoryValue.StringFixed(2))
	fmt.Printf("  %-30s %15s\n", "Est. inventory revenue", r.EstimatedInventoryRevenue.StringFixed(2))
	fmt.Printf("  %-30s %15s\n", "Total assets", r.TotalAssets.StringFixed(2))
	fmt.Println(strings.Repeat("-", 78))
	fmt.Printf("  %-30s %6s %10s %10s %12s\n", "ITEM", "STOCK", "BUY", "SELL", "VALUE")
	for _, line := range r.Inventory {
		fmt.Printf("  %-30s %6d %10s %10s %12s\n",
			line.ItemName, line.Stock, line.BuyUnitPrice.StringFixed(2),
			line.SellUnitPrice.StringFixed(2), line.Value.StringFixed(2))
	}
	if len(r.TopSellers) > 0 {
		fmt.Println(strings.Repeat("-", 78))
		fmt.Printf("  %-30s %10s %14s\n", "TOP SELLER", "UNITS", "REVENUE")
		for _, stat := range r.TopSellers {
			fmt.Printf("  %-30s %10d %14s\n", stat.ItemName, stat.UnitsSold, stat.Revenue.StringFixed(2))
		}
	}
	fmt.Println(strings.Repeat("=", 78))
}

func printCatalog(items []core.CatalogItem) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("  %-30s %-16s %6s %8s %8s\n", "ITEM", "CATEGORY", "STOCK", "BUY", "SELL")
	fmt.Println(strings.Repeat("-", 70))
	for _, item := range items {
		fmt.Printf("  %-30s %-16s %6d %8s %8s\n",
			item.Name, item.Category, item.StockQuantity,
			item.BuyUnitPrice.StringFixed(2), item.SellUnitPrice.StringFixed(2))
	}
	fmt.Println(strings.Repeat("=", 70))
}
