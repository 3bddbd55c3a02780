// verify-db runs consistency checks against the live ledger database and
// exits non-zero on the first violation. Intended for cron or post-deploy
// sanity checks.
package main

import (
	"context"
	"log"

	"resupply-engine/internal/db"
	"resupply-engine/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var (
	minMarkup = decimal.RequireFromString("1.6")
	maxMarkup = decimal.RequireFromString("1.9")
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("[CONNECT] failed: %v", err)
	}
	defer pool.Close()
	log.Println("[CONNECT] success")

	openingCash, err := db.OpeningCash(store.DefaultOpeningCash)
	if err != nil {
		log.Fatalf("[CONFIG] invalid OPENING_CASH: %v", err)
	}
	pg := store.NewPostgresStore(pool, openingCash)

	checkCatalog(ctx, pg)
	checkTransactions(ctx, pool)
	checkSnapshot(ctx, pg)

	log.Println("[DONE] all checks passed")
}

// checkCatalog verifies pricing and stock invariants for every catalog item:
// positive buy price, sell price inside the markup band, non-negative stock.
func checkCatalog(ctx context.Context, pg *store.PostgresStore) {
	items, err := pg.ListCatalog(ctx)
	if err != nil {
		log.Fatalf("[CATALOG] failed to list: %v", err)
	}
	if len(items) == 0 {
		log.Fatal("[CATALOG] empty, has restore-seed run?")
	}

	for _, item := range items {
		if !item.BuyUnitPrice.IsPositive() {
			log.Fatalf("[CATALOG] %q has non-positive buy price %s", item.Name, item.BuyUnitPrice)
		}
		markup := item.SellUnitPrice.Div(item.BuyUnitPrice)
		if markup.LessThan(minMarkup) || markup.GreaterThan(maxMarkup) {
			log.Fatalf("[CATALOG] %q markup %s outside [%s, %s]", item.Name, markup.StringFixed(3), minMarkup, maxMarkup)
		}
		if item.StockQuantity < 0 {
			log.Fatalf("[CATALOG] %q has negative derived stock %d", item.Name, item.StockQuantity)
		}
	}
	log.Printf("[CATALOG] %d items ok", len(items))
}

// checkTransactions verifies row-level constraints the schema also enforces,
// catching rows written before the CHECKs existed.
func checkTransactions(ctx context.Context, pool *pgxpool.Pool) {
	var bad int64
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM transactions
		WHERE units <= 0
		   OR total < 0
		   OR kind NOT IN ('stock_order', 'sale')
	`).Scan(&bad)
	if err != nil {
		log.Fatalf("[TRANSACTIONS] failed to query: %v", err)
	}
	if bad > 0 {
		log.Fatalf("[TRANSACTIONS] %d malformed rows", bad)
	}

	var orphans int64
	err = pool.QueryRow(ctx, `
		SELECT count(*) FROM transactions t
		LEFT JOIN catalog c ON c.name = t.item_name
		WHERE c.name IS NULL
	`).Scan(&orphans)
	if err != nil {
		log.Fatalf("[TRANSACTIONS] failed to query orphans: %v", err)
	}
	if orphans > 0 {
		log.Fatalf("[TRANSACTIONS] %d rows reference unknown catalog items", orphans)
	}
	log.Println("[TRANSACTIONS] ok")
}

// checkSnapshot derives the full financial position, which fails internally
// on negative cash or negative stock.
func checkSnapshot(ctx context.Context, pg *store.PostgresStore) {
	snapshot, err := pg.GetFinancialSnapshot(ctx)
	if err != nil {
		log.Fatalf("[SNAPSHOT] inconsistent ledger: %v", err)
	}
	if snapshot.CashBalance.IsNegative() {
		log.Fatalf("[SNAPSHOT] negative cash balance %s", snapshot.CashBalance.StringFixed(2))
	}
	if !snapshot.TotalAssets.Equal(snapshot.CashBalance.Add(snapshot.InventoryValue)) {
		log.Fatal("[SNAPSHOT] total assets do not equal cash plus inventory")
	}
	log.Printf("[SNAPSHOT] cash %s, inventory %s, assets %s",
		snapshot.CashBalance.StringFixed(2),
		snapshot.InventoryValue.StringFixed(2),
		snapshot.TotalAssets.StringFixed(2))
}
