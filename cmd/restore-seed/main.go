// restore-seed is a one-shot tool that resets the database to the opening
// seed state: schema in place, catalog loaded, opening stock booked as a
// single purchase batch, cash back at the opening balance.
//
// Usage: go run ./cmd/restore-seed
package main

import (
	"context"
	"log"
	"time"

	"resupply-engine/internal/db"
	"resupply-engine/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	openingCash, err := db.OpeningCash(store.DefaultOpeningCash)
	if err != nil {
		log.Fatalf("Invalid OPENING_CASH: %v", err)
	}
	pg := store.NewPostgresStore(pool, openingCash)

	log.Println("Ensuring schema...")
	if err := pg.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	log.Println("Clearing existing data...")
	if err := pg.Reset(ctx); err != nil {
		log.Fatalf("Failed to reset tables: %v", err)
	}

	log.Println("Seeding catalog and opening stock...")
	if err := pg.Seed(ctx, store.SeedCatalog(), time.Now()); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	snapshot, err := pg.GetFinancialSnapshot(ctx)
	if err != nil {
		log.Fatalf("Failed to verify seeded state: %v", err)
	}
	log.Printf("Seed restored. Cash %s, inventory %s, total assets %s.",
		snapshot.CashBalance.StringFixed(2),
		snapshot.InventoryValue.StringFixed(2),
		snapshot.TotalAssets.StringFixed(2))
}
