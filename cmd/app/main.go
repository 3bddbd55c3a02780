package main

import (
	"context"
	"log"
	"os"
	"time"

	"resupply-engine/internal/adapters/cli"
	"resupply-engine/internal/ai"
	"resupply-engine/internal/app"
	"resupply-engine/internal/core"
	"resupply-engine/internal/db"
	"resupply-engine/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Usage: app <quote|fulfill|report|snapshot|catalog> [args]")
	}

	ctx := context.Background()

	openingCash, err := db.OpeningCash(store.DefaultOpeningCash)
	if err != nil {
		log.Fatalf("Invalid OPENING_CASH: %v", err)
	}

	var ledger core.LedgerStore
	if os.Getenv("DATABASE_URL") != "" {
		pool, err := db.NewPool(ctx)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pool.Close()
		ledger = store.NewPostgresStore(pool, openingCash)
	} else {
		// No database configured: run against a seeded in-memory ledger.
		// State does not survive the process; useful for demos and dry runs.
		log.Println("DATABASE_URL is not set, using in-memory store with seed catalog")
		mem := store.NewMemoryStore(openingCash)
		if err := store.SeedMemoryStore(mem, time.Now()); err != nil {
			log.Fatalf("Failed to seed in-memory store: %v", err)
		}
		ledger = mem
	}

	var parser ai.ParserService
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		parser = ai.NewParser(apiKey)
	} else {
		log.Println("Warning: OPENAI_API_KEY is not set, free-text quoting is disabled")
	}

	svc := app.NewApplicationService(ledger, nil, parser)
	cli.Run(ctx, svc, os.Args[1:])
}
