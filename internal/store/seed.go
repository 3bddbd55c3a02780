package store

import (
	"context"
	"fmt"
	"time"

	"resupply-engine/internal/core"

	"github.com/shopspring/decimal"
)

// DefaultOpeningCash is the opening cash balance used when none is configured.
var DefaultOpeningCash = decimal.NewFromInt(50000)

// SeedItem is one row of the sample outfitting catalog. Sell prices carry a
// markup of 60% to 90% over the buy price.
type SeedItem struct {
	Name          string
	Category      string
	BuyUnitPrice  string
	SellUnitPrice string
	OpeningStock  int64
}

// SeedCatalog is a deterministic sample catalog of orbital outfitting
// supplies used by the demo CLI, the seeding tool and the tests.
func SeedCatalog() []SeedItem {
	return []SeedItem{
		{"Carbon mesh panel", "material", "5.00", "8.50", 20},
		{"Cryo sealant cartridge", "material", "3.50", "6.30", 25},
		{"Thermal insulation sheet", "material", "2.75", "4.95", 30},
		{"Reflective heatfoil wrap", "material", "3.20", "5.12", 15},
		{"Pressure rated hull plate", "material", "7.25", "13.05", 12},
		{"Structural foam tile", "material", "1.80", "2.97", 40},
		{"Polymer containment bag", "material", "0.90", "1.62", 60},
		{"Radiation barrier mesh", "material", "4.40", "7.92", 18},
		{"Aerogel sheet", "material", "6.00", "11.10", 10},
		{"Atmospheric seal strip", "material", "1.10", "1.76", 50},
		{"Portable power node", "equipment", "18.00", "32.40", 8},
		{"Modular light fixture", "equipment", "8.50", "14.88", 14},
		{"Cryo storage unit", "equipment", "35.00", "59.50", 5},
		{"Field diagnostic scanner", "equipment", "42.00", "75.60", 4},
		{"EVA helmet light", "equipment", "6.00", "9.90", 22},
		{"Secure cargo case", "equipment", "12.00", "21.00", 9},
		{"Compressed air canister", "equipment", "10.00", "16.50", 16},
		{"Telescopic support beam", "large_component", "55.00", "90.75", 3},
		{"Deployable antenna array", "large_component", "95.00", "152.00", 2},
		{"Zero gravity adhesive pack", "specialty", "6.50", "11.70", 12},
	}
}

// SeedMemoryStore loads the sample catalog into a fresh MemoryStore and books
// the opening stock as StockOrder transactions, paid out of the opening cash
// balance, dated openingDate.
func SeedMemoryStore(s *MemoryStore, openingDate time.Time) error {
	ctx := context.Background()

	var opening []core.TransactionInput
	for _, seed := range SeedCatalog() {
		buy, err := decimal.NewFromString(seed.BuyUnitPrice)
		if err != nil {
			return fmt.Errorf("bad buy price for %q: %w", seed.Name, err)
		}
		sell, err := decimal.NewFromString(seed.SellUnitPrice)
		if err != nil {
			return fmt.Errorf("bad sell price for %q: %w", seed.Name, err)
		}
		if err := s.AddItem(seed.Name, seed.Category, buy, sell); err != nil {
			return err
		}
		if seed.OpeningStock > 0 {
			opening = append(opening, core.TransactionInput{
				ItemName:  seed.Name,
				Kind:      core.StockOrder,
				Units:     seed.OpeningStock,
				UnitPrice: buy,
				Total:     buy.Mul(decimal.NewFromInt(seed.OpeningStock)).Round(2),
				Date:      openingDate,
			})
		}
	}

	if _, err := s.AppendTransactions(ctx, opening); err != nil {
		return fmt.Errorf("failed to book opening stock: %w", err)
	}
	return nil
}
