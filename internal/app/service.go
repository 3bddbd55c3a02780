package app

import (
	"context"
	"time"

	"resupply-engine/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, tools) call.
// It decouples presentation from the engine; implementations contain no
// printing or display logic of any kind.
type ApplicationService interface {
	// Fulfill runs one structured resupply request through the workflow
	// pipeline and returns its terminal response.
	Fulfill(ctx context.Context, req FulfillRequest) (*FulfillmentResult, error)

	// QuoteFromText parses a free-text resupply request into structured
	// lines via the AI parser, then runs the pipeline. Requires a parser;
	// returns an error when none is configured.
	QuoteFromText(ctx context.Context, text string, requestDate time.Time) (*FulfillmentResult, error)

	// GetFinancialReport builds the full business-state report.
	GetFinancialReport(ctx context.Context, asOf time.Time) (*core.FinancialReport, error)

	// GetSnapshot returns the current financial snapshot.
	GetSnapshot(ctx context.Context) (*core.FinancialSnapshot, error)

	// ListCatalog returns the catalog with current stock levels.
	ListCatalog(ctx context.Context) ([]core.CatalogItem, error)
}
