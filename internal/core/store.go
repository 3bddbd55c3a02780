package core

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors of the engine's error taxonomy. CatalogMiss and
// InsufficientCash are recoverable per line or per commit; LedgerInconsistency
// is fatal and must never be swallowed.
var (
	ErrCatalogMiss         = errors.New("catalog item not found")
	ErrInsufficientCash    = errors.New("insufficient cash")
	ErrLedgerInconsistency = errors.New("ledger inconsistency")
)

// SellerStat is one row of the top-sellers report, aggregated over sales.
type SellerStat struct {
	ItemName  string
	UnitsSold int64
	Revenue   decimal.Decimal
}

// LedgerStore holds the catalog and the append-only transaction log.
// It is the only resource shared across concurrent requests and must
// serialize conflicting mutations.
//
// AppendTransactions is the single mutation boundary: it applies the whole
// batch or nothing. Implementations re-derive stock and cash inside the
// append and reject the batch with ErrInsufficientCash when it would drive
// cash negative, or ErrLedgerInconsistency when it would drive any stock
// level negative or break the snapshot identity. On rejection the store
// state is left untouched.
type LedgerStore interface {
	// GetCatalogItem returns the item with current derived stock,
	// or ErrCatalogMiss.
	GetCatalogItem(ctx context.Context, name string) (*CatalogItem, error)

	// ListCatalog returns all catalog items with current derived stock.
	ListCatalog(ctx context.Context) ([]CatalogItem, error)

	// GetFinancialSnapshot derives cash, inventory value and total assets
	// from the transaction log. Reads are idempotent: two calls without an
	// intervening append return identical values.
	GetFinancialSnapshot(ctx context.Context) (FinancialSnapshot, error)

	// AppendTransactions atomically appends the batch and returns the rows
	// with assigned IDs.
	AppendTransactions(ctx context.Context, batch []TransactionInput) ([]LedgerTransaction, error)

	// ListQuotesForItem returns up to limit most recent historical quote
	// lines for an item. Advisory input only; an empty result is valid.
	ListQuotesForItem(ctx context.Context, name string, limit int) ([]HistoricalQuote, error)

	// RecordQuote stores the lines of a successfully committed quote for
	// future advisory lookups.
	RecordQuote(ctx context.Context, quote Quote, quotedAt time.Time) error

	// TopSellers returns the best-selling items by sales revenue.
	TopSellers(ctx context.Context, limit int) ([]SellerStat, error)
}
