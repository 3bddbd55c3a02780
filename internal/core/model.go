package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes the two entry types in the append-only ledger.
type TransactionKind string

const (
	StockOrder TransactionKind = "stock_order" // purchase from supplier: stock up, cash down
	Sale       TransactionKind = "sale"        // sale to customer: stock down, cash up
)

// CatalogItem is a stocked good. StockQuantity and the cash balance are derived
// from the transaction log; catalog rows themselves carry only static pricing.
type CatalogItem struct {
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	StockQuantity int64           `json:"stock_quantity"`
	BuyUnitPrice  decimal.Decimal `json:"buy_unit_price"`
	SellUnitPrice decimal.Decimal `json:"sell_unit_price"`
}

// LedgerTransaction is one immutable row of the append-only transaction log.
// UnitPrice is the effective per-unit price (post-discount for sales) and may
// carry more than two decimal places; Total is the authoritative cash effect,
// rounded once to currency precision at the line level.
type LedgerTransaction struct {
	ID        int64           `json:"id"`
	ItemName  string          `json:"item_name"`
	Kind      TransactionKind `json:"kind"`
	Units     int64           `json:"units"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Date      time.Time       `json:"date"`
}

// TransactionInput is a ledger row before the store assigns its ID.
type TransactionInput struct {
	ItemName  string
	Kind      TransactionKind
	Units     int64
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	Date      time.Time
}

// RequestedLine is one structured line item of a resupply request.
// Item names are assumed canonical; fuzzy matching is the parser's job.
type RequestedLine struct {
	ItemName string `json:"item_name"`
	Quantity int64  `json:"quantity"`
}

// DeliveryConstraint bounds when restocked goods must arrive.
// RequiredByDate may be nil, meaning no deadline.
type DeliveryConstraint struct {
	RequestDate    time.Time
	RequiredByDate *time.Time
}

// ResolvedLine partitions one requested line. The quantities always satisfy
// Fulfillable + Restock + Unfulfillable == Requested.
type ResolvedLine struct {
	ItemName              string
	RequestedQuantity     int64
	FulfillableQuantity   int64
	RestockQuantity       int64
	UnfulfillableQuantity int64
	Issue                 string // human-readable reason for any unfulfillable portion
}

// RestockOrder is a tentative supplier order produced by the resolver,
// already checked against the delivery deadline and the cash balance.
type RestockOrder struct {
	ItemName     string
	Units        int64
	UnitCost     decimal.Decimal
	TotalCost    decimal.Decimal
	DeliveryDate time.Time
}

// QuoteLine prices the fulfillable portion of one item.
// Subtotal == Quantity * UnitPrice * (1 - DiscountPercent/100), rounded
// half-up to two decimal places exactly once.
type QuoteLine struct {
	ItemName        string          `json:"item_name"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// Quote is the priced portion of a request.
type Quote struct {
	Lines      []QuoteLine     `json:"lines"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Notes      []string        `json:"notes"`
}

// HistoricalQuote is a past quote line used as an advisory pricing input.
type HistoricalQuote struct {
	ItemName  string
	Quantity  int64
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	QuotedAt  time.Time
}

// FinancialSnapshot is the balance sheet at a point in time.
// TotalAssets == CashBalance + InventoryValue always holds; the store verifies
// the identity on every read.
type FinancialSnapshot struct {
	AsOf           time.Time       `json:"as_of"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	TotalAssets    decimal.Decimal `json:"total_assets"`
}

type OrderStatus string

const (
	OrderSuccessful OrderStatus = "SUCCESSFUL"
	OrderDeclined   OrderStatus = "DECLINED"
)

// Order is the immutable outcome of a commit attempt.
type Order struct {
	ID             string          `json:"id"`
	Status         OrderStatus     `json:"status"`
	TransactionIDs []int64         `json:"transaction_ids"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Message        string          `json:"message"`
}
