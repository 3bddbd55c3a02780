package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"resupply-engine/internal/core"

	"github.com/shopspring/decimal"
)

type catalogRow struct {
	name     string
	category string
	buy      decimal.Decimal
	sell     decimal.Decimal
}

// MemoryStore is an in-process LedgerStore. Stock levels and the cash balance
// are derived from the append-only transaction log, so the atomic batch
// append is the only mutation the store ever performs. A single mutex
// serializes all access.
type MemoryStore struct {
	mu          sync.Mutex
	openingCash decimal.Decimal
	catalog     map[string]catalogRow
	names       []string // stable catalog iteration order
	txs         []core.LedgerTransaction
	quotes      []core.HistoricalQuote
	nextID      int64
}

func NewMemoryStore(openingCash decimal.Decimal) *MemoryStore {
	return &MemoryStore{
		openingCash: openingCash,
		catalog:     make(map[string]catalogRow),
		nextID:      1,
	}
}

// AddItem registers a catalog row. The sell price must exceed the buy price;
// stock arrives later through StockOrder transactions.
func (s *MemoryStore) AddItem(name, category string, buyUnitPrice, sellUnitPrice decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return fmt.Errorf("catalog item needs a name")
	}
	if _, exists := s.catalog[name]; exists {
		return fmt.Errorf("catalog item %q already exists", name)
	}
	if !sellUnitPrice.GreaterThan(buyUnitPrice) {
		return fmt.Errorf("%w: sell price %s must exceed buy price %s for %q",
			core.ErrLedgerInconsistency, sellUnitPrice, buyUnitPrice, name)
	}
	s.catalog[name] = catalogRow{name: name, category: category, buy: buyUnitPrice, sell: sellUnitPrice}
	s.names = append(s.names, name)
	return nil
}

func (s *MemoryStore) GetCatalogItem(ctx context.Context, name string) (*core.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrCatalogMiss, name)
	}
	item := s.itemLocked(row)
	return &item, nil
}

func (s *MemoryStore) ListCatalog(ctx context.Context) ([]core.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]core.CatalogItem, 0, len(s.names))
	for _, name := range s.names {
		items = append(items, s.itemLocked(s.catalog[name]))
	}
	return items, nil
}

func (s *MemoryStore) GetFinancialSnapshot(ctx context.Context) (core.FinancialSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *MemoryStore) AppendTransactions(ctx context.Context, batch []core.TransactionInput) ([]core.LedgerTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch against the projected post-append state
	// before touching anything: all-or-nothing.
	projectedStock := make(map[string]int64)
	projectedCash := s.cashLocked()

	for _, in := range batch {
		if in.Units <= 0 {
			return nil, fmt.Errorf("%w: transaction for %q has non-positive units %d",
				core.ErrLedgerInconsistency, in.ItemName, in.Units)
		}
		if in.Total.IsNegative() {
			return nil, fmt.Errorf("%w: transaction for %q has negative total %s",
				core.ErrLedgerInconsistency, in.ItemName, in.Total)
		}
		if _, ok := s.catalog[in.ItemName]; !ok {
			return nil, fmt.Errorf("%w: transaction references unknown item %q",
				core.ErrLedgerInconsistency, in.ItemName)
		}
		if _, seen := projectedStock[in.ItemName]; !seen {
			projectedStock[in.ItemName] = s.stockLocked(in.ItemName)
		}
		switch in.Kind {
		case core.StockOrder:
			projectedStock[in.ItemName] += in.Units
			projectedCash = projectedCash.Sub(in.Total)
		case core.Sale:
			projectedStock[in.ItemName] -= in.Units
			projectedCash = projectedCash.Add(in.Total)
		default:
			return nil, fmt.Errorf("%w: unknown transaction kind %q", core.ErrLedgerInconsistency, in.Kind)
		}
	}

	for name, qty := range projectedStock {
		if qty < 0 {
			return nil, fmt.Errorf("%w: batch would drive stock of %q to %d",
				core.ErrLedgerInconsistency, name, qty)
		}
	}
	if projectedCash.IsNegative() {
		return nil, fmt.Errorf("%w: batch would drive cash to %s",
			core.ErrInsufficientCash, projectedCash.StringFixed(2))
	}

	committed := make([]core.LedgerTransaction, 0, len(batch))
	for _, in := range batch {
		tx := core.LedgerTransaction{
			ID:        s.nextID,
			ItemName:  in.ItemName,
			Kind:      in.Kind,
			Units:     in.Units,
			UnitPrice: in.UnitPrice,
			Total:     in.Total,
			Date:      in.Date,
		}
		s.nextID++
		s.txs = append(s.txs, tx)
		committed = append(committed, tx)
	}

	// Consistency check immediately after every mutation.
	if _, err := s.snapshotLocked(); err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *MemoryStore) ListQuotesForItem(ctx context.Context, name string, limit int) ([]core.HistoricalQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.HistoricalQuote
	for i := len(s.quotes) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.quotes[i].ItemName == name {
			out = append(out, s.quotes[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordQuote(ctx context.Context, quote core.Quote, quotedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range quote.Lines {
		s.quotes = append(s.quotes, core.HistoricalQuote{
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
			QuotedAt:  quotedAt,
		})
	}
	return nil
}

func (s *MemoryStore) TopSellers(ctx context.Context, limit int) ([]core.SellerStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := make(map[string]*core.SellerStat)
	for _, tx := range s.txs {
		if tx.Kind != core.Sale {
			continue
		}
		stat, ok := agg[tx.ItemName]
		if !ok {
			stat = &core.SellerStat{ItemName: tx.ItemName}
			agg[tx.ItemName] = stat
		}
		stat.UnitsSold += tx.Units
		stat.Revenue = stat.Revenue.Add(tx.Total)
	}

	stats := make([]core.SellerStat, 0, len(agg))
	for _, stat := range agg {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if !stats[i].Revenue.Equal(stats[j].Revenue) {
			return stats[i].Revenue.GreaterThan(stats[j].Revenue)
		}
		return stats[i].ItemName < stats[j].ItemName
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats, nil
}

// Derivations below require s.mu held by the caller.

func (s *MemoryStore) itemLocked(row catalogRow) core.CatalogItem {
	return core.CatalogItem{
		Name:          row.name,
		Category:      row.category,
		StockQuantity: s.stockLocked(row.name),
		BuyUnitPrice:  row.buy,
		SellUnitPrice: row.sell,
	}
}

func (s *MemoryStore) stockLocked(name string) int64 {
	var stock int64
	for _, tx := range s.txs {
		if tx.ItemName != name {
			continue
		}
		switch tx.Kind {
		case core.StockOrder:
			stock += tx.Units
		case core.Sale:
			stock -= tx.Units
		}
	}
	return stock
}

func (s *MemoryStore) cashLocked() decimal.Decimal {
	cash := s.openingCash
	for _, tx := range s.txs {
		switch tx.Kind {
		case core.StockOrder:
			cash = cash.Sub(tx.Total)
		case core.Sale:
			cash = cash.Add(tx.Total)
		}
	}
	return cash
}

func (s *MemoryStore) snapshotLocked() (core.FinancialSnapshot, error) {
	inventory := decimal.Zero
	for _, name := range s.names {
		stock := s.stockLocked(name)
		if stock < 0 {
			return core.FinancialSnapshot{}, fmt.Errorf("%w: negative stock %d for %q",
				core.ErrLedgerInconsistency, stock, name)
		}
		inventory = inventory.Add(decimal.NewFromInt(stock).Mul(s.catalog[name].buy))
	}
	cash := s.cashLocked()
	return core.FinancialSnapshot{
		AsOf:           time.Now(),
		CashBalance:    cash,
		InventoryValue: inventory,
		TotalAssets:    cash.Add(inventory),
	}, nil
}
