package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resupply-engine/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// commitLockKey is the advisory lock key serializing batch appends. Stock and
// cash are derived from the whole transaction log, so row locks cannot guard
// the re-validation; one advisory xact lock per append keeps commits serial.
const commitLockKey = 0x5e5a7071

// PostgresStore is the pgx-backed LedgerStore. The schema mirrors the ledger
// model: a static catalog table and an append-only transactions table from
// which stock and cash are derived.
type PostgresStore struct {
	pool        *pgxpool.Pool
	openingCash decimal.Decimal
}

func NewPostgresStore(pool *pgxpool.Pool, openingCash decimal.Decimal) *PostgresStore {
	return &PostgresStore{pool: pool, openingCash: openingCash}
}

// InitSchema creates the store tables when they do not exist yet.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS catalog (
			item_name       TEXT PRIMARY KEY,
			category        TEXT NOT NULL,
			buy_unit_price  NUMERIC(12,2) NOT NULL,
			sell_unit_price NUMERIC(12,2) NOT NULL,
			CHECK (sell_unit_price > buy_unit_price)
		);
		CREATE TABLE IF NOT EXISTS transactions (
			id         BIGSERIAL PRIMARY KEY,
			item_name  TEXT NOT NULL REFERENCES catalog(item_name),
			kind       TEXT NOT NULL CHECK (kind IN ('stock_order', 'sale')),
			units      BIGINT NOT NULL CHECK (units > 0),
			unit_price NUMERIC(16,6) NOT NULL,
			total      NUMERIC(14,2) NOT NULL CHECK (total >= 0),
			tx_date    DATE NOT NULL
		);
		CREATE TABLE IF NOT EXISTS quote_history (
			id         BIGSERIAL PRIMARY KEY,
			item_name  TEXT NOT NULL,
			quantity   BIGINT NOT NULL,
			unit_price NUMERIC(16,6) NOT NULL,
			subtotal   NUMERIC(14,2) NOT NULL,
			quoted_at  DATE NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Reset wipes all store tables. Used by the seeding tool and integration tests.
func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE TABLE transactions, quote_history, catalog CASCADE")
	if err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return nil
}

// Seed loads a catalog and books the opening stock as StockOrder transactions
// dated openingDate.
func (s *PostgresStore) Seed(ctx context.Context, items []SeedItem, openingDate time.Time) error {
	var opening []core.TransactionInput
	for _, seed := range items {
		buy, err := decimal.NewFromString(seed.BuyUnitPrice)
		if err != nil {
			return fmt.Errorf("bad buy price for %q: %w", seed.Name, err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO catalog (item_name, category, buy_unit_price, sell_unit_price)
			VALUES ($1, $2, $3, $4)
		`, seed.Name, seed.Category, seed.BuyUnitPrice, seed.SellUnitPrice)
		if err != nil {
			return fmt.Errorf("failed to insert catalog item %q: %w", seed.Name, err)
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

func (s *PostgresStore) GetCatalogItem(ctx context.Context, name string) (*core.CatalogItem, error) {
	var item core.CatalogItem
	err := s.pool.QueryRow(ctx, `
		SELECT c.item_name, c.category, c.buy_unit_price, c.sell_unit_price,
		       COALESCE(SUM(CASE
		           WHEN t.kind = 'stock_order' THEN t.units
		           WHEN t.kind = 'sale'        THEN -t.units
		           ELSE 0
		       END), 0) AS stock
		FROM catalog c
		LEFT JOIN transactions t ON t.item_name = c.item_name
		WHERE c.item_name = $1
		GROUP BY c.item_name, c.category, c.buy_unit_price, c.sell_unit_price
	`, name).Scan(&item.Name, &item.Category, &item.BuyUnitPrice, &item.SellUnitPrice, &item.StockQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", core.ErrCatalogMiss, name)
		}
		return nil, fmt.Errorf("failed to fetch catalog item %q: %w", name, err)
	}
	return &item, nil
}

func (s *PostgresStore) ListCatalog(ctx context.Context) ([]core.CatalogItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.item_name, c.category, c.buy_unit_price, c.sell_unit_price,
		       COALESCE(SUM(CASE
		           WHEN t.kind = 'stock_order' THEN t.units
		           WHEN t.kind = 'sale'        THEN -t.units
		           ELSE 0
		       END), 0) AS stock
		FROM catalog c
		LEFT JOIN transactions t ON t.item_name = c.item_name
		GROUP BY c.item_name, c.category, c.buy_unit_price, c.sell_unit_price
		ORDER BY c.item_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var items []core.CatalogItem
	for rows.Next() {
		var item core.CatalogItem
		if err := rows.Scan(&item.Name, &item.Category, &item.BuyUnitPrice, &item.SellUnitPrice, &item.StockQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetFinancialSnapshot(ctx context.Context) (core.FinancialSnapshot, error) {
	return s.snapshot(ctx, s.pool)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the snapshot and
// derivation queries can run standalone or inside an append transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) snapshot(ctx context.Context, q querier) (core.FinancialSnapshot, error) {
	cash, err := s.cash(ctx, q)
	if err != nil {
		return core.FinancialSnapshot{}, err
	}

	var inventory decimal.Decimal
	var negative int64
	err = q.QueryRow(ctx, `
		SELECT COALESCE(SUM(stock * buy_unit_price), 0),
		       COUNT(*) FILTER (WHERE stock < 0)
		FROM (
			SELECT c.buy_unit_price,
			       COALESCE(SUM(CASE
			           WHEN t.kind = 'stock_order' THEN t.units
			           WHEN t.kind = 'sale'        THEN -t.units
			           ELSE 0
			       END), 0) AS stock
			FROM catalog c
			LEFT JOIN transactions t ON t.item_name = c.item_name
			GROUP BY c.item_name, c.buy_unit_price
		) levels
	`).Scan(&inventory, &negative)
	if err != nil {
		return core.FinancialSnapshot{}, fmt.Errorf("failed to derive inventory value: %w", err)
	}
	if negative > 0 {
		return core.FinancialSnapshot{}, fmt.Errorf("%w: %d items with negative stock", core.ErrLedgerInconsistency, negative)
	}

	return core.FinancialSnapshot{
		AsOf:           time.Now(),
		CashBalance:    cash,
		InventoryValue: inventory,
		TotalAssets:    cash.Add(inventory),
	}, nil
}

func (s *PostgresStore) cash(ctx context.Context, q querier) (decimal.Decimal, error) {
	var sales, purchases decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(total) FILTER (WHERE kind = 'sale'), 0),
		       COALESCE(SUM(total) FILTER (WHERE kind = 'stock_order'), 0)
		FROM transactions
	`).Scan(&sales, &purchases)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to derive cash balance: %w", err)
	}
	return s.openingCash.Add(sales).Sub(purchases), nil
}

func (s *PostgresStore) AppendTransactions(ctx context.Context, batch []core.TransactionInput) ([]core.LedgerTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize appends: the cash and stock re-validation reads the whole
	// log, which row locks cannot protect.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", commitLockKey); err != nil {
		return nil, fmt.Errorf("failed to take commit lock: %w", err)
	}

	projectedCash, err := s.cash(ctx, tx)
	if err != nil {
		return nil, err
	}
	projectedStock := make(map[string]int64)

	for _, in := range batch {
		if in.Units <= 0 {
			return nil, fmt.Errorf("%w: transaction for %q has non-positive units %d",
				core.ErrLedgerInconsistency, in.ItemName, in.Units)
		}
		if in.Total.IsNegative() {
			return nil, fmt.Errorf("%w: transaction for %q has negative total %s",
				core.ErrLedgerInconsistency, in.ItemName, in.Total)
		}
		if _, seen := projectedStock[in.ItemName]; !seen {
			var stock int64
			err := tx.QueryRow(ctx, `
				SELECT COALESCE(SUM(CASE
				    WHEN kind = 'stock_order' THEN units
				    WHEN kind = 'sale'        THEN -units
				    ELSE 0
				END), 0)
				FROM transactions
				WHERE item_name = $1
			`, in.ItemName).Scan(&stock)
			if err != nil {
				return nil, fmt.Errorf("failed to derive stock for %q: %w", in.ItemName, err)
			}
			projectedStock[in.ItemName] = stock
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
		row := core.LedgerTransaction{
			ItemName:  in.ItemName,
			Kind:      in.Kind,
			Units:     in.Units,
			UnitPrice: in.UnitPrice,
			Total:     in.Total,
			Date:      in.Date,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO transactions (item_name, kind, units, unit_price, total, tx_date)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, in.ItemName, string(in.Kind), in.Units, in.UnitPrice, in.Total, in.Date).Scan(&row.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction for %q: %w", in.ItemName, err)
		}
		committed = append(committed, row)
	}

	// Consistency check before the batch becomes visible.
	if _, err := s.snapshot(ctx, tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return committed, nil
}

func (s *PostgresStore) ListQuotesForItem(ctx context.Context, name string, limit int) ([]core.HistoricalQuote, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT item_name, quantity, unit_price, subtotal, quoted_at
		FROM quote_history
		WHERE item_name = $1
		ORDER BY quoted_at DESC, id DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote history: %w", err)
	}
	defer rows.Close()

	var quotes []core.HistoricalQuote
	for rows.Next() {
		var q core.HistoricalQuote
		if err := rows.Scan(&q.ItemName, &q.Quantity, &q.UnitPrice, &q.Subtotal, &q.QuotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote history row: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func (s *PostgresStore) RecordQuote(ctx context.Context, quote core.Quote, quotedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, line := range quote.Lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO quote_history (item_name, quantity, unit_price, subtotal, quoted_at)
			VALUES ($1, $2, $3, $4, $5)
		`, line.ItemName, line.Quantity, line.UnitPrice, line.Subtotal, quotedAt)
		if err != nil {
			return fmt.Errorf("failed to record quote line for %q: %w", line.ItemName, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) TopSellers(ctx context.Context, limit int) ([]core.SellerStat, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT item_name, SUM(units) AS total_units, SUM(total) AS total_revenue
		FROM transactions
		WHERE kind = 'sale'
		GROUP BY item_name
		ORDER BY total_revenue DESC, item_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top sellers: %w", err)
	}
	defer rows.Close()

	var stats []core.SellerStat
	for rows.Next() {
		var stat core.SellerStat
		if err := rows.Scan(&stat.ItemName, &stat.UnitsSold, &stat.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan seller stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
