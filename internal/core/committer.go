package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCommitter turns a resolved, priced request into a single atomic batch
// of ledger transactions. The batch either lands in full or not at all: the
// store re-verifies cash sufficiency and stock levels at append time, so a
// concurrent commit between resolve and commit can only fail this order
// closed, never corrupt the ledger.
type OrderCommitter struct {
	store LedgerStore
	now   func() time.Time
}

func NewOrderCommitter(store LedgerStore) *OrderCommitter {
	return &OrderCommitter{store: store, now: time.Now}
}

// Commit builds and appends the StockOrder and Sale transactions for the run.
// A commit with no sale lines, or one rejected for insufficient cash, yields
// a Declined order with no ledger mutation. Any other append failure is a
// ledger inconsistency and is returned as an error, never swallowed.
func (c *OrderCommitter) Commit(ctx context.Context, res Resolution, quote Quote, constraint DeliveryConstraint) (*Order, error) {
	txDate := constraint.RequestDate
	if txDate.IsZero() {
		txDate = c.now()
	}

	var batch []TransactionInput
	for _, ro := range res.RestockOrders {
		batch = append(batch, TransactionInput{
			ItemName:  ro.ItemName,
			Kind:      StockOrder,
			Units:     ro.Units,
			UnitPrice: ro.UnitCost,
			Total:     ro.TotalCost.Round(2),
			Date:      txDate,
		})
	}

	saleCount := 0
	total := decimal.Zero
	for _, line := range quote.Lines {
		if line.Quantity <= 0 {
			continue
		}
		// Effective per-unit price after discount; the rounded subtotal is
		// the authoritative cash effect.
		effective := line.UnitPrice.Mul(oneMinusPercent(line.DiscountPercent))
		batch = append(batch, TransactionInput{
			ItemName:  line.ItemName,
			Kind:      Sale,
			Units:     line.Quantity,
			UnitPrice: effective,
			Total:     line.Subtotal,
			Date:      txDate,
		})
		total = total.Add(line.Subtotal)
		saleCount++
	}

	if saleCount == 0 {
		return &Order{
			ID:      uuid.NewString(),
			Status:  OrderDeclined,
			Message: "no fulfillable lines to sell",
		}, nil
	}

	committed, err := c.store.AppendTransactions(ctx, batch)
	if err != nil {
		if errors.Is(err, ErrInsufficientCash) {
			// Cash moved between resolution and commit. Fail the whole
			// order closed; the store has not been mutated.
			return &Order{
				ID:      uuid.NewString(),
				Status:  OrderDeclined,
				Message: fmt.Sprintf("commit aborted: %v", err),
			}, nil
		}
		return nil, fmt.Errorf("ledger append failed: %w", err)
	}

	ids := make([]int64, len(committed))
	for i, tx := range committed {
		ids[i] = tx.ID
	}

	return &Order{
		ID:             uuid.NewString(),
		Status:         OrderSuccessful,
		TransactionIDs: ids,
		TotalAmount:    total,
		Message:        fmt.Sprintf("committed %d transactions (%d sales, %d stock orders)", len(committed), saleCount, len(res.RestockOrders)),
	}, nil
}
