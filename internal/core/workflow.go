package core

import (
	"context"
	"fmt"
	"sync"
)

// State identifies one step of the fulfillment pipeline.
type State string

const (
	StateParse          State = "PARSE"
	StateCheckInventory State = "CHECK_INVENTORY"
	StateGenerateQuote  State = "GENERATE_QUOTE"
	StateFinalizeOrder  State = "FINALIZE_ORDER"
	StateReporting      State = "REPORTING"
	StateDecline        State = "DECLINE"
	StateDone           State = "DONE"
)

// ResponseStatus is the overall outcome surfaced to the caller. A request
// always terminates in one of these; per-line problems are reported on the
// resolved lines, never raised as failures.
type ResponseStatus string

const (
	StatusSuccessful         ResponseStatus = "SUCCESSFUL"
	StatusPartiallyFulfilled ResponseStatus = "PARTIALLY_FULFILLED"
	StatusDeclined           ResponseStatus = "DECLINED"
)

// Request is the structured input to one pipeline run. Line items are
// expected to reference canonical catalog names; normalization of free-text
// input is the request parser's responsibility.
type Request struct {
	Lines      []RequestedLine
	Constraint DeliveryConstraint
}

// Response is the terminal result of one pipeline run.
type Response struct {
	Status         ResponseStatus
	Order          *Order
	Quote          *Quote
	Lines          []ResolvedLine
	SnapshotBefore FinancialSnapshot
	SnapshotAfter  FinancialSnapshot
	DeclineReason  string
}

// WorkflowRun is the mutable per-request context. It is created at request
// entry and discarded once the response is produced; the LedgerStore is the
// only state shared across requests.
type WorkflowRun struct {
	State          State
	Request        Request
	Resolution     Resolution
	Quote          Quote
	Order          *Order
	SnapshotBefore FinancialSnapshot
	SnapshotAfter  FinancialSnapshot
	DeclineReason  string
}

// WorkflowEngine sequences Resolver -> Pricing -> Committer -> Reporting as an
// explicit switch over the current state. Runs are mutually exclusive: the
// engine mutex guarantees no other run's commit can interleave between this
// run's resolution and its commit, on top of the store's own commit-time
// re-validation.
type WorkflowEngine struct {
	mu        sync.Mutex
	store     LedgerStore
	resolver  *AvailabilityResolver
	pricing   *PricingEngine
	committer *OrderCommitter
}

func NewWorkflowEngine(store LedgerStore, estimate DeliveryEstimator) *WorkflowEngine {
	return &WorkflowEngine{
		store:     store,
		resolver:  NewAvailabilityResolver(estimate),
		pricing:   NewPricingEngine(),
		committer: NewOrderCommitter(store),
	}
}

// Run drives a request through the pipeline until a terminal state.
// It returns an error only for fatal conditions (store failures, ledger
// inconsistency); every business outcome, including a full decline, comes
// back as a normal Response.
func (e *WorkflowEngine) Run(ctx context.Context, req Request) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	run := &WorkflowRun{State: StateParse, Request: req}

	for {
		switch run.State {
		case StateParse:
			// Structured lines are already present; parsing free text is an
			// external collaborator's job.
			run.State = StateCheckInventory

		case StateCheckInventory:
			if err := e.stepCheckInventory(ctx, run); err != nil {
				return nil, err
			}

		case StateGenerateQuote:
			e.stepGenerateQuote(ctx, run)

		case StateFinalizeOrder:
			if err := e.stepFinalizeOrder(ctx, run); err != nil {
				return nil, err
			}

		case StateReporting:
			if err := e.stepReporting(ctx, run); err != nil {
				return nil, err
			}

		case StateDecline, StateDone:
			return buildResponse(run), nil

		default:
			return nil, fmt.Errorf("%w: unknown workflow state %q", ErrLedgerInconsistency, run.State)
		}
	}
}

func (e *WorkflowEngine) stepCheckInventory(ctx context.Context, run *WorkflowRun) error {
	snapshot, err := e.store.GetFinancialSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read financial snapshot: %w", err)
	}
	run.SnapshotBefore = snapshot
	run.SnapshotAfter = snapshot

	items, err := e.store.ListCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	catalog := make(map[string]CatalogItem, len(items))
	for _, item := range items {
		catalog[item.Name] = item
	}

	run.Resolution = e.resolver.Resolve(run.Request.Lines, run.Request.Constraint, catalog, snapshot.CashBalance)
	if run.Resolution.Decision == Decline {
		run.DeclineReason = declineReason(run.Resolution.Lines)
		run.State = StateDecline
		return nil
	}
	run.State = StateGenerateQuote
	return nil
}

func (e *WorkflowEngine) stepGenerateQuote(ctx context.Context, run *WorkflowRun) {
	quote := Quote{}
	for _, line := range run.Resolution.Lines {
		fulfilled := line.FulfillableQuantity + line.RestockQuantity
		if line.Issue != "" {
			quote.Notes = append(quote.Notes, line.Issue)
		}
		if fulfilled <= 0 {
			continue
		}

		item, err := e.store.GetCatalogItem(ctx, line.ItemName)
		if err != nil {
			// The resolver already vetted the line against the catalog;
			// a miss here means the request cannot cover this line.
			quote.Notes = append(quote.Notes, fmt.Sprintf("%q dropped from quote: %v", line.ItemName, err))
			continue
		}

		// Advisory input only: pricing must work with no history at all.
		history, _ := e.store.ListQuotesForItem(ctx, line.ItemName, 5)

		ql := e.pricing.Price(line.ItemName, fulfilled, item.SellUnitPrice, history)
		quote.Lines = append(quote.Lines, ql)
		quote.TotalPrice = quote.TotalPrice.Add(ql.Subtotal)

		if ql.DiscountPercent.IsPositive() {
			quote.Notes = append(quote.Notes, fmt.Sprintf("%s%% bulk discount applied to %d units of %q",
				ql.DiscountPercent.String(), fulfilled, line.ItemName))
		}
	}
	for _, ro := range run.Resolution.RestockOrders {
		quote.Notes = append(quote.Notes, fmt.Sprintf("restocking %d units of %q at %s each, supplier delivery %s",
			ro.Units, ro.ItemName, ro.UnitCost.StringFixed(2), ro.DeliveryDate.Format("2006-01-02")))
	}

	run.Quote = quote
	if len(quote.Lines) == 0 {
		run.DeclineReason = "no priceable line items"
		run.State = StateDecline
		return
	}
	run.State = StateFinalizeOrder
}

func (e *WorkflowEngine) stepFinalizeOrder(ctx context.Context, run *WorkflowRun) error {
	order, err := e.committer.Commit(ctx, run.Resolution, run.Quote, run.Request.Constraint)
	if err != nil {
		return err
	}
	run.Order = order
	// A declined commit still reaches Reporting so the caller gets a report
	// explaining why.
	run.State = StateReporting
	return nil
}

func (e *WorkflowEngine) stepReporting(ctx context.Context, run *WorkflowRun) error {
	snapshot, err := e.store.GetFinancialSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read post-commit snapshot: %w", err)
	}
	run.SnapshotAfter = snapshot

	if run.Order != nil && run.Order.Status == OrderSuccessful {
		// Quote history is advisory; a recording failure must not fail a
		// run whose commit already landed.
		_ = e.store.RecordQuote(ctx, run.Quote, run.Request.Constraint.RequestDate)
	}

	run.State = StateDone
	return nil
}

func buildResponse(run *WorkflowRun) *Response {
	resp := &Response{
		Order:          run.Order,
		Lines:          run.Resolution.Lines,
		SnapshotBefore: run.SnapshotBefore,
		SnapshotAfter:  run.SnapshotAfter,
		DeclineReason:  run.DeclineReason,
	}
	if len(run.Quote.Lines) > 0 {
		q := run.Quote
		resp.Quote = &q
	}

	switch {
	case run.State == StateDecline:
		resp.Status = StatusDeclined
	case run.Order == nil || run.Order.Status == OrderDeclined:
		resp.Status = StatusDeclined
		if resp.DeclineReason == "" && run.Order != nil {
			resp.DeclineReason = run.Order.Message
		}
	case run.Resolution.Decision == Proceed:
		resp.Status = StatusSuccessful
	default:
		resp.Status = StatusPartiallyFulfilled
	}
	return resp
}

// declineReason aggregates per-line issues into one human-readable reason.
func declineReason(lines []ResolvedLine) string {
	if len(lines) == 0 {
		return "request contained no line items"
	}
	reason := "no part of the request can be fulfilled"
	for _, l := range lines {
		if l.Issue != "" {
			reason += "; " + l.Issue
		}
	}
	return reason
}
