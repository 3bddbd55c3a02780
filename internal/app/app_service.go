package app

import (
	"context"
	"fmt"
	"time"

	"resupply-engine/internal/ai"
	"resupply-engine/internal/core"
)

type appService struct {
	store  core.LedgerStore
	engine *core.WorkflowEngine
	parser ai.ParserService
}

// NewApplicationService wires the workflow engine over the given store.
// estimate may be nil to use the default supplier lead-time model; parser may
// be nil, in which case QuoteFromText is unavailable.
func NewApplicationService(store core.LedgerStore, estimate core.DeliveryEstimator, parser ai.ParserService) ApplicationService {
	return &appService{
		store:  store,
		engine: core.NewWorkflowEngine(store, estimate),
		parser: parser,
	}
}

func (s *appService) Fulfill(ctx context.Context, req FulfillRequest) (*FulfillmentResult, error) {
	requestDate := req.RequestDate
	if requestDate.IsZero() {
		requestDate = time.Now()
	}

	resp, err := s.engine.Run(ctx, core.Request{
		Lines: req.Lines,
		Constraint: core.DeliveryConstraint{
			RequestDate:    requestDate,
			RequiredByDate: req.RequiredBy,
		},
	})
	if err != nil {
		return nil, err
	}
	return &FulfillmentResult{Response: resp, ParsedLines: req.Lines}, nil
}

func (s *appService) QuoteFromText(ctx context.Context, text string, requestDate time.Time) (*FulfillmentResult, error) {
	if s.parser == nil {
		return nil, fmt.Errorf("no request parser configured (set OPENAI_API_KEY)")
	}

	items, err := s.store.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog for parsing: %w", err)
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}

	parsed, err := s.parser.ParseRequest(ctx, text, names)
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	req := FulfillRequest{RequestDate: requestDate}
	for _, line := range parsed.Lines {
		req.Lines = append(req.Lines, core.RequestedLine{ItemName: line.ItemName, Quantity: line.Quantity})
	}
	if parsed.RequiredByDate != "" {
		deadline, err := time.Parse("2006-01-02", parsed.RequiredByDate)
		if err != nil {
			return nil, fmt.Errorf("parser returned invalid deadline %q: %w", parsed.RequiredByDate, err)
		}
		req.RequiredBy = &deadline
	}

	return s.Fulfill(ctx, req)
}

func (s *appService) GetFinancialReport(ctx context.Context, asOf time.Time) (*core.FinancialReport, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return core.BuildFinancialReport(ctx, s.store, asOf)
}

func (s *appService) GetSnapshot(ctx context.Context) (*core.FinancialSnapshot, error) {
	snapshot, err := s.store.GetFinancialSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *appService) ListCatalog(ctx context.Context) ([]core.CatalogItem, error) {
	return s.store.ListCatalog(ctx)
}
