package app

import "resupply-engine/internal/core"

// FulfillmentResult is returned by Fulfill and QuoteFromText.
// ParsedLines echoes the structured lines the pipeline actually ran with,
// which for QuoteFromText is the parser's output.
type FulfillmentResult struct {
	Response    *core.Response
	ParsedLines []core.RequestedLine
}
