package app

import (
	"time"

	"resupply-engine/internal/core"
)

// FulfillRequest is the input for one structured fulfillment run.
type FulfillRequest struct {
	Lines       []core.RequestedLine `json:"lines"`
	RequestDate time.Time            `json:"request_date"`
	RequiredBy  *time.Time           `json:"required_by,omitempty"`
}
