package entity

import "time"

// DecisionReason enumerates the server's verdict categories for one inbound sample.
type DecisionReason string

const (
	ReasonOK                 DecisionReason = "ok"
	ReasonTooFrequent        DecisionReason = "too_frequent"
	ReasonUnauthenticated    DecisionReason = "unauthenticated"
	ReasonInvalidCoordinates DecisionReason = "invalid_coordinates"
)

// IngestionDecision is the server's verdict for one inbound sample.
// It is never persisted; only the per-tracker last-accepted timestamp is.
type IngestionDecision struct {
	Accepted      bool           `json:"accepted"`
	Reason        DecisionReason `json:"reason"`
	NextAllowedAt *time.Time     `json:"next_allowed_at,omitempty"` // Present when Reason is too_frequent.
}
