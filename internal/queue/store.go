package queue

import (
	"context"
	"time"
)

// State is the durable snapshot of a queue. It is written after every
// mutation so a process kill mid-flush loses no acknowledged work.
type State struct {
	Items           []Item     `json:"items"`
	LastDeliveredAt *time.Time `json:"last_delivered_at,omitempty"`
	DeliveredCount  int        `json:"delivered_count"`
	DroppedCount    int        `json:"dropped_count"`
}

// Store persists queue state across process restarts.
type Store interface {
	// Load returns the last saved state, or an empty state when none exists.
	Load(ctx context.Context) (*State, error)

	// Save replaces the stored state.
	Save(ctx context.Context, state *State) error
}
