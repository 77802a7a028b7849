// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Tracker is the reporting principal: a device or personnel session enrolled
// by an organization to report positions.
type Tracker struct {
	ID         uuid.UUID // The unique identifier of the tracker.
	OrgID      uuid.UUID // The organization that enrolled this tracker.
	Name       string    // A human-readable label, e.g. "van-07" or a person's call sign.
	APIKeyHash string    // Bcrypt hash of the enrollment credential; the plaintext is shown once.
	Active     bool      // Inactive trackers are refused at ingestion.
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
