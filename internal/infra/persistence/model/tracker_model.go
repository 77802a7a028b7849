package model

import (
	"time"

	"github.com/google/uuid"
)

// TrackerModel is the GORM-specific struct for the 'trackers' table.
type TrackerModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OrgID      uuid.UUID `gorm:"not null;index:idx_trackers_on_org;uniqueIndex:idx_trackers_org_name"`
	Name       string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_trackers_org_name"`
	APIKeyHash string    `gorm:"type:varchar(255);not null"`
	Active     bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (TrackerModel) TableName() string {
	return "trackers"
}

// TrackerStateModel is the per-tracker last-accepted bookkeeping row backing
// the server-side rate limit. It is the only mutable shared state in the
// ingestion path and is always updated under a row-level lock.
type TrackerStateModel struct {
	TrackerID      uuid.UUID `gorm:"type:uuid;primary_key"`
	LastAcceptedAt time.Time `gorm:"not null"`
	LastCapturedAt time.Time `gorm:"not null"`
	UpdatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (TrackerStateModel) TableName() string {
	return "tracker_states"
}
