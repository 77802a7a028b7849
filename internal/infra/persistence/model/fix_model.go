package model

import (
	"time"

	"github.com/google/uuid"
)

// FixModel is the GORM-specific struct for the 'fixes' table.
// The (TrackerID, CapturedAt) unique index is the idempotency key: a client
// retry of an already-accepted sample collides here instead of duplicating.
type FixModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	TrackerID  uuid.UUID `gorm:"not null;uniqueIndex:idx_fixes_tracker_captured;index:idx_fixes_on_tracker"`
	Latitude   float64   `gorm:"type:decimal(10,8);not null"`
	Longitude  float64   `gorm:"type:decimal(11,8);not null"`
	Accuracy   *float64  `gorm:"type:decimal(10,2)"`
	CapturedAt time.Time `gorm:"not null;uniqueIndex:idx_fixes_tracker_captured"`
	Source     string    `gorm:"type:varchar(255)"`
	CreatedAt  time.Time

	Zones []FixZoneModel `gorm:"foreignKey:FixID"`
}

// TableName explicitly sets the table name for GORM.
func (FixModel) TableName() string {
	return "fixes"
}

// FixZoneModel links an accepted fix to the zones containing it at ingestion time.
type FixZoneModel struct {
	FixID  uuid.UUID `gorm:"type:uuid;primary_key"`
	ZoneID uuid.UUID `gorm:"type:uuid;primary_key;index:idx_fix_zones_on_zone"`
}

// TableName explicitly sets the table name for GORM.
func (FixZoneModel) TableName() string {
	return "fix_zones"
}
