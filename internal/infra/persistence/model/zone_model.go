package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ZoneModel is the GORM-specific struct for the 'zones' table.
// Geometry keeps the submitted encoding verbatim; normalization happens on read.
type ZoneModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OrgID     uuid.UUID      `gorm:"not null;index:idx_zones_on_org"`
	Name      string         `gorm:"type:varchar(100);not null"`
	Geometry  datatypes.JSON `gorm:"type:jsonb;not null"`
	Active    bool           `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (ZoneModel) TableName() string {
	return "zones"
}
