package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Zone is one geofence owned by an organization.
//
// Geometry is kept in the encoding the editing collaborator submitted it in
// (GeoJSON Feature/FeatureCollection/Polygon/MultiPolygon, a legacy point
// list, or a center+radius circle) and normalized on every read.
type Zone struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Geometry  json.RawMessage
	Active    bool // Inactive zones are excluded from containment but retained for history.
	CreatedAt time.Time
	UpdatedAt time.Time
}
