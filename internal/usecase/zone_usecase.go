package usecase

import (
	"context"
	"encoding/json"

	"fieldtrack/internal/domain/entity"

	"github.com/google/uuid"
)

// CreateZoneInput represents the input for creating a zone.
type CreateZoneInput struct {
	Name     string          `json:"name"`
	Geometry json.RawMessage `json:"geometry"`
	Active   bool            `json:"active"`
}

// ZoneUsecase defines the geofence management use cases.
type ZoneUsecase interface {
	// CreateZone validates the geometry through the normalizer and persists
	// the zone in its submitted encoding.
	CreateZone(ctx context.Context, orgID uuid.UUID, input *CreateZoneInput) (*entity.Zone, error)

	// ListZones retrieves all zones for an organization.
	ListZones(ctx context.Context, orgID uuid.UUID) ([]*entity.Zone, error)

	// SetZoneActive flips a zone's active flag after verifying ownership.
	SetZoneActive(ctx context.Context, orgID, zoneID uuid.UUID, active bool) error

	// ZonesContaining returns the full set of active zones whose geometry
	// contains the point. Callers decide any cross-zone tie-break policy.
	ZonesContaining(ctx context.Context, orgID uuid.UUID, lat, lng float64) ([]*entity.Zone, error)
}
