package repository

import (
	"context"

	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/errors"

	"github.com/google/uuid"
)

// ErrZoneNotFound is returned when a zone is not found.
var ErrZoneNotFound = errors.New("zone not found")

// ZoneRepository defines the interface for geofence persistence.
type ZoneRepository interface {
	// CreateZone persists a new zone for an organization.
	CreateZone(ctx context.Context, zone *entity.Zone) error

	// FindZoneByID retrieves a zone by its unique ID.
	FindZoneByID(ctx context.Context, id uuid.UUID) (*entity.Zone, error)

	// FindZonesByOrg retrieves all zones for an organization, name order.
	FindZonesByOrg(ctx context.Context, orgID uuid.UUID) ([]*entity.Zone, error)

	// FindActiveZonesByOrg retrieves the zones eligible for containment checks.
	FindActiveZonesByOrg(ctx context.Context, orgID uuid.UUID) ([]*entity.Zone, error)

	// SetZoneActive flips the active flag; inactive zones are retained for history.
	SetZoneActive(ctx context.Context, id uuid.UUID, active bool) error
}
