package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/geometry"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/errors"
	"fieldtrack/internal/usecase"

	"github.com/google/uuid"
)

var (
	// ErrZoneNotFound is returned when a zone is not found or not owned by the caller.
	ErrZoneNotFound = errors.New("zone not found")
	// ErrZoneNameRequired is returned when a zone is created without a name.
	ErrZoneNameRequired = errors.New("zone name is required")
	// ErrInvalidZoneGeometry is returned when the submitted geometry cannot be normalized.
	ErrInvalidZoneGeometry = errors.New("invalid zone geometry")
	// ErrInvalidPoint is returned for out-of-range containment queries.
	ErrInvalidPoint = errors.New("point coordinates out of range")
)

type zoneService struct {
	zoneRepo repository.ZoneRepository
	logger   *slog.Logger
}

// NewZoneService creates a new zone service instance
func NewZoneService(zoneRepo repository.ZoneRepository, logger *slog.Logger) usecase.ZoneUsecase {
	return &zoneService{
		zoneRepo: zoneRepo,
		logger:   logger,
	}
}

// CreateZone validates the geometry through the normalizer and persists the
// zone in its submitted encoding; it is re-normalized on every read.
func (s *zoneService) CreateZone(ctx context.Context, orgID uuid.UUID, input *usecase.CreateZoneInput) (*entity.Zone, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrZoneNameRequired
	}

	if _, err := geometry.Normalize(input.Geometry); err != nil {
		return nil, errors.Wrap(ErrInvalidZoneGeometry, err.Error())
	}

	zone := &entity.Zone{
		ID:        uuid.New(),
		OrgID:     orgID,
		Name:      input.Name,
		Geometry:  input.Geometry,
		Active:    input.Active,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.zoneRepo.CreateZone(ctx, zone); err != nil {
		return nil, errors.Wrap(err, "failed to create zone")
	}

	return zone, nil
}

// ListZones retrieves all zones for an organization.
func (s *zoneService) ListZones(ctx context.Context, orgID uuid.UUID) ([]*entity.Zone, error) {
	zones, err := s.zoneRepo.FindZonesByOrg(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find zones by org")
	}

	return zones, nil
}

// SetZoneActive flips a zone's active flag after verifying ownership.
func (s *zoneService) SetZoneActive(ctx context.Context, orgID, zoneID uuid.UUID, active bool) error {
	zone, err := s.zoneRepo.FindZoneByID(ctx, zoneID)
	if err != nil {
		if errors.Is(err, repository.ErrZoneNotFound) {
			return ErrZoneNotFound
		}

		return errors.Wrap(err, "failed to find zone by ID")
	}

	// Ownership failures look identical to missing zones on purpose.
	if zone.OrgID != orgID {
		return ErrZoneNotFound
	}

	if err := s.zoneRepo.SetZoneActive(ctx, zoneID, active); err != nil {
		return errors.Wrap(err, "failed to update zone active flag")
	}

	return nil
}

// ZonesContaining returns the full set of active zones containing the point.
// The engine makes no cross-zone tie-break; callers decide policy.
func (s *zoneService) ZonesContaining(ctx context.Context, orgID uuid.UUID, lat, lng float64) ([]*entity.Zone, error) {
	if !entity.ValidCoordinates(lat, lng) {
		return nil, ErrInvalidPoint
	}

	zones, err := s.zoneRepo.FindActiveZonesByOrg(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find active zones by org")
	}

	point := geometry.Point{Lat: lat, Lng: lng}

	containing := make([]*entity.Zone, 0, len(zones))
	for _, zone := range zones {
		shape, err := geometry.Normalize(zone.Geometry)
		if err != nil {
			s.logger.Warn("skipping zone with malformed geometry",
				slog.String("zone_id", zone.ID.String()),
				slog.Any("error", err),
			)

			continue
		}

		if shape.Contains(point) {
			containing = append(containing, zone)
		}
	}

	return containing, nil
}
