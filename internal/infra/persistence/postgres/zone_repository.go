// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"

	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// zoneRepository implements the repository.ZoneRepository interface.
type zoneRepository struct {
	db *gorm.DB
}

// NewZoneRepository is the constructor for zoneRepository.
func NewZoneRepository(db *gorm.DB) repository.ZoneRepository {
	return &zoneRepository{
		db: db,
	}
}

// CreateZone persists a new zone.
func (repo *zoneRepository) CreateZone(ctx context.Context, zone *entity.Zone) error {
	zoneM := fromZoneDomain(zone)

	if err := repo.db.WithContext(ctx).Create(zoneM).Error; err != nil {
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrInvalidGeometry.WrapMessage("missing required zone information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create zone")
	}

	zone.ID = zoneM.ID
	zone.CreatedAt = zoneM.CreatedAt
	zone.UpdatedAt = zoneM.UpdatedAt

	return nil
}

// FindZoneByID retrieves a zone by its unique ID.
func (repo *zoneRepository) FindZoneByID(ctx context.Context, id uuid.UUID) (*entity.Zone, error) {
	var zoneM model.ZoneModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&zoneM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrZoneNotFound
		}

		return nil, errors.Wrap(err, "failed to find zone by ID")
	}

	return toZoneDomain(&zoneM), nil
}

// FindZonesByOrg retrieves all zones for an organization (including inactive).
func (repo *zoneRepository) FindZonesByOrg(ctx context.Context, orgID uuid.UUID) ([]*entity.Zone, error) {
	var zoneModels []*model.ZoneModel

	if err := repo.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&zoneModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find zones by org")
	}

	zones := make([]*entity.Zone, 0, len(zoneModels))
	for _, zoneM := range zoneModels {
		zones = append(zones, toZoneDomain(zoneM))
	}

	return zones, nil
}

// FindActiveZonesByOrg retrieves all active zones for an organization.
func (repo *zoneRepository) FindActiveZonesByOrg(ctx context.Context, orgID uuid.UUID) ([]*entity.Zone, error) {
	var zoneModels []*model.ZoneModel

	if err := repo.db.WithContext(ctx).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("created_at DESC").
		Find(&zoneModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find active zones by org")
	}

	zones := make([]*entity.Zone, 0, len(zoneModels))
	for _, zoneM := range zoneModels {
		zones = append(zones, toZoneDomain(zoneM))
	}

	return zones, nil
}

// SetZoneActive toggles a zone's active flag.
func (repo *zoneRepository) SetZoneActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := repo.db.WithContext(ctx).
		Model(&model.ZoneModel{}).
		Where("id = ?", id).
		Update("active", active)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to set zone active")
	}

	if result.RowsAffected == 0 {
		return repository.ErrZoneNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toZoneDomain converts a GORM ZoneModel to a domain Zone entity.
func toZoneDomain(data *model.ZoneModel) *entity.Zone {
	if data == nil {
		return nil
	}

	return &entity.Zone{
		ID:        data.ID,
		OrgID:     data.OrgID,
		Name:      data.Name,
		Geometry:  json.RawMessage(data.Geometry),
		Active:    data.Active,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

// fromZoneDomain converts a domain Zone entity to a GORM ZoneModel.
func fromZoneDomain(data *entity.Zone) *model.ZoneModel {
	if data == nil {
		return nil
	}

	return &model.ZoneModel{
		ID:        data.ID,
		OrgID:     data.OrgID,
		Name:      data.Name,
		Geometry:  datatypes.JSON(data.Geometry),
		Active:    data.Active,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}
