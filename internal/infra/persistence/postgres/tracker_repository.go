// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// trackerRepository implements the repository.TrackerRepository interface.
type trackerRepository struct {
	db *gorm.DB
}

// NewTrackerRepository is the constructor for trackerRepository.
func NewTrackerRepository(db *gorm.DB) repository.TrackerRepository {
	return &trackerRepository{
		db: db,
	}
}

// CreateTracker persists a new tracker.
func (repo *trackerRepository) CreateTracker(ctx context.Context, tracker *entity.Tracker) error {
	trackerM := fromTrackerDomain(tracker)

	if err := repo.db.WithContext(ctx).Create(trackerM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateTracker
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrTrackerAlreadyExists.WrapMessage("missing required tracker information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create tracker")
	}

	// Update the entity with generated values
	tracker.ID = trackerM.ID
	tracker.CreatedAt = trackerM.CreatedAt
	tracker.UpdatedAt = trackerM.UpdatedAt

	return nil
}

// FindTrackerByID retrieves a tracker by its unique ID.
func (repo *trackerRepository) FindTrackerByID(ctx context.Context, id uuid.UUID) (*entity.Tracker, error) {
	var trackerM model.TrackerModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&trackerM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTrackerNotFound
		}

		return nil, errors.Wrap(err, "failed to find tracker by ID")
	}

	return toTrackerDomain(&trackerM), nil
}

// FindTrackersByOrg retrieves all trackers for an organization.
func (repo *trackerRepository) FindTrackersByOrg(ctx context.Context, orgID uuid.UUID) ([]*entity.Tracker, error) {
	var trackerModels []*model.TrackerModel

	if err := repo.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&trackerModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find trackers by org")
	}

	trackers := make([]*entity.Tracker, 0, len(trackerModels))
	for _, trackerM := range trackerModels {
		trackers = append(trackers, toTrackerDomain(trackerM))
	}

	return trackers, nil
}

// --- Mapper Functions ---

// toTrackerDomain converts a GORM TrackerModel to a domain Tracker entity.
func toTrackerDomain(data *model.TrackerModel) *entity.Tracker {
	if data == nil {
		return nil
	}

	return &entity.Tracker{
		ID:         data.ID,
		OrgID:      data.OrgID,
		Name:       data.Name,
		APIKeyHash: data.APIKeyHash,
		Active:     data.Active,
		CreatedAt:  data.CreatedAt,
		UpdatedAt:  data.UpdatedAt,
	}
}

// fromTrackerDomain converts a domain Tracker entity to a GORM TrackerModel.
func fromTrackerDomain(data *entity.Tracker) *model.TrackerModel {
	if data == nil {
		return nil
	}

	return &model.TrackerModel{
		ID:         data.ID,
		OrgID:      data.OrgID,
		Name:       data.Name,
		APIKeyHash: data.APIKeyHash,
		Active:     data.Active,
		CreatedAt:  data.CreatedAt,
		UpdatedAt:  data.UpdatedAt,
	}
}
