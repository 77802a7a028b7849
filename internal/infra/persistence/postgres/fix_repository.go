// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fixRepository implements the repository.FixRepository interface.
type fixRepository struct {
	db *gorm.DB
}

// NewFixRepository is the constructor for fixRepository.
func NewFixRepository(db *gorm.DB) repository.FixRepository {
	return &fixRepository{
		db: db,
	}
}

// RecordFix runs the rate-limit check and the fix insert in one transaction.
// The tracker_states row is locked FOR UPDATE so concurrent submissions for
// the same tracker serialize here; whichever transaction wins the lock decides
// the window and the loser sees the advanced timestamp.
func (repo *fixRepository) RecordFix(ctx context.Context, fix *entity.Fix, minInterval time.Duration, now time.Time) (*repository.RecordResult, error) {
	result := &repository.RecordResult{Status: repository.RecordAccepted}

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state model.TrackerStateModel

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tracker_id = ?", fix.TrackerID).
			First(&state).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First fix for this tracker. Create the state row now so the
			// lock exists for the insert below; a concurrent first fix loses
			// on the primary key and retries as a plain locked read.
			state = model.TrackerStateModel{
				TrackerID:      fix.TrackerID,
				LastAcceptedAt: time.Time{},
				LastCapturedAt: time.Time{},
			}
			if createErr := tx.Create(&state).Error; createErr != nil {
				if !isUniqueConstraintViolation(createErr) {
					return errors.Wrap(createErr, "failed to create tracker state")
				}
				if retryErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
					Where("tracker_id = ?", fix.TrackerID).
					First(&state).Error; retryErr != nil {
					return errors.Wrap(retryErr, "failed to lock tracker state")
				}
			}
		case err != nil:
			return errors.Wrap(err, "failed to lock tracker state")
		}

		if !state.LastCapturedAt.IsZero() && state.LastCapturedAt.Equal(fix.CapturedAt) {
			result.Status = repository.RecordDuplicate
			result.LastAcceptedAt = state.LastAcceptedAt

			return nil
		}

		if !state.LastAcceptedAt.IsZero() && now.Sub(state.LastAcceptedAt) < minInterval {
			result.Status = repository.RecordTooFrequent
			result.LastAcceptedAt = state.LastAcceptedAt

			return nil
		}

		fixM := fromFixDomain(fix)
		if err := tx.Create(fixM).Error; err != nil {
			// The unique (tracker_id, captured_at) index catches retries whose
			// capturedAt matches an older fix than the one tracked in state.
			if isUniqueConstraintViolation(err) {
				result.Status = repository.RecordDuplicate
				result.LastAcceptedAt = state.LastAcceptedAt

				return nil
			}

			return domainerrors.NewDatabaseExecuteError(err, "failed to create fix")
		}

		fix.ID = fixM.ID
		fix.CreatedAt = fixM.CreatedAt

		if err := tx.Model(&model.TrackerStateModel{}).
			Where("tracker_id = ?", fix.TrackerID).
			Updates(map[string]any{
				"last_accepted_at": now,
				"last_captured_at": fix.CapturedAt,
			}).Error; err != nil {
			return errors.Wrap(err, "failed to advance tracker state")
		}

		result.LastAcceptedAt = now

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// FindRecentFixesByTracker retrieves up to limit fixes for a tracker, newest first.
func (repo *fixRepository) FindRecentFixesByTracker(ctx context.Context, trackerID uuid.UUID, limit int) ([]*entity.Fix, error) {
	var fixModels []*model.FixModel

	if err := repo.db.WithContext(ctx).
		Preload("Zones").
		Where("tracker_id = ?", trackerID).
		Order("captured_at DESC").
		Limit(limit).
		Find(&fixModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find recent fixes by tracker")
	}

	fixes := make([]*entity.Fix, 0, len(fixModels))
	for _, fixM := range fixModels {
		fixes = append(fixes, toFixDomain(fixM))
	}

	return fixes, nil
}

// --- Mapper Functions ---

// toFixDomain converts a GORM FixModel to a domain Fix entity.
func toFixDomain(data *model.FixModel) *entity.Fix {
	if data == nil {
		return nil
	}

	zoneIDs := make([]uuid.UUID, 0, len(data.Zones))
	for _, link := range data.Zones {
		zoneIDs = append(zoneIDs, link.ZoneID)
	}

	return &entity.Fix{
		ID:         data.ID,
		TrackerID:  data.TrackerID,
		Latitude:   data.Latitude,
		Longitude:  data.Longitude,
		Accuracy:   data.Accuracy,
		CapturedAt: data.CapturedAt,
		Source:     data.Source,
		ZoneIDs:    zoneIDs,
		CreatedAt:  data.CreatedAt,
	}
}

// fromFixDomain converts a domain Fix entity to a GORM FixModel.
func fromFixDomain(data *entity.Fix) *model.FixModel {
	if data == nil {
		return nil
	}

	zones := make([]model.FixZoneModel, 0, len(data.ZoneIDs))
	for _, zoneID := range data.ZoneIDs {
		zones = append(zones, model.FixZoneModel{ZoneID: zoneID})
	}

	return &model.FixModel{
		ID:         data.ID,
		TrackerID:  data.TrackerID,
		Latitude:   data.Latitude,
		Longitude:  data.Longitude,
		Accuracy:   data.Accuracy,
		CapturedAt: data.CapturedAt,
		Source:     data.Source,
		Zones:      zones,
	}
}
