package repository

import (
	"context"

	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/errors"

	"github.com/google/uuid"
)

var (
	// ErrTrackerNotFound is returned when a tracker is not found.
	ErrTrackerNotFound = errors.New("tracker not found")
	// ErrDuplicateTracker is returned when a tracker with the same name
	// already exists in the organization.
	ErrDuplicateTracker = errors.New("tracker already exists")
)

// TrackerRepository defines the interface for tracker enrollment records.
type TrackerRepository interface {
	// CreateTracker persists a newly enrolled tracker.
	CreateTracker(ctx context.Context, tracker *entity.Tracker) error

	// FindTrackerByID retrieves a tracker by its unique ID.
	FindTrackerByID(ctx context.Context, id uuid.UUID) (*entity.Tracker, error)

	// FindTrackersByOrg retrieves all trackers enrolled by an organization.
	FindTrackersByOrg(ctx context.Context, orgID uuid.UUID) ([]*entity.Tracker, error)
}
