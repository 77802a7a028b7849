package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fieldtrack/config"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/geometry"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/errors"
	"fieldtrack/internal/usecase"

	"github.com/google/uuid"
)

const (
	defaultRecentFixLimit = 50
	maxRecentFixLimit     = 500
)

type ingestService struct {
	trackerRepo repository.TrackerRepository
	fixRepo     repository.FixRepository
	zoneRepo    repository.ZoneRepository
	tracking    *config.TrackingConfig
	logger      *slog.Logger

	// locks serializes the check-then-write step per tracker. The repository
	// additionally holds a row-level lock, so this map is an in-process
	// fast path, not the only line of defense.
	locks sync.Map

	now func() time.Time
}

// NewIngestService creates a new ingestion service instance
func NewIngestService(
	trackerRepo repository.TrackerRepository,
	fixRepo repository.FixRepository,
	zoneRepo repository.ZoneRepository,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.IngestUsecase {
	// Fall back to a local default without touching the shared config.
	tracking := cfg.Tracking
	if tracking == nil {
		tracking = &config.TrackingConfig{
			MinInterval: 5 * time.Minute,
			Attribution: true,
		}
	}

	return &ingestService{
		trackerRepo: trackerRepo,
		fixRepo:     fixRepo,
		zoneRepo:    zoneRepo,
		tracking:    tracking,
		logger:      logger,
		now:         time.Now,
	}
}

// Ingest applies the server-side ingestion policy to one sample.
// The minimum interval enforced here is the source of truth; client-side
// pacing is an optimization only.
func (s *ingestService) Ingest(ctx context.Context, trackerID uuid.UUID, input *usecase.IngestInput) (*entity.IngestionDecision, error) {
	if !entity.ValidCoordinates(input.Latitude, input.Longitude) {
		s.logger.Warn("rejected sample with invalid coordinates",
			slog.String("tracker_id", trackerID.String()),
			slog.Float64("lat", input.Latitude),
			slog.Float64("lng", input.Longitude),
			slog.String("source", input.Source),
		)

		return &entity.IngestionDecision{Accepted: false, Reason: entity.ReasonInvalidCoordinates}, nil
	}

	tracker, err := s.trackerRepo.FindTrackerByID(ctx, trackerID)
	if err != nil {
		if errors.Is(err, repository.ErrTrackerNotFound) {
			return &entity.IngestionDecision{Accepted: false, Reason: entity.ReasonUnauthenticated}, nil
		}

		return nil, errors.Wrap(err, "failed to resolve tracker")
	}
	if !tracker.Active {
		return &entity.IngestionDecision{Accepted: false, Reason: entity.ReasonUnauthenticated}, nil
	}

	now := s.now()
	capturedAt := input.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	fix := &entity.Fix{
		ID:         uuid.New(),
		TrackerID:  tracker.ID,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		Accuracy:   input.Accuracy,
		CapturedAt: capturedAt.UTC(),
		Source:     input.Source,
	}

	// Attribution runs before the write so zone links ride the same
	// transaction as the fix. A failure here only omits the linkage.
	if s.tracking.Attribution {
		fix.ZoneIDs = s.attributeZones(ctx, tracker.OrgID, input.Latitude, input.Longitude)
	}

	minInterval := s.tracking.MinInterval

	mu := s.lockFor(tracker.ID)
	mu.Lock()
	defer mu.Unlock()

	result, err := s.fixRepo.RecordFix(ctx, fix, minInterval, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to record fix")
	}

	switch result.Status {
	case repository.RecordDuplicate:
		// A client retry of an already-accepted sample; nothing was
		// re-persisted and the retry succeeds from the client's view.
		return &entity.IngestionDecision{Accepted: true, Reason: entity.ReasonOK}, nil
	case repository.RecordTooFrequent:
		next := result.LastAcceptedAt.Add(minInterval)

		return &entity.IngestionDecision{
			Accepted:      false,
			Reason:        entity.ReasonTooFrequent,
			NextAllowedAt: &next,
		}, nil
	default:
		return &entity.IngestionDecision{Accepted: true, Reason: entity.ReasonOK}, nil
	}
}

// RecentFixes lists up to limit accepted fixes for a tracker, newest first.
func (s *ingestService) RecentFixes(ctx context.Context, trackerID uuid.UUID, limit int) ([]*entity.Fix, error) {
	if limit <= 0 {
		limit = defaultRecentFixLimit
	}
	if limit > maxRecentFixLimit {
		limit = maxRecentFixLimit
	}

	fixes, err := s.fixRepo.FindRecentFixesByTracker(ctx, trackerID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find recent fixes")
	}

	return fixes, nil
}

// attributeZones returns the IDs of the active zones containing the point.
// Errors are logged and result in an empty attribution, never a failed ingest.
func (s *ingestService) attributeZones(ctx context.Context, orgID uuid.UUID, lat, lng float64) []uuid.UUID {
	zones, err := s.zoneRepo.FindActiveZonesByOrg(ctx, orgID)
	if err != nil {
		s.logger.Warn("zone attribution skipped",
			slog.String("org_id", orgID.String()),
			slog.Any("error", err),
		)

		return nil
	}

	point := geometry.Point{Lat: lat, Lng: lng}

	var zoneIDs []uuid.UUID
	for _, zone := range zones {
		shape, err := geometry.Normalize(zone.Geometry)
		if err != nil {
			// One malformed zone must not abort attribution of the rest.
			s.logger.Warn("skipping zone with malformed geometry",
				slog.String("zone_id", zone.ID.String()),
				slog.Any("error", err),
			)

			continue
		}

		if shape.Contains(point) {
			zoneIDs = append(zoneIDs, zone.ID)
		}
	}

	return zoneIDs
}

func (s *ingestService) lockFor(trackerID uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(trackerID, &sync.Mutex{})

	return mu.(*sync.Mutex)
}
