package impl

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"fieldtrack/config"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTrackerRepo serves trackers from memory.
type fakeTrackerRepo struct {
	trackers map[uuid.UUID]*entity.Tracker
}

func (r *fakeTrackerRepo) CreateTracker(_ context.Context, tracker *entity.Tracker) error {
	r.trackers[tracker.ID] = tracker

	return nil
}

func (r *fakeTrackerRepo) FindTrackerByID(_ context.Context, id uuid.UUID) (*entity.Tracker, error) {
	tracker, ok := r.trackers[id]
	if !ok {
		return nil, repository.ErrTrackerNotFound
	}

	return tracker, nil
}

func (r *fakeTrackerRepo) FindTrackersByOrg(_ context.Context, orgID uuid.UUID) ([]*entity.Tracker, error) {
	var out []*entity.Tracker
	for _, tracker := range r.trackers {
		if tracker.OrgID == orgID {
			out = append(out, tracker)
		}
	}

	return out, nil
}

// fakeFixRepo reproduces the storage contract: the rate-limit check and the
// write happen atomically under one lock.
type fakeFixRepo struct {
	mu             sync.Mutex
	fixes          []*entity.Fix
	lastAcceptedAt map[uuid.UUID]time.Time
	lastCapturedAt map[uuid.UUID]time.Time
	err            error
}

func newFakeFixRepo() *fakeFixRepo {
	return &fakeFixRepo{
		lastAcceptedAt: make(map[uuid.UUID]time.Time),
		lastCapturedAt: make(map[uuid.UUID]time.Time),
	}
}

func (r *fakeFixRepo) RecordFix(_ context.Context, fix *entity.Fix, minInterval time.Duration, now time.Time) (*repository.RecordResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}

	if last, ok := r.lastCapturedAt[fix.TrackerID]; ok && last.Equal(fix.CapturedAt) {
		return &repository.RecordResult{Status: repository.RecordDuplicate, LastAcceptedAt: r.lastAcceptedAt[fix.TrackerID]}, nil
	}

	if last, ok := r.lastAcceptedAt[fix.TrackerID]; ok && now.Sub(last) < minInterval {
		return &repository.RecordResult{Status: repository.RecordTooFrequent, LastAcceptedAt: last}, nil
	}

	r.fixes = append(r.fixes, fix)
	r.lastAcceptedAt[fix.TrackerID] = now
	r.lastCapturedAt[fix.TrackerID] = fix.CapturedAt

	return &repository.RecordResult{Status: repository.RecordAccepted, LastAcceptedAt: now}, nil
}

func (r *fakeFixRepo) FindRecentFixesByTracker(_ context.Context, trackerID uuid.UUID, limit int) ([]*entity.Fix, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Fix
	for i := len(r.fixes) - 1; i >= 0 && len(out) < limit; i-- {
		if r.fixes[i].TrackerID == trackerID {
			out = append(out, r.fixes[i])
		}
	}

	return out, nil
}

func (r *fakeFixRepo) persistedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.fixes)
}

// fakeZoneRepo serves a fixed zone list.
type fakeZoneRepo struct {
	zones []*entity.Zone
	err   error
}

func (r *fakeZoneRepo) CreateZone(_ context.Context, zone *entity.Zone) error {
	r.zones = append(r.zones, zone)

	return nil
}

func (r *fakeZoneRepo) FindZoneByID(_ context.Context, id uuid.UUID) (*entity.Zone, error) {
	for _, zone := range r.zones {
		if zone.ID == id {
			return zone, nil
		}
	}

	return nil, repository.ErrZoneNotFound
}

func (r *fakeZoneRepo) FindZonesByOrg(_ context.Context, orgID uuid.UUID) ([]*entity.Zone, error) {
	if r.err != nil {
		return nil, r.err
	}

	var out []*entity.Zone
	for _, zone := range r.zones {
		if zone.OrgID == orgID {
			out = append(out, zone)
		}
	}

	return out, nil
}

func (r *fakeZoneRepo) FindActiveZonesByOrg(_ context.Context, orgID uuid.UUID) ([]*entity.Zone, error) {
	if r.err != nil {
		return nil, r.err
	}

	var out []*entity.Zone
	for _, zone := range r.zones {
		if zone.OrgID == orgID && zone.Active {
			out = append(out, zone)
		}
	}

	return out, nil
}

func (r *fakeZoneRepo) SetZoneActive(_ context.Context, id uuid.UUID, active bool) error {
	for _, zone := range r.zones {
		if zone.ID == id {
			zone.Active = active

			return nil
		}
	}

	return repository.ErrZoneNotFound
}

type ingestFixtures struct {
	service     *ingestService
	trackerRepo *fakeTrackerRepo
	fixRepo     *fakeFixRepo
	zoneRepo    *fakeZoneRepo
	tracker     *entity.Tracker
}

func createTestIngestService(t *testing.T, minInterval time.Duration, attribution bool) ingestFixtures {
	t.Helper()

	tracker := &entity.Tracker{
		ID:     uuid.New(),
		OrgID:  uuid.New(),
		Name:   "van-7",
		Active: true,
	}

	trackerRepo := &fakeTrackerRepo{trackers: map[uuid.UUID]*entity.Tracker{tracker.ID: tracker}}
	fixRepo := newFakeFixRepo()
	zoneRepo := &fakeZoneRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		Tracking: &config.TrackingConfig{MinInterval: minInterval, Attribution: attribution},
	}

	service := NewIngestService(trackerRepo, fixRepo, zoneRepo, cfg, logger).(*ingestService)

	return ingestFixtures{
		service:     service,
		trackerRepo: trackerRepo,
		fixRepo:     fixRepo,
		zoneRepo:    zoneRepo,
		tracker:     tracker,
	}
}

func TestIngestService_Ingest_AcceptsValidSample(t *testing.T) {
	fx := createTestIngestService(t, 5*time.Minute, false)

	decision, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
		Latitude:   25.04,
		Longitude:  121.56,
		CapturedAt: time.Now(),
	})

	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	assert.Equal(t, entity.ReasonOK, decision.Reason)
	assert.Nil(t, decision.NextAllowedAt)
	assert.Equal(t, 1, fx.fixRepo.persistedCount())
}

func TestIngestService_Ingest_InvalidCoordinates(t *testing.T) {
	fx := createTestIngestService(t, 5*time.Minute, false)

	cases := []struct {
		name     string
		lat, lng float64
	}{
		{"latitude above range", 90.5, 0},
		{"latitude below range", -91, 0},
		{"longitude above range", 0, 180.5},
		{"longitude below range", 0, -181},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
				Latitude:  tc.lat,
				Longitude: tc.lng,
			})

			require.NoError(t, err)
			assert.False(t, decision.Accepted)
			assert.Equal(t, entity.ReasonInvalidCoordinates, decision.Reason)
		})
	}

	assert.Zero(t, fx.fixRepo.persistedCount())
}

func TestIngestService_Ingest_UnknownTracker(t *testing.T) {
	fx := createTestIngestService(t, 5*time.Minute, false)

	decision, err := fx.service.Ingest(context.Background(), uuid.New(), &usecase.IngestInput{
		Latitude:  25.04,
		Longitude: 121.56,
	})

	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	assert.Equal(t, entity.ReasonUnauthenticated, decision.Reason)
	assert.Zero(t, fx.fixRepo.persistedCount())
}

func TestIngestService_Ingest_InactiveTracker(t *testing.T) {
	fx := createTestIngestService(t, 5*time.Minute, false)
	fx.tracker.Active = false

	decision, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
		Latitude:  25.04,
		Longitude: 121.56,
	})

	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	assert.Equal(t, entity.ReasonUnauthenticated, decision.Reason)
}

func TestIngestService_Ingest_DuplicateCapturedAtIsIdempotent(t *testing.T) {
	fx := createTestIngestService(t, 5*time.Minute, false)

	capturedAt := time.Now().UTC().Truncate(time.Second)
	input := &usecase.IngestInput{Latitude: 25.04, Longitude: 121.56, CapturedAt: capturedAt}

	first, err := fx.service.Ingest(context.Background(), fx.tracker.ID, input)
	require.NoError(t, err)
	second, err := fx.service.Ingest(context.Background(), fx.tracker.ID, input)
	require.NoError(t, err)

	assert.True(t, first.Accepted)
	assert.True(t, second.Accepted)
	assert.Equal(t, entity.ReasonOK, second.Reason)
	assert.Equal(t, 1, fx.fixRepo.persistedCount())
}

func TestIngestService_Ingest_RateLimitNextAllowedAt(t *testing.T) {
	fx := createTestIngestService(t, 300*time.Second, false)

	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	current := t0
	fx.service.now = func() time.Time { return current }

	first, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
		Latitude: 25.0, Longitude: 121.5, CapturedAt: t0,
	})
	require.NoError(t, err)
	require.True(t, first.Accepted)

	current = t0.Add(60 * time.Second)
	second, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
		Latitude: 25.001, Longitude: 121.501, CapturedAt: current,
	})
	require.NoError(t, err)

	assert.False(t, second.Accepted)
	assert.Equal(t, entity.ReasonTooFrequent, second.Reason)
	require.NotNil(t, second.NextAllowedAt)
	assert.WithinDuration(t, t0.Add(300*time.Second), *second.NextAllowedAt, time.Second)
	assert.Equal(t, 1, fx.fixRepo.persistedCount())
}

func TestIngestService_Ingest_AttributesContainingZones(t *testing.T) {
	fx := createTestIngestService(t, 5*time.Minute, true)

	inside := &entity.Zone{
		ID:     uuid.New(),
		OrgID:  fx.tracker.OrgID,
		Name:   "depot",
		Active: true,
		Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[[
			[121.0,24.5],[122.0,24.5],[122.0,25.5],[121.0,25.5],[121.0,24.5]
		]]}`),
	}
	elsewhere := &entity.Zone{
		ID:     uuid.New(),
		OrgID:  fx.tracker.OrgID,
		Name:   "far away",
		Active: true,
		Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[[
			[10.0,50.0],[11.0,50.0],[11.0,51.0],[10.0,51.0],[10.0,50.0]
		]]}`),
	}
	malformed := &entity.Zone{
		ID:       uuid.New(),
		OrgID:    fx.tracker.OrgID,
		Name:     "broken",
		Active:   true,
		Geometry: json.RawMessage(`{"type":"Point","coordinates":[121.5,25.0]}`),
	}
	fx.zoneRepo.zones = []*entity.Zone{inside, elsewhere, malformed}

	decision, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
		Latitude:   25.0,
		Longitude:  121.5,
		CapturedAt: time.Now(),
	})

	require.NoError(t, err)
	require.True(t, decision.Accepted)
	require.Equal(t, 1, fx.fixRepo.persistedCount())
	assert.Equal(t, []uuid.UUID{inside.ID}, fx.fixRepo.fixes[0].ZoneIDs)
}

func TestIngestService_Ingest_AttributionFailureDoesNotFailIngest(t *testing.T) {
	fx := createTestIngestService(t, 5*time.Minute, true)
	fx.zoneRepo.err = errors.New("zone store unavailable")

	decision, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
		Latitude:   25.0,
		Longitude:  121.5,
		CapturedAt: time.Now(),
	})

	require.NoError(t, err)
	assert.True(t, decision.Accepted)
	require.Equal(t, 1, fx.fixRepo.persistedCount())
	assert.Empty(t, fx.fixRepo.fixes[0].ZoneIDs)
}

func TestIngestService_Ingest_ConcurrentSamePrincipal(t *testing.T) {
	fx := createTestIngestService(t, 300*time.Second, false)

	t0 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fx.service.now = func() time.Time { return t0 }

	const workers = 100
	var wg sync.WaitGroup
	decisions := make([]*entity.IngestionDecision, workers)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
				Latitude:   25.0,
				Longitude:  121.5,
				CapturedAt: t0.Add(time.Duration(i) * time.Millisecond),
			})
			assert.NoError(t, err)
			decisions[i] = decision
		}()
	}
	wg.Wait()

	accepted := 0
	for _, decision := range decisions {
		if decision.Accepted {
			accepted++
		}
	}

	assert.Equal(t, 1, accepted, "rate limit must hold under concurrency")
	assert.Equal(t, 1, fx.fixRepo.persistedCount())
}

func TestIngestService_RecentFixes_ClampsLimit(t *testing.T) {
	fx := createTestIngestService(t, time.Millisecond, false)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	current := base
	fx.service.now = func() time.Time { return current }

	for i := range 60 {
		current = base.Add(time.Duration(i) * time.Minute)
		decision, err := fx.service.Ingest(context.Background(), fx.tracker.ID, &usecase.IngestInput{
			Latitude:   25.0,
			Longitude:  121.5,
			CapturedAt: current,
		})
		require.NoError(t, err)
		require.True(t, decision.Accepted)
	}

	fixes, err := fx.service.RecentFixes(context.Background(), fx.tracker.ID, 0)
	require.NoError(t, err)
	assert.Len(t, fixes, defaultRecentFixLimit)

	// Newest first.
	assert.True(t, fixes[0].CapturedAt.After(fixes[1].CapturedAt))
}

func TestNewIngestService_NilTrackingLeavesConfigUntouched(t *testing.T) {
	trackerRepo := &fakeTrackerRepo{trackers: map[uuid.UUID]*entity.Tracker{}}
	cfg := &config.Config{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewIngestService(trackerRepo, newFakeFixRepo(), &fakeZoneRepo{}, cfg, logger).(*ingestService)

	assert.Nil(t, cfg.Tracking, "shared config must not be mutated")
	assert.Equal(t, 5*time.Minute, service.tracking.MinInterval)
	assert.True(t, service.tracking.Attribution)
}
