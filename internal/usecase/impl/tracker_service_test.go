package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHasher marks hashes with a prefix instead of doing real key stretching.
type fakeHasher struct{}

func (fakeHasher) Hash(secret string) (string, error) {
	return "hashed:" + secret, nil
}

func (fakeHasher) Check(secret, hash string) bool {
	return hash == "hashed:"+secret
}

type fakeTokenService struct{}

func (fakeTokenService) GenerateTokens(subjectID uuid.UUID, roles []string) (string, string, error) {
	return "access-" + subjectID.String(), "refresh-" + subjectID.String(), nil
}

func (fakeTokenService) ValidateToken(string) (*service.Claims, error) {
	panic("not used in these tests")
}

func (fakeTokenService) GetRefreshTokenDuration() time.Duration {
	return time.Hour
}

func createTestTrackerService(t *testing.T) (usecase.TrackerUsecase, *fakeTrackerRepo) {
	t.Helper()

	trackerRepo := &fakeTrackerRepo{trackers: map[uuid.UUID]*entity.Tracker{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewTrackerService(trackerRepo, fakeHasher{}, fakeTokenService{}, logger), trackerRepo
}

func TestTrackerService_EnrollTracker_GeneratesOneTimeKey(t *testing.T) {
	service, trackerRepo := createTestTrackerService(t)
	orgID := uuid.New()

	out, err := service.EnrollTracker(context.Background(), orgID, &usecase.EnrollTrackerInput{Name: "van-7"})

	require.NoError(t, err)
	assert.NotEmpty(t, out.APIKey)
	assert.Equal(t, "hashed:"+out.APIKey, out.Tracker.APIKeyHash)
	assert.True(t, out.Tracker.Active)
	assert.Len(t, trackerRepo.trackers, 1)
}

func TestTrackerService_EnrollTracker_RequiresName(t *testing.T) {
	service, _ := createTestTrackerService(t)

	_, err := service.EnrollTracker(context.Background(), uuid.New(), &usecase.EnrollTrackerInput{Name: ""})

	assert.ErrorIs(t, err, ErrTrackerNameRequired)
}

func TestTrackerService_Authenticate_Success(t *testing.T) {
	service, _ := createTestTrackerService(t)
	out, err := service.EnrollTracker(context.Background(), uuid.New(), &usecase.EnrollTrackerInput{Name: "van-7"})
	require.NoError(t, err)

	access, refresh, err := service.Authenticate(context.Background(), out.Tracker.ID, out.APIKey)

	require.NoError(t, err)
	assert.Equal(t, "access-"+out.Tracker.ID.String(), access)
	assert.Equal(t, "refresh-"+out.Tracker.ID.String(), refresh)
}

func TestTrackerService_Authenticate_WrongKey(t *testing.T) {
	service, _ := createTestTrackerService(t)
	out, err := service.EnrollTracker(context.Background(), uuid.New(), &usecase.EnrollTrackerInput{Name: "van-7"})
	require.NoError(t, err)

	_, _, err = service.Authenticate(context.Background(), out.Tracker.ID, "not-the-key")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTrackerService_Authenticate_UnknownTracker(t *testing.T) {
	service, _ := createTestTrackerService(t)

	_, _, err := service.Authenticate(context.Background(), uuid.New(), "whatever")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTrackerService_Authenticate_InactiveTracker(t *testing.T) {
	service, trackerRepo := createTestTrackerService(t)
	out, err := service.EnrollTracker(context.Background(), uuid.New(), &usecase.EnrollTrackerInput{Name: "van-7"})
	require.NoError(t, err)

	trackerRepo.trackers[out.Tracker.ID].Active = false

	_, _, err = service.Authenticate(context.Background(), out.Tracker.ID, out.APIKey)

	assert.ErrorIs(t, err, ErrTrackerInactive)
}
