package impl

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/errors"
	"fieldtrack/internal/usecase"

	"github.com/google/uuid"
)

var (
	// ErrTrackerNameRequired is returned when a tracker is enrolled without a name.
	ErrTrackerNameRequired = errors.New("tracker name is required")
	// ErrDuplicateTracker is returned when the organization already has a tracker with this name.
	ErrDuplicateTracker = errors.New("tracker already exists")
	// ErrInvalidCredentials is returned when the tracker ID or API key does not match.
	ErrInvalidCredentials = errors.New("invalid tracker credentials")
	// ErrTrackerInactive is returned when a deactivated tracker tries to authenticate.
	ErrTrackerInactive = errors.New("tracker is deactivated")
)

const apiKeyBytes = 32

type trackerService struct {
	trackerRepo repository.TrackerRepository
	hasher      service.SecretHasher
	tokenSvc    service.TokenService
	logger      *slog.Logger
}

// NewTrackerService creates a new tracker service instance
func NewTrackerService(
	trackerRepo repository.TrackerRepository,
	hasher service.SecretHasher,
	tokenSvc service.TokenService,
	logger *slog.Logger,
) usecase.TrackerUsecase {
	return &trackerService{
		trackerRepo: trackerRepo,
		hasher:      hasher,
		tokenSvc:    tokenSvc,
		logger:      logger,
	}
}

// EnrollTracker creates a tracker and generates its one-time API key.
// Only the bcrypt hash is stored; the plaintext cannot be recovered later.
func (s *trackerService) EnrollTracker(ctx context.Context, orgID uuid.UUID, input *usecase.EnrollTrackerInput) (*usecase.EnrollTrackerOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTrackerNameRequired
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate API key")
	}

	hash, err := s.hasher.Hash(apiKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash API key")
	}

	tracker := &entity.Tracker{
		ID:         uuid.New(),
		OrgID:      orgID,
		Name:       input.Name,
		APIKeyHash: hash,
		Active:     true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.trackerRepo.CreateTracker(ctx, tracker); err != nil {
		if errors.Is(err, repository.ErrDuplicateTracker) {
			return nil, ErrDuplicateTracker
		}

		return nil, errors.Wrap(err, "failed to create tracker")
	}

	return &usecase.EnrollTrackerOutput{Tracker: tracker, APIKey: apiKey}, nil
}

// ListTrackers retrieves all trackers enrolled by an organization.
func (s *trackerService) ListTrackers(ctx context.Context, orgID uuid.UUID) ([]*entity.Tracker, error) {
	trackers, err := s.trackerRepo.FindTrackersByOrg(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find trackers by org")
	}

	return trackers, nil
}

// Authenticate verifies the API key and issues access/refresh tokens.
// A missing tracker and a wrong key are indistinguishable to the caller.
func (s *trackerService) Authenticate(ctx context.Context, trackerID uuid.UUID, apiKey string) (string, string, error) {
	tracker, err := s.trackerRepo.FindTrackerByID(ctx, trackerID)
	if err != nil {
		if errors.Is(err, repository.ErrTrackerNotFound) {
			return "", "", ErrInvalidCredentials
		}

		return "", "", errors.Wrap(err, "failed to find tracker by ID")
	}

	if !tracker.Active {
		return "", "", ErrTrackerInactive
	}

	if !s.hasher.Check(apiKey, tracker.APIKeyHash) {
		return "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.tokenSvc.GenerateTokens(tracker.ID, []string{"tracker"})
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate tokens")
	}

	return accessToken, refreshToken, nil
}

func generateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
