package usecase

import (
	"context"

	"fieldtrack/internal/domain/entity"

	"github.com/google/uuid"
)

// EnrollTrackerInput represents the input for enrolling a tracker.
type EnrollTrackerInput struct {
	Name string `json:"name"`
}

// EnrollTrackerOutput carries the enrolled tracker and its one-time API key.
// The plaintext key is never stored and cannot be recovered later.
type EnrollTrackerOutput struct {
	Tracker *entity.Tracker
	APIKey  string
}

// TrackerUsecase defines tracker enrollment and authentication use cases.
type TrackerUsecase interface {
	// EnrollTracker creates a tracker for an organization and generates its
	// API key.
	EnrollTracker(ctx context.Context, orgID uuid.UUID, input *EnrollTrackerInput) (*EnrollTrackerOutput, error)

	// ListTrackers retrieves all trackers enrolled by an organization.
	ListTrackers(ctx context.Context, orgID uuid.UUID) ([]*entity.Tracker, error)

	// Authenticate verifies a tracker's API key and issues access/refresh tokens.
	Authenticate(ctx context.Context, trackerID uuid.UUID, apiKey string) (accessToken, refreshToken string, err error)
}
