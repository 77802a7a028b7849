// Package usecase defines the application-level interfaces and their inputs.
package usecase

import (
	"context"
	"time"

	"fieldtrack/internal/domain/entity"

	"github.com/google/uuid"
)

// IngestInput is one inbound position sample. The principal is resolved by
// the delivery layer and passed explicitly; the use case never reads ambient
// auth state.
type IngestInput struct {
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	CapturedAt time.Time // Zero means "now".
	Source     string
}

// IngestUsecase defines the position ingestion use cases.
type IngestUsecase interface {
	// Ingest applies the server-side ingestion policy to one sample and
	// returns the decision. Policy rejections (too_frequent, invalid
	// coordinates, unknown/inactive tracker) are reported in the decision,
	// not as errors; the error return is for infrastructure failures only.
	Ingest(ctx context.Context, trackerID uuid.UUID, input *IngestInput) (*entity.IngestionDecision, error)

	// RecentFixes lists up to limit accepted fixes for a tracker, newest first.
	RecentFixes(ctx context.Context, trackerID uuid.UUID, limit int) ([]*entity.Fix, error)
}
