// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"time"

	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/errors"

	"github.com/google/uuid"
)

// ErrFixNotFound is returned when a fix is not found.
var ErrFixNotFound = errors.New("fix not found")

// RecordStatus enumerates the outcomes of the atomic record-fix step.
type RecordStatus int

const (
	// RecordAccepted means the fix was persisted and the tracker's
	// last-accepted timestamp advanced.
	RecordAccepted RecordStatus = iota
	// RecordDuplicate means a fix with the same (tracker, capturedAt) key
	// already exists; nothing was persisted.
	RecordDuplicate
	// RecordTooFrequent means the minimum reporting interval has not elapsed;
	// nothing was persisted.
	RecordTooFrequent
)

// RecordResult reports the outcome of RecordFix.
type RecordResult struct {
	Status RecordStatus

	// LastAcceptedAt is the tracker's current last-accepted timestamp.
	// Set when Status is RecordTooFrequent so callers can compute the
	// next allowed time.
	LastAcceptedAt time.Time
}

// FixRepository defines the interface for fix persistence.
type FixRepository interface {
	// RecordFix atomically checks the tracker's last-accepted timestamp
	// against minInterval and, if the interval has elapsed, persists the fix
	// and advances the timestamp in the same transaction. A retry carrying a
	// capturedAt already recorded for this tracker reports RecordDuplicate
	// without persisting again.
	//
	// The check-then-write must be serialized per tracker (row-level lock);
	// concurrent calls for the same tracker must never both be accepted
	// within one interval window.
	RecordFix(ctx context.Context, fix *entity.Fix, minInterval time.Duration, now time.Time) (*RecordResult, error)

	// FindRecentFixesByTracker returns up to limit fixes, newest first.
	FindRecentFixesByTracker(ctx context.Context, trackerID uuid.UUID, limit int) ([]*entity.Fix, error)
}
