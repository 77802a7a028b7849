package entity

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Fix is one accepted position report from a tracker.
type Fix struct {
	ID         uuid.UUID
	TrackerID  uuid.UUID
	Latitude   float64     // WGS84 degrees.
	Longitude  float64     // WGS84 degrees.
	Accuracy   *float64    // Meters, optional.
	CapturedAt time.Time   // Timestamp assigned by the device; idempotency key per tracker.
	Source     string      // Free-form identifier of the producing client/build.
	ZoneIDs    []uuid.UUID // Zones containing this fix at ingestion time, if attribution ran.
	CreatedAt  time.Time
}

// ValidCoordinates reports whether lat/lng form a finite WGS84 pair.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}

	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
