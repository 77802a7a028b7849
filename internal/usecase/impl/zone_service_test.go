package impl

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZoneService(t *testing.T) (usecase.ZoneUsecase, *fakeZoneRepo) {
	t.Helper()

	zoneRepo := &fakeZoneRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewZoneService(zoneRepo, logger), zoneRepo
}

func TestZoneService_CreateZone_Success(t *testing.T) {
	service, zoneRepo := createTestZoneService(t)
	orgID := uuid.New()

	zone, err := service.CreateZone(context.Background(), orgID, &usecase.CreateZoneInput{
		Name:     "depot",
		Geometry: json.RawMessage(`{"type":"Polygon","coordinates":[[[121.0,24.5],[122.0,24.5],[122.0,25.5],[121.0,24.5]]]}`),
		Active:   true,
	})

	require.NoError(t, err)
	assert.Equal(t, orgID, zone.OrgID)
	assert.True(t, zone.Active)
	assert.Len(t, zoneRepo.zones, 1)
}

func TestZoneService_CreateZone_RequiresName(t *testing.T) {
	service, _ := createTestZoneService(t)

	_, err := service.CreateZone(context.Background(), uuid.New(), &usecase.CreateZoneInput{
		Name:     "   ",
		Geometry: json.RawMessage(`{"lat":25.0,"lng":121.5,"radius":100}`),
	})

	assert.ErrorIs(t, err, ErrZoneNameRequired)
}

func TestZoneService_CreateZone_RejectsMalformedGeometry(t *testing.T) {
	service, zoneRepo := createTestZoneService(t)

	cases := []struct {
		name     string
		geometry string
	}{
		{"unsupported type", `{"type":"Point","coordinates":[121.5,25.0]}`},
		{"too few vertices", `{"type":"Polygon","coordinates":[[[121.0,24.5],[122.0,24.5]]]}`},
		{"negative radius", `{"lat":25.0,"lng":121.5,"radius":-5}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateZone(context.Background(), uuid.New(), &usecase.CreateZoneInput{
				Name:     "bad zone",
				Geometry: json.RawMessage(tc.geometry),
			})

			assert.ErrorIs(t, err, ErrInvalidZoneGeometry)
		})
	}

	assert.Empty(t, zoneRepo.zones)
}

func TestZoneService_SetZoneActive_EnforcesOwnership(t *testing.T) {
	service, zoneRepo := createTestZoneService(t)
	owner := uuid.New()
	stranger := uuid.New()

	zone := &entity.Zone{ID: uuid.New(), OrgID: owner, Name: "depot", Active: true}
	zoneRepo.zones = []*entity.Zone{zone}

	err := service.SetZoneActive(context.Background(), stranger, zone.ID, false)
	assert.ErrorIs(t, err, ErrZoneNotFound)
	assert.True(t, zone.Active)

	err = service.SetZoneActive(context.Background(), owner, zone.ID, false)
	require.NoError(t, err)
	assert.False(t, zone.Active)
}

func TestZoneService_ZonesContaining_SkipsInactiveAndMalformed(t *testing.T) {
	service, zoneRepo := createTestZoneService(t)
	orgID := uuid.New()

	ring := `{"type":"Polygon","coordinates":[[[121.0,24.5],[122.0,24.5],[122.0,25.5],[121.0,25.5],[121.0,24.5]]]}`
	containing := &entity.Zone{ID: uuid.New(), OrgID: orgID, Name: "a", Active: true, Geometry: json.RawMessage(ring)}
	inactive := &entity.Zone{ID: uuid.New(), OrgID: orgID, Name: "b", Active: false, Geometry: json.RawMessage(ring)}
	malformed := &entity.Zone{ID: uuid.New(), OrgID: orgID, Name: "c", Active: true, Geometry: json.RawMessage(`[]`)}
	zoneRepo.zones = []*entity.Zone{containing, inactive, malformed}

	zones, err := service.ZonesContaining(context.Background(), orgID, 25.0, 121.5)

	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, containing.ID, zones[0].ID)
}

func TestZoneService_ZonesContaining_RejectsInvalidPoint(t *testing.T) {
	service, _ := createTestZoneService(t)

	_, err := service.ZonesContaining(context.Background(), uuid.New(), 95.0, 121.5)

	assert.ErrorIs(t, err, ErrInvalidPoint)
}
