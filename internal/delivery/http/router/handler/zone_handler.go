package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"fieldtrack/internal/delivery/http/response"
	"fieldtrack/internal/usecase"
	"fieldtrack/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// ZoneHandlerParams holds dependencies for ZoneHandler, injected by Fx.
type ZoneHandlerParams struct {
	fx.In

	ZoneUC usecase.ZoneUsecase
	Logger *slog.Logger
}

// ZoneHandler holds dependencies for zone management handlers
type ZoneHandler struct {
	zoneUC usecase.ZoneUsecase
	logger *slog.Logger
}

// NewZoneHandler is the constructor for ZoneHandler
func NewZoneHandler(params ZoneHandlerParams) *ZoneHandler {
	return &ZoneHandler{
		zoneUC: params.ZoneUC,
		logger: params.Logger,
	}
}

// CreateZoneRequest represents the request body for creating a zone
type CreateZoneRequest struct {
	Name     string          `json:"name" validate:"required"`
	Geometry json.RawMessage `json:"geometry" validate:"required"`
	Active   *bool           `json:"active,omitempty"`
}

// SetZoneActiveRequest represents the request body for toggling a zone
type SetZoneActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// CreateZone handles creating a new geofence zone
func (h *ZoneHandler) CreateZone(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return err
	}

	var req CreateZoneRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid zone input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	input := &usecase.CreateZoneInput{
		Name:     req.Name,
		Geometry: req.Geometry,
		Active:   active,
	}

	zone, err := h.zoneUC.CreateZone(c.Request().Context(), orgID, input)
	if err != nil {
		switch {
		case errors.Is(err, impl.ErrZoneNameRequired):
			return response.BadRequest(c, "NAME_REQUIRED", "Zone name is required")
		case errors.Is(err, impl.ErrInvalidZoneGeometry):
			return response.BadRequest(c, "INVALID_GEOMETRY", err.Error())
		}

		return err
	}

	return response.Success(c, http.StatusCreated, zone, "Zone created successfully")
}

// GetZones handles listing all zones for the caller's organization
func (h *ZoneHandler) GetZones(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return err
	}

	zones, err := h.zoneUC.ListZones(c.Request().Context(), orgID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, zones, "Zones retrieved successfully")
}

// SetZoneActive handles toggling a zone's active flag
func (h *ZoneHandler) SetZoneActive(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return err
	}

	zoneID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid zone ID")
	}

	var req SetZoneActiveRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	if err := h.zoneUC.SetZoneActive(c.Request().Context(), orgID, zoneID, *req.Active); err != nil {
		if errors.Is(err, impl.ErrZoneNotFound) {
			return response.NotFound(c, "ZONE_NOT_FOUND", "Zone not found")
		}

		return err
	}

	return response.Success(c, http.StatusOK, map[string]bool{"active": *req.Active}, "Zone updated successfully")
}

// GetZonesContaining handles point-in-zone lookups for operators
func (h *ZoneHandler) GetZonesContaining(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return err
	}

	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return response.BadRequest(c, "INVALID_COORDINATES", "Invalid latitude")
	}
	lng, err := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err != nil {
		return response.BadRequest(c, "INVALID_COORDINATES", "Invalid longitude")
	}

	zones, err := h.zoneUC.ZonesContaining(c.Request().Context(), orgID, lat, lng)
	if err != nil {
		if errors.Is(err, impl.ErrInvalidPoint) {
			return response.BadRequest(c, "INVALID_COORDINATES", "Coordinates out of range")
		}

		return err
	}

	return response.Success(c, http.StatusOK, zones, "Containing zones retrieved successfully")
}

// getOrgID extracts the organization ID of the authenticated operator.
// Admin tokens carry the organization as their subject.
func getOrgID(c echo.Context) (uuid.UUID, error) {
	principalVal := c.Get("principalID")
	orgID, ok := principalVal.(uuid.UUID)
	if !ok {
		// The response is committed here; the sentinel only stops the caller.
		if err := response.Unauthorized(c, "INVALID_TOKEN", "Invalid organization ID in token"); err != nil {
			return uuid.Nil, err
		}

		return uuid.Nil, echo.ErrUnauthorized
	}

	return orgID, nil
}
