// Package handler contains the HTTP request handlers.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"fieldtrack/internal/delivery/http/response"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// IngestHandlerParams holds dependencies for IngestHandler, injected by Fx.
type IngestHandlerParams struct {
	fx.In

	IngestUC usecase.IngestUsecase
	Logger   *slog.Logger
}

// IngestHandler holds dependencies for position ingestion handlers
type IngestHandler struct {
	ingestUC usecase.IngestUsecase
	logger   *slog.Logger
}

// NewIngestHandler is the constructor for IngestHandler
func NewIngestHandler(params IngestHandlerParams) *IngestHandler {
	return &IngestHandler{
		ingestUC: params.IngestUC,
		logger:   params.Logger,
	}
}

// ReportPositionRequest represents one inbound position sample.
// Coordinate range checks live in the use case so that out-of-range values
// surface as an invalid_coordinates decision rather than a binding error.
type ReportPositionRequest struct {
	Latitude   float64    `json:"lat"`
	Longitude  float64    `json:"lng"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
	Source     string     `json:"source,omitempty"`
}

// ReportPosition handles POST /v1/positions for the authenticated tracker.
func (h *IngestHandler) ReportPosition(c echo.Context) error {
	trackerID, err := h.getTrackerID(c)
	if err != nil {
		return err
	}

	var req ReportPositionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid position input")
	}

	input := &usecase.IngestInput{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Source:    req.Source,
	}
	if req.CapturedAt != nil {
		input.CapturedAt = *req.CapturedAt
	}

	decision, err := h.ingestUC.Ingest(c.Request().Context(), trackerID, input)
	if err != nil {
		return err
	}

	return writeDecision(c, decision)
}

// GetRecentFixes handles GET /v1/trackers/:id/fixes for operators.
func (h *IngestHandler) GetRecentFixes(c echo.Context) error {
	trackerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid tracker ID")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return response.BadRequest(c, "INVALID_LIMIT", "Limit must be a non-negative integer")
		}
	}

	fixes, err := h.ingestUC.RecentFixes(c.Request().Context(), trackerID, limit)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, fixes, "Recent fixes retrieved successfully")
}

// writeDecision maps an ingestion decision to its HTTP representation.
// The decision document always rides in the data field so the device agent
// can read next_allowed_at regardless of status code.
func writeDecision(c echo.Context, decision *entity.IngestionDecision) error {
	if decision.Accepted {
		return response.Success(c, http.StatusAccepted, decision, "Position accepted")
	}

	var status int
	var errorCode, message string
	switch decision.Reason {
	case entity.ReasonTooFrequent:
		status = http.StatusTooManyRequests
		errorCode, message = "TOO_FREQUENT", "Reporting interval has not elapsed"
	case entity.ReasonInvalidCoordinates:
		status = http.StatusBadRequest
		errorCode, message = "INVALID_COORDINATES", "Coordinates out of range"
	case entity.ReasonUnauthenticated:
		status = http.StatusUnauthorized
		errorCode, message = "UNAUTHENTICATED", "Unknown or deactivated tracker"
	default:
		status = http.StatusBadRequest
		errorCode, message = "REJECTED", "Position rejected"
	}

	return c.JSON(status, response.Response{
		Success: false,
		Code:    status,
		Message: message,
		Data:    decision,
		Error: &response.ErrorInfo{
			Code:    errorCode,
			Details: message,
		},
	})
}

// getTrackerID extracts the authenticated tracker ID from the context
func (h *IngestHandler) getTrackerID(c echo.Context) (uuid.UUID, error) {
	principalVal := c.Get("principalID")
	trackerID, ok := principalVal.(uuid.UUID)
	if !ok {
		// The response is committed here; the sentinel only stops the caller.
		if err := response.Unauthorized(c, "INVALID_TOKEN", "Invalid tracker ID in token"); err != nil {
			return uuid.Nil, err
		}

		return uuid.Nil, echo.ErrUnauthorized
	}

	return trackerID, nil
}
