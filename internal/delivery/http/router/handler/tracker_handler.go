package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"fieldtrack/config"
	"fieldtrack/internal/delivery/http/response"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/usecase"
	"fieldtrack/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// TrackerHandlerParams holds dependencies for TrackerHandler, injected by Fx.
type TrackerHandlerParams struct {
	fx.In

	TrackerUC usecase.TrackerUsecase
	TokenSvc  service.TokenService
	Config    *config.Config
	Logger    *slog.Logger
}

// TrackerHandler holds dependencies for tracker enrollment and token exchange
type TrackerHandler struct {
	trackerUC usecase.TrackerUsecase
	tokenSvc  service.TokenService
	cfg       *config.Config
	logger    *slog.Logger
}

// NewTrackerHandler is the constructor for TrackerHandler
func NewTrackerHandler(params TrackerHandlerParams) *TrackerHandler {
	return &TrackerHandler{
		trackerUC: params.TrackerUC,
		tokenSvc:  params.TokenSvc,
		cfg:       params.Config,
		logger:    params.Logger,
	}
}

// EnrollTrackerRequest represents the request body for enrolling a tracker
type EnrollTrackerRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// EnrollTrackerResponse carries the enrolled tracker and its one-time API key
type EnrollTrackerResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	APIKey string    `json:"api_key"`
}

// TokenRequest represents the request body for the token exchange.
// Device grants send tracker_id + api_key; operator grants send
// org_id + admin_key.
type TokenRequest struct {
	TrackerID *uuid.UUID `json:"tracker_id,omitempty"`
	APIKey    string     `json:"api_key,omitempty"`
	OrgID     *uuid.UUID `json:"org_id,omitempty"`
	AdminKey  string     `json:"admin_key,omitempty"`
}

// TokenResponse carries the issued tokens
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// EnrollTracker handles creating a new tracker for the caller's organization
func (h *TrackerHandler) EnrollTracker(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return err
	}

	var req EnrollTrackerRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid tracker input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	out, err := h.trackerUC.EnrollTracker(c.Request().Context(), orgID, &usecase.EnrollTrackerInput{Name: req.Name})
	if err != nil {
		switch {
		case errors.Is(err, impl.ErrTrackerNameRequired):
			return response.BadRequest(c, "NAME_REQUIRED", "Tracker name is required")
		case errors.Is(err, impl.ErrDuplicateTracker):
			return response.Conflict(c, "DUPLICATE_TRACKER", "Tracker with this name already exists")
		}

		return err
	}

	return response.Success(c, http.StatusCreated, EnrollTrackerResponse{
		ID:     out.Tracker.ID,
		Name:   out.Tracker.Name,
		APIKey: out.APIKey,
	}, "Tracker enrolled successfully")
}

// GetTrackers handles listing all trackers for the caller's organization
func (h *TrackerHandler) GetTrackers(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return err
	}

	trackers, err := h.trackerUC.ListTrackers(c.Request().Context(), orgID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, trackers, "Trackers retrieved successfully")
}

// IssueToken handles POST /auth/token for both device and operator grants
func (h *TrackerHandler) IssueToken(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid token request")
	}

	switch {
	case req.TrackerID != nil:
		return h.issueTrackerToken(c, *req.TrackerID, req.APIKey)
	case req.OrgID != nil:
		return h.issueAdminToken(c, *req.OrgID, req.AdminKey)
	default:
		return response.BadRequest(c, "INVALID_INPUT", "Either tracker_id or org_id is required")
	}
}

func (h *TrackerHandler) issueTrackerToken(c echo.Context, trackerID uuid.UUID, apiKey string) error {
	accessToken, refreshToken, err := h.trackerUC.Authenticate(c.Request().Context(), trackerID, apiKey)
	if err != nil {
		switch {
		case errors.Is(err, impl.ErrInvalidCredentials):
			return response.Unauthorized(c, "INVALID_CREDENTIALS", "Invalid tracker credentials")
		case errors.Is(err, impl.ErrTrackerInactive):
			return response.Forbidden(c, "TRACKER_INACTIVE", "Tracker is deactivated")
		}

		return err
	}

	return response.Success(c, http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, "Token issued successfully")
}

func (h *TrackerHandler) issueAdminToken(c echo.Context, orgID uuid.UUID, adminKey string) error {
	configured := ""
	if h.cfg.Auth != nil {
		configured = h.cfg.Auth.AdminKey
	}

	if configured == "" ||
		subtle.ConstantTimeCompare([]byte(adminKey), []byte(configured)) != 1 {
		return response.Unauthorized(c, "INVALID_CREDENTIALS", "Invalid admin credentials")
	}

	accessToken, refreshToken, err := h.tokenSvc.GenerateTokens(orgID, []string{"admin"})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, "Token issued successfully")
}
