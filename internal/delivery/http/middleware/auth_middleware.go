// Package middleware provides the HTTP middleware chain.
package middleware

import (
	"slices"
	"strings"

	"fieldtrack/internal/domain/service"

	"github.com/labstack/echo/v4"

	"fieldtrack/internal/delivery/http/response"
)

const (
	// ContextKeyPrincipalID holds the authenticated principal's UUID.
	ContextKeyPrincipalID = "principalID"

	// ContextKeyRoles holds the principal's role list.
	ContextKeyRoles = "roles"

	// RoleTracker marks a device session issued against a tracker API key.
	RoleTracker = "tracker"

	// RoleAdmin marks an operator session.
	RoleAdmin = "admin"
)

// AuthMiddleware provides middleware for JWT authentication and authorization.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate is the core middleware function that validates the JWT access token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "MISSING_TOKEN", "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid token format, must be Bearer token")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil {
			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
		}

		if claims.Type != "access" {
			return response.Unauthorized(c, "INVALID_TOKEN", "Refresh tokens cannot access the API")
		}

		// Set principal info on the context for handlers to use
		c.Set(ContextKeyPrincipalID, claims.SubjectID)
		c.Set(ContextKeyRoles, claims.Roles)

		return next(c)
	}
}

// RequireRole is a middleware factory that checks if the principal has a specific role.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireRole(requiredRole string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rolesVal := c.Get(ContextKeyRoles)
			roles, ok := rolesVal.([]string)
			if !ok {
				return response.Forbidden(c, "FORBIDDEN", "Permission denied: role information missing")
			}

			if !slices.Contains(roles, requiredRole) {
				return response.Forbidden(c, "FORBIDDEN", "Permission denied: require '"+requiredRole+"' role")
			}

			return next(c)
		}
	}
}
