package middleware

import (
	"log/slog"

	deliverycontext "fieldtrack/internal/delivery/context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestID tags each request with an ID and a request-scoped logger. The ID
// is taken from the X-Request-Id header when the client supplies one.
func RequestID(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(deliverycontext.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			deliverycontext.SetRequestID(c, requestID)
			c.Response().Header().Set(deliverycontext.HeaderXRequestID, requestID)

			reqLogger := logger.With(slog.String("request_id", requestID))

			ctx := c.Request().Context()
			ctx = deliverycontext.WithRequestID(ctx, requestID)
			ctx = deliverycontext.WithLogger(ctx, reqLogger)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
