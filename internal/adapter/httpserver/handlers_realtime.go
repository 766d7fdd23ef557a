package httpserver

import (
	"errors"
	"log/slog"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/realtime"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

// handleRealtime upgrades to a websocket and blocks for the connection's lifetime.
func (s *Server) handleRealtime(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	err = s.realtime.Serve(c.Response(), c.Request(), id.UserID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, realtime.ErrTooManyConnections):
		return apperrors.RateLimitedError("too many realtime connections")
	case errors.Is(err, realtime.ErrHubClosed):
		return apperrors.UnavailableError("server shutting down", err)
	case c.Response().Committed:
		// The upgrader already wrote its own error response.
		slog.DebugContext(c.Request().Context(), "Realtime upgrade failed", "error", err)
		return nil
	default:
		return apperrors.ValidationError("websocket upgrade required").WithCause(err)
	}
}
