package httpserver

import (
	"fmt"
	"net/http"

	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const csrfCookieName = "csrf_token"

// handleCSRFToken returns the token the CSRF middleware issued (and set as a
// cookie) so single-page clients can echo it in X-CSRF-Token.
func (s *Server) handleCSRFToken(c echo.Context) error {
	token, ok := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	if !ok || token == "" {
		return apperrors.InternalError("csrf token not issued", nil)
	}
	if err := c.JSON(http.StatusOK, map[string]string{"csrf_token": token}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
