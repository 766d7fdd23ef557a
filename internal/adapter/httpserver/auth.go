package httpserver

import (
	"strings"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const (
	// accessTokenCookie is set by the web client after sign-in.
	accessTokenCookie = "sb-access-token"
	// accessTokenQuery is accepted on the realtime upgrade only; browsers
	// cannot set headers on websocket requests.
	accessTokenQuery = "access_token"

	identityKey = "identity"
)

// bearerToken returns the token from the Authorization header, if present.
func bearerToken(c echo.Context) string {
	scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func accessToken(c echo.Context, allowQuery bool) string {
	if t := bearerToken(c); t != "" {
		return t
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if allowQuery {
		return c.QueryParam(accessTokenQuery)
	}
	return ""
}

func (s *Server) authenticate(allowQuery bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := accessToken(c, allowQuery)
			if token == "" {
				return apperrors.UnauthorizedError("authentication required")
			}

			id, err := s.tokens.Verify(token)
			if err != nil {
				return apperrors.UnauthorizedError("invalid access token").WithCause(err)
			}

			c.Set(identityKey, id)
			return next(c)
		}
	}
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return s.authenticate(false)(next)
}

func identityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}

// mustIdentity is only called behind requireAuth.
func mustIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := identityFrom(c)
	if !ok {
		return domain.Identity{}, apperrors.InternalError("missing identity in context", nil)
	}
	return id, nil
}
