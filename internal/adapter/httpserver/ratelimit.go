package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	rateLimiterExpiry = 5 * time.Minute
	retryAfterSeconds = 1
)

var errNoClientIP = errors.New("no client address")

// NewMemoryRateLimitStore is the per-process token bucket store keyed by client IP.
func NewMemoryRateLimitStore(ratePerSecond float64, burst int) middleware.RateLimiterStore {
	return middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
}

func clientIP(c echo.Context) (string, error) {
	ip := c.RealIP()
	if ip == "" {
		return "", errNoClientIP
	}
	return ip, nil
}

// newRateLimiter answers denials in the structured error shape with a
// Retry-After hint. Store failures arrive as denials too and are logged.
func newRateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: clientIP,
		Store:               store,
		ErrorHandler: func(c echo.Context, err error) error {
			return respond(c, http.StatusForbidden, apperrors.ForbiddenError("unable to identify client").ToResponse())
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if err != nil {
				slog.WarnContext(c.Request().Context(), "Rate limit store failed", "client", identifier, "error", err)
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			return respond(c, http.StatusTooManyRequests, apperrors.RateLimitedError("rate limit exceeded").ToResponse())
		},
	})
}
