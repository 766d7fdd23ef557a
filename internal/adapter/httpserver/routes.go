package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	webhookBodyLimit       = "2M"
	webhookMaxBytes  int64 = 2 << 20
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())

	s.registerHealthRoutes()

	// Signed by the provider; neither session auth nor CSRF apply.
	s.echo.POST("/api/webhooks/stripe", s.handleStripeWebhook, middleware.BodyLimit(webhookBodyLimit))

	store := s.rateLimitStore
	if store == nil {
		store = NewMemoryRateLimitStore(s.config.RateLimitRPS, s.config.RateLimitBurst)
	}
	rateLimiter := newRateLimiter(store)
	s.echo.GET("/api/csrf", s.handleCSRFToken, rateLimiter, s.setupCSRFMiddleware(false))
	s.echo.GET("/api/realtime", s.handleRealtime, rateLimiter, s.authenticate(true))

	api := s.echo.Group("/api", rateLimiter, s.requireAuth, s.setupCSRFMiddleware(true))
	s.registerProfileRoutes(api)
	s.registerMessagingRoutes(api)
	s.registerBookingRoutes(api)
	s.registerRightNowRoutes(api)
	s.registerPhotoRoutes(api)
	s.registerBillingRoutes(api)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

// setupCSRFMiddleware protects cookie-authenticated mutations with a double
// submit token. With skipBearer, requests carrying a bearer token skip the
// check since they hold no ambient credentials.
func (s *Server) setupCSRFMiddleware(skipBearer bool) echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			return skipBearer && bearerToken(c) != ""
		},
		TokenLookup:    "header:X-CSRF-Token",
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieMaxAge:   int(s.config.SessionMaxAge.Seconds()),
		CookieHTTPOnly: true,
		CookieSecure:   s.config.IsProduction(),
		CookieSameSite: http.SameSiteStrictMode,
	})
}
