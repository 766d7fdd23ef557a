// Package httpserver exposes the JSON API, the payment webhook and the realtime
// upgrade over echo.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/app"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/billing"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/config"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type profileService interface {
	Me(ctx context.Context, id domain.Identity) (*domain.Profile, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	Browse(ctx context.Context, viewer uuid.UUID, q app.BrowseQuery) (app.BrowsePage, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error)
	AddFavorite(ctx context.Context, userID, profileID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, profileID uuid.UUID) error
	Favorites(ctx context.Context, userID uuid.UUID) ([]domain.Profile, error)
}

type messagingService interface {
	Send(ctx context.Context, senderID, recipientID uuid.UUID, body string) (app.MessageView, error)
	Conversation(ctx context.Context, userID, peerID uuid.UUID, before time.Time, limit int) ([]app.MessageView, error)
	Threads(ctx context.Context, userID uuid.UUID, limit int) ([]app.ThreadView, error)
}

type bookingService interface {
	Request(ctx context.Context, clientID uuid.UUID, req app.BookingRequest) (*domain.Booking, error)
	Act(ctx context.Context, actor, bookingID uuid.UUID, action domain.BookingAction) (*domain.Booking, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error)
}

type partyService interface {
	Create(ctx context.Context, hostID uuid.UUID, in app.PartyInput) (*domain.Party, error)
	Upcoming(ctx context.Context, limit int) ([]domain.Party, error)
	RSVP(ctx context.Context, partyID, userID uuid.UUID) error
	CancelRSVP(ctx context.Context, partyID, userID uuid.UUID) error
}

type rightNowService interface {
	Post(ctx context.Context, userID uuid.UUID, in app.RightNowInput) (*domain.RightNowPost, error)
	Feed(ctx context.Context, viewer uuid.UUID, lat, lng, radiusKm float64) ([]domain.NearbyPost, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type photoService interface {
	RequestUpload(ctx context.Context, profileID uuid.UUID, contentType string) (*app.PhotoUpload, error)
	List(ctx context.Context, profileID uuid.UUID) ([]app.PhotoView, error)
	Delete(ctx context.Context, profileID, photoID uuid.UUID) error
}

type billingService interface {
	Checkout(ctx context.Context, id domain.Identity, tier domain.Tier) (string, error)
	Portal(ctx context.Context, userID uuid.UUID) (string, error)
	Subscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}

type webhookService interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) (billing.Result, error)
}

type realtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

// Services groups the use cases the API delegates to. Photos may be nil when
// object storage is not configured.
type Services struct {
	Profiles  profileService
	Messaging messagingService
	Bookings  bookingService
	Parties   partyService
	RightNow  rightNowService
	Photos    photoService
	Billing   billingService
	Webhooks  webhookService
	Realtime  realtimeServer
	Tokens    domain.TokenVerifier
}

// Options carries the optional infrastructure around the API.
type Options struct {
	HealthChecks   []HealthCheck
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	// RateLimitStore replaces the per-instance memory store, e.g. with a
	// Redis-backed one shared by all instances.
	RateLimitStore middleware.RateLimiterStore
	Clock          clockwork.Clock
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	profiles  profileService
	messaging messagingService
	bookings  bookingService
	parties   partyService
	rightNow  rightNowService
	photos    photoService
	billing   billingService
	webhooks  webhookService
	realtime  realtimeServer
	tokens    domain.TokenVerifier

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	rateLimitStore middleware.RateLimiterStore
	healthChecks   []HealthCheck
	startTime      time.Time
}

func NewServer(cfg *config.Config, svc Services, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = httpErrorHandler

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:           e,
		config:         cfg,
		clock:          clock,
		profiles:       svc.Profiles,
		messaging:      svc.Messaging,
		bookings:       svc.Bookings,
		parties:        svc.Parties,
		rightNow:       svc.RightNow,
		photos:         svc.Photos,
		billing:        svc.Billing,
		webhooks:       svc.Webhooks,
		realtime:       svc.Realtime,
		tokens:         svc.Tokens,
		httpMetrics:    opts.HTTPMetrics,
		metricsHandler: opts.MetricsHandler,
		rateLimitStore: opts.RateLimitStore,
		healthChecks:   opts.HealthChecks,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
