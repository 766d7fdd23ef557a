package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/assistant"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/httpserver"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/postgres"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/realtime"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/redis"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/storage"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/stripe"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/supabase"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/app"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/billing"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/config"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/crypto"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/logging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
)

const (
	rightNowSweepInterval = time.Minute
	tierEvictionInterval  = time.Minute
	shutdownTimeout       = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, m *metrics.DBMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, m)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupRedis returns nil when REDIS_URL is unset; the service then runs with
// per-instance rate limits and an in-memory tier cache.
func setupRedis(cfg *config.Config, m *metrics.RedisMetrics) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, running single-instance")
		return nil
	}

	client, err := redis.NewClient(cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupPhotos(cfg *config.Config, repo domain.PhotoRepository, clock clockwork.Clock) *app.PhotoService {
	if !cfg.PhotosEnabled() {
		slog.Info("S3_BUCKET not set, photo uploads disabled")
		return nil
	}

	s3, err := storage.NewS3Storage(storage.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		URLTTL:    cfg.S3URLTTL,
	})
	if err != nil {
		slog.Error("Failed to create object storage client", "error", err)
		os.Exit(1)
	}
	return app.NewPhotoService(repo, s3, clock)
}

// rateLimitStore shares limits through Redis when available. The fixed window
// admits burst requests per burst/rps seconds, matching the memory store's
// long-run rate.
func rateLimitStore(cfg *config.Config, rdb *goredis.Client, clock clockwork.Clock) middleware.RateLimiterStore {
	memory := httpserver.NewMemoryRateLimitStore(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if rdb == nil {
		return memory
	}
	window := time.Duration(float64(cfg.RateLimitBurst) / cfg.RateLimitRPS * float64(time.Second))
	return redis.NewRateLimitStore(rdb, clock, cfg.RateLimitBurst, window, memory)
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

type stoppable struct {
	hub          *realtime.Hub
	messaging    *app.MessagingService
	rightNow     *app.RightNowService
	stopEviction func()
}

func runGracefulShutdown(srv *httpserver.Server, bg stoppable) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		// Close websockets first; hijacked connections are not tracked by
		// the HTTP server's shutdown.
		bg.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		bg.messaging.Wait()
		bg.rightNow.Stop()
		bg.stopEviction()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	m := metrics.NewSet()

	pool := setupDB(cfg, m.DB)
	defer pool.Close()

	rdb := setupRedis(cfg, m.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	sealer, err := crypto.NewService(cfg.MessageEncryptionKey)
	if err != nil {
		slog.Error("Failed to create message sealer", "error", err)
		os.Exit(1)
	}

	profileRepo := postgres.NewProfileRepo(pool)
	billingStore := postgres.NewBillingStore(pool)

	var tierRedis goredis.Cmdable
	if rdb != nil {
		tierRedis = rdb
	}
	tierCache := redis.NewTierCache(tierRedis, profileRepo, redis.DefaultMemoryTTL, clock, m.Cache)
	stopEviction := tierCache.StartEvictionTimer(tierEvictionInterval)

	hub := realtime.NewHub(
		realtime.NewCheckOrigin(cfg.AppBaseURL, !cfg.IsProduction()),
		cfg.MaxWebSocketConnections,
		m.Realtime,
		clock,
	)

	var replies domain.ReplyGenerator
	if cfg.AssistantURL != "" {
		replies = assistant.NewClient(cfg.AssistantURL, cfg.AssistantAPIKey)
	} else {
		slog.Info("ASSISTANT_URL not set, auto-replies disabled")
	}

	entitlements := app.NewEntitlements(tierCache)
	profiles := app.NewProfileService(profileRepo, postgres.NewFavoriteRepo(pool), clock)
	messaging := app.NewMessagingService(postgres.NewMessageRepo(pool), profileRepo, tierCache, sealer, replies, hub, clock)
	bookings := app.NewBookingService(postgres.NewBookingRepo(pool), profileRepo, hub, clock)
	parties := app.NewPartyService(postgres.NewPartyRepo(pool), clock)

	rightNow := app.NewRightNowService(postgres.NewRightNowRepo(pool), entitlements, clock)
	if rdb != nil {
		rightNow.WithSweepLease(redis.NewLease(rdb, "rightnow-sweeper", instanceID(), 3*rightNowSweepInterval))
	}
	rightNow.StartSweeper(rightNowSweepInterval)

	checkout := stripe.NewCheckoutClient(cfg.StripeSecretKey)
	prices := map[domain.Tier]string{
		domain.TierPremium: cfg.StripePricePremium,
		domain.TierKing:    cfg.StripePriceKing,
	}
	billingSvc := app.NewBillingService(billingStore, checkout, prices, cfg.AppBaseURL, clock)

	webhooks := billing.NewWebhookService(
		stripe.NewVerifier(cfg.StripeWebhookSecret, cfg.WebhookTolerance),
		billing.NewEventGuard(cfg.WebhookGuardSize),
		billing.NewProcessor(billingStore, tierCache, hub),
		m.Webhook,
		clock,
	)

	svc := httpserver.Services{
		Profiles:  profiles,
		Messaging: messaging,
		Bookings:  bookings,
		Parties:   parties,
		RightNow:  rightNow,
		Billing:   billingSvc,
		Webhooks:  webhooks,
		Realtime:  hub,
		Tokens:    supabase.NewTokenVerifier(cfg.SupabaseJWTSecret, clock),
	}
	// Assign only when configured to avoid a typed-nil interface.
	if photos := setupPhotos(cfg, postgres.NewPhotoRepo(pool), clock); photos != nil {
		svc.Photos = photos
	}

	checks := []httpserver.HealthCheck{
		{Name: "postgres", Check: postgres.NewPinger(pool).Ping},
	}
	if rdb != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	srv := httpserver.NewServer(cfg, svc, httpserver.Options{
		HealthChecks:   checks,
		HTTPMetrics:    m.HTTP,
		MetricsHandler: m.Handler(),
		RateLimitStore: rateLimitStore(cfg, rdb, clock),
		Clock:          clock,
	})

	done := runGracefulShutdown(srv, stoppable{
		hub:          hub,
		messaging:    messaging,
		rightNow:     rightNow,
		stopEviction: stopEviction,
	})

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
