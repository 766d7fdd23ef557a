package app

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	MaxRightNowMessage = 280
	DefaultRightNowTTL = time.Hour
	MinRightNowTTL     = 15 * time.Minute
	MaxRightNowTTL     = 3 * time.Hour
	DefaultRadiusKm    = 25.0
	MinRadiusKm        = 1.0
	MaxRadiusKm        = 100.0

	sweepTimeout = 10 * time.Second
)

type RightNowInput struct {
	Lat     float64
	Lng     float64
	Message string
	TTL     time.Duration // zero means DefaultRightNowTTL
}

type RightNowService struct {
	posts        domain.RightNowRepository
	entitlements *Entitlements
	clock        clockwork.Clock
	lease        domain.Lease

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRightNowService(posts domain.RightNowRepository, entitlements *Entitlements, clock clockwork.Clock) *RightNowService {
	return &RightNowService{
		posts:        posts,
		entitlements: entitlements,
		clock:        clock,
		stopCh:       make(chan struct{}),
	}
}

// Post publishes the user's single active post, replacing any previous one.
func (s *RightNowService) Post(ctx context.Context, userID uuid.UUID, in RightNowInput) (*domain.RightNowPost, error) {
	if err := validCoordinates(in.Lat, in.Lng); err != nil {
		return nil, err
	}
	msg := strings.TrimSpace(in.Message)
	if utf8.RuneCountInString(msg) > MaxRightNowMessage {
		return nil, apperrors.ValidationError("message must be at most 280 characters")
	}
	ttl := in.TTL
	if ttl == 0 {
		ttl = DefaultRightNowTTL
	}
	if ttl < MinRightNowTTL || ttl > MaxRightNowTTL {
		return nil, apperrors.ValidationError("ttl must be between 15 minutes and 3 hours")
	}

	if err := s.entitlements.RequireTier(ctx, userID, domain.TierPremium); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	p := domain.RightNowPost{
		UserID:    userID,
		Lat:       in.Lat,
		Lng:       in.Lng,
		Message:   msg,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.posts.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Feed lists active posts within radiusKm of the viewer, nearest first. A zero
// radius means DefaultRadiusKm.
func (s *RightNowService) Feed(ctx context.Context, viewer uuid.UUID, lat, lng, radiusKm float64) ([]domain.NearbyPost, error) {
	if err := validCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm == 0 {
		radiusKm = DefaultRadiusKm
	}
	if radiusKm < MinRadiusKm || radiusKm > MaxRadiusKm {
		return nil, apperrors.ValidationError("radius_km must be between 1 and 100")
	}

	candidates, err := s.posts.ListActive(ctx, s.clock.Now().UTC(), domain.BoxAround(lat, lng, radiusKm))
	if err != nil {
		return nil, err
	}

	feed := make([]domain.NearbyPost, 0, len(candidates))
	for _, p := range candidates {
		if p.UserID == viewer {
			continue
		}
		d := domain.DistanceKm(lat, lng, p.Lat, p.Lng)
		if d > radiusKm {
			continue
		}
		feed = append(feed, domain.NearbyPost{RightNowPost: p, DistanceKm: math.Round(d*100) / 100})
	}

	sort.SliceStable(feed, func(i, j int) bool { return feed[i].DistanceKm < feed[j].DistanceKm })
	return feed, nil
}

func (s *RightNowService) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.posts.Delete(ctx, userID)
}

func validCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return apperrors.ValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	return nil
}

// WithSweepLease makes the sweeper run only on the instance holding lease.
// Without one every instance sweeps, which is harmless but redundant.
func (s *RightNowService) WithSweepLease(lease domain.Lease) *RightNowService {
	s.lease = lease
	return s
}

// StartSweeper deletes expired posts every interval until Stop is called.
// Reads already ignore expired rows; this only keeps the table small.
func (s *RightNowService) StartSweeper(interval time.Duration) {
	ticker := s.clock.NewTicker(interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				s.sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *RightNowService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if s.lease != nil {
		held, err := s.lease.Hold(ctx)
		if err != nil {
			slog.Warn("Skipping right-now sweep, lease unavailable", "error", err)
			return
		}
		if !held {
			return
		}
	}

	n, err := s.posts.DeleteExpired(ctx, s.clock.Now().UTC())
	if err != nil {
		slog.Error("Failed to sweep expired right-now posts", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("Swept expired right-now posts", "count", n)
	}
}

func (s *RightNowService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		if s.lease == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := s.lease.Release(ctx); err != nil {
			slog.Warn("Failed to release sweep lease", "error", err)
		}
	})
	s.wg.Wait()
}
