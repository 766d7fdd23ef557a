package app

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	MinBookingMinutes = 15
	MaxBookingMinutes = 720
	maxBookingNote    = 500
)

type BookingRequest struct {
	ProviderID      uuid.UUID
	StartsAt        time.Time
	DurationMinutes int
	Note            string
}

type BookingService struct {
	bookings domain.BookingRepository
	profiles domain.ProfileRepository
	notifier domain.Notifier
	clock    clockwork.Clock
}

func NewBookingService(bookings domain.BookingRepository, profiles domain.ProfileRepository, notifier domain.Notifier, clock clockwork.Clock) *BookingService {
	return &BookingService{bookings: bookings, profiles: profiles, notifier: notifier, clock: clock}
}

func (s *BookingService) Request(ctx context.Context, clientID uuid.UUID, req BookingRequest) (*domain.Booking, error) {
	now := s.clock.Now().UTC()
	switch {
	case req.ProviderID == clientID:
		return nil, apperrors.ValidationError("cannot book yourself")
	case !req.StartsAt.After(now):
		return nil, apperrors.ValidationError("starts_at must be in the future")
	case req.DurationMinutes < MinBookingMinutes || req.DurationMinutes > MaxBookingMinutes:
		return nil, apperrors.ValidationError("duration_minutes must be between 15 and 720")
	case utf8.RuneCountInString(req.Note) > maxBookingNote:
		return nil, apperrors.ValidationError("note must be at most 500 characters")
	}

	if _, err := s.profiles.GetByID(ctx, req.ProviderID); err != nil {
		return nil, err
	}

	b := domain.Booking{
		ID:              uuid.New(),
		ClientID:        clientID,
		ProviderID:      req.ProviderID,
		StartsAt:        req.StartsAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Note:            strings.TrimSpace(req.Note),
		Status:          domain.BookingPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}

	s.publish(b.ProviderID, &b)
	return &b, nil
}

// Act applies action to the booking on behalf of actor. Bookings the actor is
// not a party to are reported as not found.
func (s *BookingService) Act(ctx context.Context, actor, bookingID uuid.UUID, action domain.BookingAction) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	next, err := b.Next(action, actor)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if err := s.bookings.UpdateStatus(ctx, b.ID, b.Status, next, now); err != nil {
		return nil, err
	}
	b.Status = next
	b.UpdatedAt = now

	other := b.ClientID
	if actor == b.ClientID {
		other = b.ProviderID
	}
	s.publish(other, b)
	slog.InfoContext(ctx, "Booking updated", "booking_id", b.ID, "action", action, "status", next)
	return b, nil
}

func (s *BookingService) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Booking, error) {
	limit, err := pageSize(limit)
	if err != nil {
		return nil, err
	}
	return s.bookings.ListForUser(ctx, userID, limit)
}

func (s *BookingService) publish(userID uuid.UUID, b *domain.Booking) {
	s.notifier.Publish(userID, domain.RealtimeEvent{
		Type: domain.RealtimeBooking,
		Payload: map[string]any{
			"id":     b.ID,
			"status": b.Status,
		},
	})
}
