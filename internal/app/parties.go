package app

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	maxPartyTitle       = 120
	maxPartyDescription = 2000
	maxPartyCapacity    = 10000
)

type PartyInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	Capacity    int
}

type PartyService struct {
	parties domain.PartyRepository
	clock   clockwork.Clock
}

func NewPartyService(parties domain.PartyRepository, clock clockwork.Clock) *PartyService {
	return &PartyService{parties: parties, clock: clock}
}

func (s *PartyService) Create(ctx context.Context, hostID uuid.UUID, in PartyInput) (*domain.Party, error) {
	now := s.clock.Now().UTC()
	title := strings.TrimSpace(in.Title)
	location := strings.TrimSpace(in.Location)

	switch {
	case title == "" || utf8.RuneCountInString(title) > maxPartyTitle:
		return nil, apperrors.ValidationError("title must be 1 to 120 characters")
	case location == "":
		return nil, apperrors.ValidationError("location is required")
	case utf8.RuneCountInString(in.Description) > maxPartyDescription:
		return nil, apperrors.ValidationError("description must be at most 2000 characters")
	case !in.StartsAt.After(now):
		return nil, apperrors.ValidationError("starts_at must be in the future")
	case in.Capacity < 1 || in.Capacity > maxPartyCapacity:
		return nil, apperrors.ValidationError("capacity must be between 1 and 10000")
	}

	p := domain.Party{
		ID:          uuid.New(),
		HostID:      hostID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Location:    location,
		StartsAt:    in.StartsAt.UTC(),
		Capacity:    in.Capacity,
		CreatedAt:   now,
	}
	if err := s.parties.Create(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PartyService) Upcoming(ctx context.Context, limit int) ([]domain.Party, error) {
	limit, err := pageSize(limit)
	if err != nil {
		return nil, err
	}
	return s.parties.ListUpcoming(ctx, s.clock.Now().UTC(), limit)
}

func (s *PartyService) RSVP(ctx context.Context, partyID, userID uuid.UUID) error {
	return s.parties.RSVP(ctx, partyID, userID, s.clock.Now().UTC())
}

func (s *PartyService) CancelRSVP(ctx context.Context, partyID, userID uuid.UUID) error {
	return s.parties.CancelRSVP(ctx, partyID, userID)
}
