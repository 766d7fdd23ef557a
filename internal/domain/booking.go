package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingDeclined  BookingStatus = "declined"
	BookingCancelled BookingStatus = "cancelled"
)

type BookingAction string

const (
	BookingAccept  BookingAction = "accept"
	BookingDecline BookingAction = "decline"
	BookingCancel  BookingAction = "cancel"
)

type Booking struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	ProviderID      uuid.UUID
	StartsAt        time.Time
	DurationMinutes int
	Note            string
	Status          BookingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Next returns the status reached by applying action as the given party.
// Providers accept or decline pending bookings; either party cancels pending
// or accepted ones.
func (b *Booking) Next(action BookingAction, actor uuid.UUID) (BookingStatus, error) {
	isProvider := actor == b.ProviderID
	isClient := actor == b.ClientID
	if !isProvider && !isClient {
		return "", ErrBookingNotFound
	}

	switch action {
	case BookingAccept, BookingDecline:
		if !isProvider || b.Status != BookingPending {
			break
		}
		if action == BookingAccept {
			return BookingAccepted, nil
		}
		return BookingDeclined, nil
	case BookingCancel:
		if b.Status == BookingPending || b.Status == BookingAccepted {
			return BookingCancelled, nil
		}
	default:
		return "", fmt.Errorf("unknown booking action %q", action)
	}
	return "", fmt.Errorf("%w: %s on %s booking", ErrBookingTransition, action, b.Status)
}

type BookingRepository interface {
	Create(ctx context.Context, b Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]Booking, error)
	// UpdateStatus moves the booking from one status to another and returns
	// ErrBookingTransition when it is no longer in the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to BookingStatus, at time.Time) error
}

type Party struct {
	ID          uuid.UUID
	HostID      uuid.UUID
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	Capacity    int
	Attendees   int
	CreatedAt   time.Time
}

type PartyRepository interface {
	Create(ctx context.Context, p Party) error
	ListUpcoming(ctx context.Context, after time.Time, limit int) ([]Party, error)
	// RSVP is idempotent and enforces capacity atomically (ErrPartyFull).
	RSVP(ctx context.Context, partyID, userID uuid.UUID, at time.Time) error
	CancelRSVP(ctx context.Context, partyID, userID uuid.UUID) error
}
