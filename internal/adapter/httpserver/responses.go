package httpserver

import (
	"fmt"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func respond(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid " + name).WithField(name, raw)
	}
	return id, nil
}

type profileResponse struct {
	ID               uuid.UUID   `json:"id"`
	DisplayName      string      `json:"display_name"`
	Bio              string      `json:"bio"`
	City             string      `json:"city"`
	Age              int         `json:"age,omitempty"`
	Tier             domain.Tier `json:"tier"`
	Online           bool        `json:"online"`
	AutoReplyEnabled *bool       `json:"auto_reply_enabled,omitempty"`
	AutoReplyPrompt  *string     `json:"auto_reply_prompt,omitempty"`
	LastSeenAt       *time.Time  `json:"last_seen_at,omitempty"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// toProfileResponse renders a profile for viewers; owner adds the private
// auto-reply settings.
func toProfileResponse(p *domain.Profile, now time.Time, owner bool) profileResponse {
	r := profileResponse{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		City:        p.City,
		Age:         p.Age,
		Tier:        p.Tier,
		Online:      p.OnlineAt(now),
		UpdatedAt:   p.UpdatedAt,
	}
	if !p.LastSeenAt.IsZero() {
		seen := p.LastSeenAt
		r.LastSeenAt = &seen
	}
	if owner {
		enabled, prompt := p.AutoReplyEnabled, p.AutoReplyPrompt
		r.AutoReplyEnabled = &enabled
		r.AutoReplyPrompt = &prompt
	}
	return r
}

func toProfileResponses(ps []domain.Profile, now time.Time) []profileResponse {
	out := make([]profileResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toProfileResponse(&ps[i], now, false))
	}
	return out
}

type bookingResponse struct {
	ID              uuid.UUID            `json:"id"`
	ClientID        uuid.UUID            `json:"client_id"`
	ProviderID      uuid.UUID            `json:"provider_id"`
	StartsAt        time.Time            `json:"starts_at"`
	DurationMinutes int                  `json:"duration_minutes"`
	Note            string               `json:"note,omitempty"`
	Status          domain.BookingStatus `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:              b.ID,
		ClientID:        b.ClientID,
		ProviderID:      b.ProviderID,
		StartsAt:        b.StartsAt,
		DurationMinutes: b.DurationMinutes,
		Note:            b.Note,
		Status:          b.Status,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type partyResponse struct {
	ID          uuid.UUID `json:"id"`
	HostID      uuid.UUID `json:"host_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
	Attendees   int       `json:"attendees"`
}

func toPartyResponse(p *domain.Party) partyResponse {
	return partyResponse{
		ID:          p.ID,
		HostID:      p.HostID,
		Title:       p.Title,
		Description: p.Description,
		Location:    p.Location,
		StartsAt:    p.StartsAt,
		Capacity:    p.Capacity,
		Attendees:   p.Attendees,
	}
}

type rightNowResponse struct {
	UserID     uuid.UUID `json:"user_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	DistanceKm *float64  `json:"distance_km,omitempty"`
}

func toRightNowResponse(p *domain.RightNowPost) rightNowResponse {
	return rightNowResponse{
		UserID:    p.UserID,
		Lat:       p.Lat,
		Lng:       p.Lng,
		Message:   p.Message,
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}
}

type subscriptionResponse struct {
	Tier             domain.Tier               `json:"tier"`
	Status           domain.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time                `json:"current_period_end,omitempty"`
	PaymentFailedAt  *time.Time                `json:"payment_failed_at,omitempty"`
	CanceledAt       *time.Time                `json:"canceled_at,omitempty"`
}
