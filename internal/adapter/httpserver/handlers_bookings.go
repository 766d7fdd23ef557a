package httpserver

import (
	"net/http"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/app"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerBookingRoutes(g *echo.Group) {
	g.GET("/bookings", s.handleListBookings)
	g.POST("/bookings", s.handleRequestBooking)
	g.PATCH("/bookings/:id", s.handleBookingAction)

	g.GET("/parties", s.handleListParties)
	g.POST("/parties", s.handleCreateParty)
	g.POST("/parties/:id/rsvp", s.handleRSVP)
	g.DELETE("/parties/:id/rsvp", s.handleCancelRSVP)
}

func (s *Server) handleListBookings(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req pageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	bookings, err := s.bookings.List(c.Request().Context(), id.UserID, req.Limit)
	if err != nil {
		return err
	}

	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	return respond(c, http.StatusOK, map[string]any{"bookings": out})
}

type bookingRequest struct {
	ProviderID      uuid.UUID `json:"provider_id" validate:"required"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required"`
	Note            string    `json:"note" validate:"max=500"`
}

func (s *Server) handleRequestBooking(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req bookingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	b, err := s.bookings.Request(c.Request().Context(), id.UserID, app.BookingRequest{
		ProviderID:      req.ProviderID,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Note:            req.Note,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toBookingResponse(b))
}

type bookingActionRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline cancel"`
}

func (s *Server) handleBookingAction(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	bookingID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req bookingActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	b, err := s.bookings.Act(c.Request().Context(), id.UserID, bookingID, domain.BookingAction(req.Action))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toBookingResponse(b))
}

func (s *Server) handleListParties(c echo.Context) error {
	var req pageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	parties, err := s.parties.Upcoming(c.Request().Context(), req.Limit)
	if err != nil {
		return err
	}

	out := make([]partyResponse, 0, len(parties))
	for i := range parties {
		out = append(out, toPartyResponse(&parties[i]))
	}
	return respond(c, http.StatusOK, map[string]any{"parties": out})
}

type partyRequest struct {
	Title       string    `json:"title" validate:"required,max=120"`
	Description string    `json:"description" validate:"max=2000"`
	Location    string    `json:"location" validate:"required"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	Capacity    int       `json:"capacity" validate:"required"`
}

func (s *Server) handleCreateParty(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req partyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := s.parties.Create(c.Request().Context(), id.UserID, app.PartyInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toPartyResponse(p))
}

func (s *Server) handleRSVP(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	partyID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.parties.RSVP(c.Request().Context(), partyID, id.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCancelRSVP(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	partyID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.parties.CancelRSVP(c.Request().Context(), partyID, id.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
