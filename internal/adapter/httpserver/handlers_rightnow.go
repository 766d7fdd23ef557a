package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/app"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerRightNowRoutes(g *echo.Group) {
	g.GET("/right-now", s.handleRightNowFeed)
	g.POST("/right-now", s.handlePostRightNow)
	g.DELETE("/right-now", s.handleDeleteRightNow)
}

type feedRequest struct {
	Lat      string  `query:"lat" validate:"required"`
	Lng      string  `query:"lng" validate:"required"`
	RadiusKm float64 `query:"radius_km"`
}

func (s *Server) handleRightNowFeed(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req feedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	lat, errLat := strconv.ParseFloat(req.Lat, 64)
	lng, errLng := strconv.ParseFloat(req.Lng, 64)
	if errLat != nil || errLng != nil {
		return apperrors.ValidationError("lat and lng must be numbers")
	}

	posts, err := s.rightNow.Feed(c.Request().Context(), id.UserID, lat, lng, req.RadiusKm)
	if err != nil {
		return err
	}

	out := make([]rightNowResponse, 0, len(posts))
	for i := range posts {
		r := toRightNowResponse(&posts[i].RightNowPost)
		d := posts[i].DistanceKm
		r.DistanceKm = &d
		out = append(out, r)
	}
	return respond(c, http.StatusOK, map[string]any{"posts": out})
}

type rightNowRequest struct {
	Lat        *float64 `json:"lat" validate:"required"`
	Lng        *float64 `json:"lng" validate:"required"`
	Message    string   `json:"message" validate:"max=280"`
	TTLMinutes int      `json:"ttl_minutes" validate:"gte=0"`
}

func (s *Server) handlePostRightNow(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req rightNowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := s.rightNow.Post(c.Request().Context(), id.UserID, app.RightNowInput{
		Lat:     *req.Lat,
		Lng:     *req.Lng,
		Message: req.Message,
		TTL:     time.Duration(req.TTLMinutes) * time.Minute,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, toRightNowResponse(p))
}

func (s *Server) handleDeleteRightNow(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	if err := s.rightNow.Delete(c.Request().Context(), id.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
