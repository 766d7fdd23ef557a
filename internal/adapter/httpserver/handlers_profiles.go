package httpserver

import (
	"net/http"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/app"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerProfileRoutes(g *echo.Group) {
	g.GET("/me", s.handleGetMe)
	g.PATCH("/me", s.handleUpdateMe)
	g.GET("/profiles", s.handleBrowseProfiles)
	g.GET("/profiles/:id", s.handleGetProfile)
	g.GET("/favorites", s.handleListFavorites)
	g.POST("/favorites/:id", s.handleAddFavorite)
	g.DELETE("/favorites/:id", s.handleRemoveFavorite)
}

func (s *Server) handleGetMe(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	p, err := s.profiles.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toProfileResponse(p, s.clock.Now(), true))
}

type updateProfileRequest struct {
	DisplayName      *string `json:"display_name" validate:"omitempty,max=50"`
	Bio              *string `json:"bio" validate:"omitempty,max=500"`
	City             *string `json:"city" validate:"omitempty,max=80"`
	Age              *int    `json:"age" validate:"omitempty,gte=18,lte=120"`
	AutoReplyEnabled *bool   `json:"auto_reply_enabled"`
	AutoReplyPrompt  *string `json:"auto_reply_prompt" validate:"omitempty,max=1000"`
}

func (s *Server) handleUpdateMe(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p, err := s.profiles.UpdateMe(c.Request().Context(), id.UserID, domain.ProfileUpdate{
		DisplayName:      req.DisplayName,
		Bio:              req.Bio,
		City:             req.City,
		Age:              req.Age,
		AutoReplyEnabled: req.AutoReplyEnabled,
		AutoReplyPrompt:  req.AutoReplyPrompt,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toProfileResponse(p, s.clock.Now(), true))
}

type browseRequest struct {
	City       string `query:"city" validate:"max=80"`
	OnlineOnly bool   `query:"online"`
	MinAge     int    `query:"min_age"`
	MaxAge     int    `query:"max_age"`
	Cursor     string `query:"cursor" validate:"max=256"`
	Limit      int    `query:"limit"`
}

type browseResponse struct {
	Profiles   []profileResponse `json:"profiles"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func (s *Server) handleBrowseProfiles(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req browseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	page, err := s.profiles.Browse(c.Request().Context(), id.UserID, app.BrowseQuery{
		City:       req.City,
		OnlineOnly: req.OnlineOnly,
		MinAge:     req.MinAge,
		MaxAge:     req.MaxAge,
		Cursor:     req.Cursor,
		Limit:      req.Limit,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, browseResponse{
		Profiles:   toProfileResponses(page.Profiles, s.clock.Now()),
		NextCursor: page.NextCursor,
	})
}

func (s *Server) handleGetProfile(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	profileID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	p, err := s.profiles.Get(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, toProfileResponse(p, s.clock.Now(), p.ID == id.UserID))
}

func (s *Server) handleListFavorites(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	favs, err := s.profiles.Favorites(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]any{"profiles": toProfileResponses(favs, s.clock.Now())})
}

func (s *Server) handleAddFavorite(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	profileID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.profiles.AddFavorite(c.Request().Context(), id.UserID, profileID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRemoveFavorite(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	profileID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.profiles.RemoveFavorite(c.Request().Context(), id.UserID, profileID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
