package httpserver

import (
	"net/http"

	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerPhotoRoutes(g *echo.Group) {
	g.GET("/profiles/:id/photos", s.handleListPhotos, s.requirePhotos)
	g.POST("/photos", s.handleRequestPhotoUpload, s.requirePhotos)
	g.DELETE("/photos/:id", s.handleDeletePhoto, s.requirePhotos)
}

// requirePhotos answers 503 when object storage is not configured.
func (s *Server) requirePhotos(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.photos == nil {
			return apperrors.UnavailableError("photo storage is not configured", nil)
		}
		return next(c)
	}
}

func (s *Server) handleListPhotos(c echo.Context) error {
	profileID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	photos, err := s.photos.List(c.Request().Context(), profileID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]any{"photos": photos})
}

type photoUploadRequest struct {
	ContentType string `json:"content_type" validate:"required,oneof=image/jpeg image/png image/webp"`
}

type photoUploadResponse struct {
	ID          string `json:"id"`
	UploadURL   string `json:"upload_url"`
	ContentType string `json:"content_type"`
}

func (s *Server) handleRequestPhotoUpload(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}

	var req photoUploadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	up, err := s.photos.RequestUpload(c.Request().Context(), id.UserID, req.ContentType)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, photoUploadResponse{
		ID:          up.Photo.ID.String(),
		UploadURL:   up.UploadURL,
		ContentType: up.Photo.ContentType,
	})
}

func (s *Server) handleDeletePhoto(c echo.Context) error {
	id, err := mustIdentity(c)
	if err != nil {
		return err
	}
	photoID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := s.photos.Delete(c.Request().Context(), id.UserID, photoID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
