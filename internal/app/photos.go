package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type PhotoUpload struct {
	Photo     domain.Photo
	UploadURL string
}

type PhotoView struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type PhotoService struct {
	photos  domain.PhotoRepository
	objects domain.ObjectStorage
	clock   clockwork.Clock
}

func NewPhotoService(photos domain.PhotoRepository, objects domain.ObjectStorage, clock clockwork.Clock) *PhotoService {
	return &PhotoService{photos: photos, objects: objects, clock: clock}
}

// RequestUpload reserves a photo slot and returns a presigned PUT URL for the
// client to upload the image to.
func (s *PhotoService) RequestUpload(ctx context.Context, profileID uuid.UUID, contentType string) (*PhotoUpload, error) {
	ext, ok := photoExtensions[contentType]
	if !ok {
		return nil, apperrors.ValidationError("content_type must be image/jpeg, image/png or image/webp")
	}

	photo := domain.Photo{
		ID:          uuid.New(),
		ProfileID:   profileID,
		ContentType: contentType,
		CreatedAt:   s.clock.Now().UTC(),
	}
	photo.ObjectKey = domain.PhotoObjectKey(profileID, photo.ID, ext)

	url, err := s.objects.PresignPut(ctx, photo.ObjectKey, contentType)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, err
	}
	return &PhotoUpload{Photo: photo, UploadURL: url}, nil
}

func (s *PhotoService) List(ctx context.Context, profileID uuid.UUID) ([]PhotoView, error) {
	photos, err := s.photos.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	views := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		url, err := s.objects.PresignGet(ctx, p.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("presign download: %w", err)
		}
		views = append(views, PhotoView{ID: p.ID, URL: url, ContentType: p.ContentType, CreatedAt: p.CreatedAt})
	}
	return views, nil
}

// Delete removes the photo record first; a failed object delete only leaves
// an unreferenced object behind.
func (s *PhotoService) Delete(ctx context.Context, profileID, photoID uuid.UUID) error {
	photo, err := s.photos.Delete(ctx, profileID, photoID)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, photo.ObjectKey); err != nil {
		slog.WarnContext(ctx, "Failed to delete photo object", "key", photo.ObjectKey, "error", err)
	}
	return nil
}
