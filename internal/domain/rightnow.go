package domain

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

type RightNowPost struct {
	UserID    uuid.UUID
	Lat       float64
	Lng       float64
	Message   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NearbyPost is a feed entry with its distance from the viewer.
type NearbyPost struct {
	RightNowPost
	DistanceKm float64
}

// BoundingBox is a coarse lat/lng window used to prefilter candidates in storage.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// SpansAntimeridian reports whether the longitude range leaves [-180, 180];
// storage then filters on latitude only.
func (b BoundingBox) SpansAntimeridian() bool {
	return b.MinLng < -180 || b.MaxLng > 180
}

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle (haversine) distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoxAround returns a box containing every point within radiusKm of (lat, lng).
// The longitude half-width is the widest point of the circle,
// asin(sin r / cos lat), not r / cos lat. A circle reaching a pole spans
// every longitude.
func BoxAround(lat, lng, radiusKm float64) BoundingBox {
	r := radiusKm / earthRadiusKm
	dLat := r * 180 / math.Pi

	dLng := 180.0
	if lat+dLat < 90 && lat-dLat > -90 {
		if ratio := math.Sin(r) / math.Cos(lat*math.Pi/180); ratio < 1 {
			dLng = math.Asin(ratio) * 180 / math.Pi
		}
	}
	return BoundingBox{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLng: lng - dLng,
		MaxLng: lng + dLng,
	}
}

type RightNowRepository interface {
	// Upsert replaces the user's previous post.
	Upsert(ctx context.Context, p RightNowPost) error
	ListActive(ctx context.Context, now time.Time, box BoundingBox) ([]RightNowPost, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Lease elects one instance for periodic work such as sweeping expired posts.
type Lease interface {
	Hold(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Photo struct {
	ID          uuid.UUID
	ProfileID   uuid.UUID
	ObjectKey   string
	ContentType string
	CreatedAt   time.Time
}

const MaxPhotosPerProfile = 6

// PhotoObjectKey is the storage key for a profile photo.
func PhotoObjectKey(profileID, photoID uuid.UUID, ext string) string {
	return "profiles/" + profileID.String() + "/photos/" + photoID.String() + ext
}

type PhotoRepository interface {
	// Create inserts the photo unless the profile already holds
	// MaxPhotosPerProfile photos (ErrPhotoLimit).
	Create(ctx context.Context, p Photo) error
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]Photo, error)
	Delete(ctx context.Context, profileID, photoID uuid.UUID) (*Photo, error)
}

type ObjectStorage interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
