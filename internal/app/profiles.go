package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	maxDisplayName     = 50
	maxBio             = 500
	maxCity            = 80
	maxAutoReplyPrompt = 1000
	minAge, maxAge     = 18, 120
)

type ProfileService struct {
	profiles  domain.ProfileRepository
	favorites domain.FavoriteRepository
	clock     clockwork.Clock
}

func NewProfileService(profiles domain.ProfileRepository, favorites domain.FavoriteRepository, clock clockwork.Clock) *ProfileService {
	return &ProfileService{profiles: profiles, favorites: favorites, clock: clock}
}

// Me returns the caller's profile, creating it on first sign-in, and records activity.
func (s *ProfileService) Me(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	p, err := s.profiles.Ensure(ctx, id.UserID, defaultDisplayName(id.Email))
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if err := s.profiles.Touch(ctx, id.UserID, now); err != nil {
		return nil, err
	}
	p.LastSeenAt = now
	return p, nil
}

// defaultDisplayName is the local part of the email address.
func defaultDisplayName(email string) string {
	name, _, _ := strings.Cut(email, "@")
	if utf8.RuneCountInString(name) > maxDisplayName {
		name = string([]rune(name)[:maxDisplayName])
	}
	return name
}

func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *ProfileService) MarkSeen(ctx context.Context, userID uuid.UUID) error {
	return s.profiles.Touch(ctx, userID, s.clock.Now().UTC())
}

type BrowseQuery struct {
	City       string
	OnlineOnly bool
	MinAge     int
	MaxAge     int
	Cursor     string
	Limit      int
}

type BrowsePage struct {
	Profiles   []domain.Profile
	NextCursor string // empty on the last page
}

func (s *ProfileService) Browse(ctx context.Context, viewer uuid.UUID, q BrowseQuery) (BrowsePage, error) {
	limit, err := pageSize(q.Limit)
	if err != nil {
		return BrowsePage{}, err
	}
	if q.MinAge != 0 && (q.MinAge < minAge || q.MinAge > maxAge) {
		return BrowsePage{}, apperrors.ValidationError("min_age must be between 18 and 120")
	}
	if q.MaxAge != 0 && (q.MaxAge < minAge || q.MaxAge > maxAge) {
		return BrowsePage{}, apperrors.ValidationError("max_age must be between 18 and 120")
	}
	if q.MinAge != 0 && q.MaxAge != 0 && q.MinAge > q.MaxAge {
		return BrowsePage{}, apperrors.ValidationError("min_age must not exceed max_age")
	}

	filter := domain.ProfileFilter{
		ExcludeID: viewer,
		City:      strings.TrimSpace(q.City),
		MinAge:    q.MinAge,
		MaxAge:    q.MaxAge,
		Limit:     limit,
	}
	if q.OnlineOnly {
		filter.SeenSince = s.clock.Now().UTC().Add(-domain.OnlineWindow)
	}
	if q.Cursor != "" {
		cur, err := DecodeCursor(q.Cursor)
		if err != nil {
			return BrowsePage{}, err
		}
		filter.After = &cur
	}

	profiles, err := s.profiles.List(ctx, filter)
	if err != nil {
		return BrowsePage{}, err
	}

	page := BrowsePage{Profiles: profiles}
	if len(profiles) == limit {
		last := profiles[len(profiles)-1]
		page.NextCursor = EncodeCursor(domain.ProfileCursor{UpdatedAt: last.UpdatedAt, ID: last.ID})
	}
	return page, nil
}

func pageSize(requested int) (int, error) {
	switch {
	case requested == 0:
		return DefaultPageSize, nil
	case requested < 1 || requested > MaxPageSize:
		return 0, apperrors.ValidationError("limit must be between 1 and 100")
	default:
		return requested, nil
	}
}

type cursorPayload struct {
	UpdatedAt time.Time `json:"u"`
	ID        uuid.UUID `json:"i"`
}

// EncodeCursor renders a keyset position as an opaque URL-safe token.
func EncodeCursor(c domain.ProfileCursor) string {
	raw, _ := json.Marshal(cursorPayload{UpdatedAt: c.UpdatedAt.UTC(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeCursor(s string) (domain.ProfileCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return domain.ProfileCursor{}, apperrors.ValidationError("invalid cursor")
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == uuid.Nil || p.UpdatedAt.IsZero() {
		return domain.ProfileCursor{}, apperrors.ValidationError("invalid cursor")
	}
	return domain.ProfileCursor{UpdatedAt: p.UpdatedAt, ID: p.ID}, nil
}

func (s *ProfileService) UpdateMe(ctx context.Context, userID uuid.UUID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if upd.Empty() {
		return nil, apperrors.ValidationError("no fields to update")
	}
	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" || utf8.RuneCountInString(name) > maxDisplayName {
			return nil, apperrors.ValidationError("display_name must be 1 to 50 characters")
		}
		upd.DisplayName = &name
	}
	if upd.Bio != nil && utf8.RuneCountInString(*upd.Bio) > maxBio {
		return nil, apperrors.ValidationError("bio must be at most 500 characters")
	}
	if upd.City != nil {
		city := strings.TrimSpace(*upd.City)
		if utf8.RuneCountInString(city) > maxCity {
			return nil, apperrors.ValidationError("city must be at most 80 characters")
		}
		upd.City = &city
	}
	if upd.Age != nil && (*upd.Age < minAge || *upd.Age > maxAge) {
		return nil, apperrors.ValidationError("age must be between 18 and 120")
	}
	if upd.AutoReplyPrompt != nil && utf8.RuneCountInString(*upd.AutoReplyPrompt) > maxAutoReplyPrompt {
		return nil, apperrors.ValidationError("auto_reply_prompt must be at most 1000 characters")
	}

	return s.profiles.Update(ctx, userID, upd)
}

// AddFavorite is idempotent.
func (s *ProfileService) AddFavorite(ctx context.Context, userID, profileID uuid.UUID) error {
	if userID == profileID {
		return apperrors.ValidationError("cannot favorite yourself")
	}
	return s.favorites.Add(ctx, userID, profileID, s.clock.Now().UTC())
}

func (s *ProfileService) RemoveFavorite(ctx context.Context, userID, profileID uuid.UUID) error {
	return s.favorites.Remove(ctx, userID, profileID)
}

func (s *ProfileService) Favorites(ctx context.Context, userID uuid.UUID) ([]domain.Profile, error) {
	return s.favorites.List(ctx, userID)
}
