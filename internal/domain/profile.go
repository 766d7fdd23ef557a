package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierKing    Tier = "king"
)

func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierFree, TierPremium, TierKing:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// Rank orders tiers; unknown values rank below free.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 0
	case TierPremium:
		return 1
	case TierKing:
		return 2
	default:
		return -1
	}
}

func (t Tier) AtLeast(min Tier) bool {
	return t.Rank() >= min.Rank()
}

// Purchasable reports whether the tier can be bought through checkout.
func (t Tier) Purchasable() bool {
	return t == TierPremium || t == TierKing
}

type Profile struct {
	ID               uuid.UUID
	DisplayName      string
	Bio              string
	City             string
	Age              int
	Tier             Tier
	AutoReplyEnabled bool
	AutoReplyPrompt  string
	LastSeenAt       time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OnlineWindow is how recently a profile must have been seen to count as online.
const OnlineWindow = 5 * time.Minute

func (p *Profile) OnlineAt(now time.Time) bool {
	return !p.LastSeenAt.IsZero() && now.Sub(p.LastSeenAt) <= OnlineWindow
}

// ProfileCursor is a keyset position in the browse ordering (updated_at desc, id desc).
type ProfileCursor struct {
	UpdatedAt time.Time
	ID        uuid.UUID
}

type ProfileFilter struct {
	ExcludeID uuid.UUID
	City      string
	SeenSince time.Time // zero disables the online filter
	MinAge    int
	MaxAge    int
	After     *ProfileCursor
	Limit     int
}

// ProfileUpdate carries a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName      *string
	Bio              *string
	City             *string
	Age              *int
	AutoReplyEnabled *bool
	AutoReplyPrompt  *string
}

func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.Bio == nil && u.City == nil && u.Age == nil &&
		u.AutoReplyEnabled == nil && u.AutoReplyPrompt == nil
}

type ProfileRepository interface {
	Ensure(ctx context.Context, id uuid.UUID, displayName string) (*Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	List(ctx context.Context, filter ProfileFilter) ([]Profile, error)
	Update(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*Profile, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	GetTier(ctx context.Context, id uuid.UUID) (Tier, error)
}

// TierCache serves entitlement lookups and is invalidated on billing transitions.
type TierCache interface {
	Get(ctx context.Context, userID uuid.UUID) (Tier, error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

type Favorite struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	CreatedAt time.Time
}

type FavoriteRepository interface {
	Add(ctx context.Context, userID, profileID uuid.UUID, at time.Time) error
	Remove(ctx context.Context, userID, profileID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]Profile, error)
}
