package app

import (
	"context"
	"fmt"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
)

type Entitlements struct {
	tiers domain.TierCache
}

func NewEntitlements(tiers domain.TierCache) *Entitlements {
	return &Entitlements{tiers: tiers}
}

// RequireTier returns domain.ErrInsufficientTier unless the user holds at least min.
func (e *Entitlements) RequireTier(ctx context.Context, userID uuid.UUID, min domain.Tier) error {
	tier, err := e.tiers.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve tier: %w", err)
	}
	if !tier.AtLeast(min) {
		return fmt.Errorf("%w: %s required, have %s", domain.ErrInsufficientTier, min, tier)
	}
	return nil
}

func (e *Entitlements) Tier(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	return e.tiers.Get(ctx, userID)
}
