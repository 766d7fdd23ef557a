package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
)

type Processor struct {
	store    domain.BillingStore
	tiers    domain.TierCache
	notifier domain.Notifier
}

// NewProcessor builds a processor. tiers and notifier may be nil.
func NewProcessor(store domain.BillingStore, tiers domain.TierCache, notifier domain.Notifier) *Processor {
	return &Processor{store: store, tiers: tiers, notifier: notifier}
}

// Process applies ev. Only an error return leaves the event unprocessed; every
// Outcome is final for that event ID.
func (p *Processor) Process(ctx context.Context, ev domain.PaymentEvent) (Outcome, error) {
	transition, outcome, err := TransitionFor(ctx, ev)
	if err != nil {
		return "", fmt.Errorf("event %s (%s): %w", ev.ID, ev.Type, err)
	}
	if transition == nil {
		slog.DebugContext(ctx, "Webhook event needs no write", "event_id", ev.ID, "event_type", ev.Type, "outcome", outcome)
		return outcome, nil
	}

	result, err := p.store.ApplyTransition(ctx, ev.ID, ev.Type, *transition)
	switch {
	case errors.Is(err, domain.ErrEventAlreadyProcessed):
		slog.InfoContext(ctx, "Webhook event already in ledger", "event_id", ev.ID, "event_type", ev.Type)
		return OutcomeDuplicate, nil
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		slog.WarnContext(ctx, "Webhook event references unknown subscription",
			"event_id", ev.ID, "event_type", ev.Type, "subscription_id", transition.SubscriptionID)
		return OutcomeIgnored, nil
	case err != nil:
		return "", fmt.Errorf("apply %s for event %s: %w", transition.Kind, ev.ID, err)
	}

	if result.Stale {
		slog.InfoContext(ctx, "Webhook event older than last applied event", "event_id", ev.ID, "user_id", result.UserID)
		return OutcomeStale, nil
	}

	slog.InfoContext(ctx, "Subscription transition applied",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"transition", transition.Kind,
		"user_id", result.UserID,
		"status", result.Status,
		"tier", result.Tier,
	)

	if result.TierChanged {
		p.afterTierChange(ctx, result)
	}
	return OutcomeApplied, nil
}

// afterTierChange runs after commit; failures are logged and do not fail the event.
func (p *Processor) afterTierChange(ctx context.Context, result domain.TransitionResult) {
	if p.tiers != nil {
		if err := p.tiers.Invalidate(ctx, result.UserID); err != nil {
			slog.WarnContext(ctx, "Failed to invalidate tier cache", "user_id", result.UserID, "error", err)
		}
	}
	if p.notifier != nil {
		p.notifier.Publish(result.UserID, domain.RealtimeEvent{
			Type:    domain.RealtimeTierChanged,
			Payload: map[string]string{"tier": string(result.Tier), "status": string(result.Status)},
		})
	}
}
