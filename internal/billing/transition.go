package billing

import (
	"context"
	"log/slog"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
)

// Outcome describes what processing did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
	OutcomeIgnored   Outcome = "ignored" // event type or object billing does not act on
	OutcomeSkipped   Outcome = "skipped" // actionable type but missing the data to act on
)

// TransitionFor derives the subscription transition for ev. A nil transition
// with a nil error means no write is needed; the outcome says why.
func TransitionFor(ctx context.Context, ev domain.PaymentEvent) (*domain.SubscriptionTransition, Outcome, error) {
	switch ev.Type {
	case domain.EventCheckoutCompleted:
		return checkoutTransition(ctx, ev)
	case domain.EventInvoicePaid, domain.EventInvoicePaymentFailed:
		return invoiceTransition(ev)
	case domain.EventSubscriptionDeleted:
		return deletedTransition(ev)
	default:
		return nil, OutcomeIgnored, nil
	}
}

func checkoutTransition(ctx context.Context, ev domain.PaymentEvent) (*domain.SubscriptionTransition, Outcome, error) {
	session, err := decodeCheckoutSession(ev.Data)
	if err != nil {
		return nil, "", err
	}

	if session.ClientReferenceID == "" {
		slog.WarnContext(ctx, "Checkout session has no client reference, skipping", "event_id", ev.ID, "session_id", session.ID)
		return nil, OutcomeSkipped, nil
	}

	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		slog.WarnContext(ctx, "Checkout session client reference is not a user ID, skipping",
			"event_id", ev.ID, "session_id", session.ID, "client_reference_id", session.ClientReferenceID)
		return nil, OutcomeSkipped, nil
	}

	return &domain.SubscriptionTransition{
		Kind:           domain.TransitionActivate,
		UserID:         userID,
		CustomerID:     customerID(session.Customer),
		SubscriptionID: subscriptionID(session.Subscription),
		Tier:           checkoutTier(session.Metadata["tier"]),
		OccurredAt:     ev.Created,
	}, OutcomeApplied, nil
}

// checkoutTier reads the purchased tier from session metadata, defaulting to premium.
func checkoutTier(raw string) domain.Tier {
	tier, err := domain.ParseTier(raw)
	if err != nil || !tier.Purchasable() {
		return domain.TierPremium
	}
	return tier
}

func invoiceTransition(ev domain.PaymentEvent) (*domain.SubscriptionTransition, Outcome, error) {
	inv, err := decodeInvoice(ev.Data)
	if err != nil {
		return nil, "", err
	}

	subID := inv.subscriptionID()
	if subID == "" {
		return nil, OutcomeIgnored, nil
	}

	t := &domain.SubscriptionTransition{
		CustomerID:     customerID(inv.Customer),
		SubscriptionID: subID,
		OccurredAt:     ev.Created,
	}
	if ev.Type == domain.EventInvoicePaid {
		t.Kind = domain.TransitionRenew
		t.PeriodEnd = inv.periodEnd()
	} else {
		t.Kind = domain.TransitionPaymentFailed
	}
	return t, OutcomeApplied, nil
}

func deletedTransition(ev domain.PaymentEvent) (*domain.SubscriptionTransition, Outcome, error) {
	sub, err := decodeSubscription(ev.Data)
	if err != nil {
		return nil, "", err
	}
	if sub.ID == "" {
		return nil, OutcomeSkipped, nil
	}

	return &domain.SubscriptionTransition{
		Kind:           domain.TransitionCancel,
		CustomerID:     customerID(sub.Customer),
		SubscriptionID: sub.ID,
		OccurredAt:     ev.Created,
	}, OutcomeApplied, nil
}
