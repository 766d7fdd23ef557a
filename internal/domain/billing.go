package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

type Subscription struct {
	UserID               uuid.UUID
	StripeCustomerID     string
	StripeSubscriptionID string
	Tier                 Tier
	Status               SubscriptionStatus
	CurrentPeriodEnd     *time.Time
	PaymentFailedAt      *time.Time
	CanceledAt           *time.Time
	LastEventAt          time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Payment provider event types the billing processor acts on.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventInvoicePaid          = "invoice.paid"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// PaymentEvent is a verified provider event. Data holds the raw event object.
type PaymentEvent struct {
	ID       string
	Type     string
	Created  time.Time
	Livemode bool
	Data     json.RawMessage
}

type PaymentEventVerifier interface {
	Verify(payload []byte, signatureHeader string) (PaymentEvent, error)
}

type TransitionKind string

const (
	TransitionActivate      TransitionKind = "activate"
	TransitionRenew         TransitionKind = "renew"
	TransitionCancel        TransitionKind = "cancel"
	TransitionPaymentFailed TransitionKind = "payment_failed"
)

// SubscriptionTransition is one state change derived from a provider event.
// Activate addresses the subscription by UserID; the other kinds address it by
// SubscriptionID.
type SubscriptionTransition struct {
	Kind           TransitionKind
	UserID         uuid.UUID
	CustomerID     string
	SubscriptionID string
	Tier           Tier
	PeriodEnd      *time.Time
	OccurredAt     time.Time
}

type TransitionResult struct {
	UserID      uuid.UUID
	Tier        Tier
	Status      SubscriptionStatus
	TierChanged bool
	Stale       bool // event older than the last applied one; nothing written
}

type BillingStore interface {
	// ApplyTransition records eventID in the durable ledger and applies t to the
	// subscription and profile tier in one transaction. It returns
	// ErrEventAlreadyProcessed when the ledger already holds eventID and
	// ErrSubscriptionNotFound when t addresses an unknown subscription.
	ApplyTransition(ctx context.Context, eventID, eventType string, t SubscriptionTransition) (TransitionResult, error)
	GetSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	PruneEvents(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

type CheckoutRequest struct {
	UserID         uuid.UUID
	Email          string
	Tier           Tier
	PriceID        string
	CustomerID     string // reused when the user already has one
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
