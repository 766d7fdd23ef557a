package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// checkoutIdempotencyWindow collapses repeated checkout clicks into one
// provider session.
const checkoutIdempotencyWindow = time.Minute

type BillingService struct {
	store    domain.BillingStore
	provider domain.CheckoutProvider
	prices   map[domain.Tier]string
	baseURL  string
	clock    clockwork.Clock
}

// NewBillingService takes the provider price ID per purchasable tier and the
// public app URL that checkout and portal sessions return to.
func NewBillingService(store domain.BillingStore, provider domain.CheckoutProvider, prices map[domain.Tier]string, baseURL string, clock clockwork.Clock) *BillingService {
	return &BillingService{
		store:    store,
		provider: provider,
		prices:   prices,
		baseURL:  strings.TrimRight(baseURL, "/"),
		clock:    clock,
	}
}

func (s *BillingService) Checkout(ctx context.Context, id domain.Identity, tier domain.Tier) (string, error) {
	if !tier.Purchasable() {
		return "", apperrors.ValidationError("tier must be premium or king")
	}
	price, ok := s.prices[tier]
	if !ok || price == "" {
		return "", apperrors.UnavailableError("tier is not for sale", nil)
	}

	req := domain.CheckoutRequest{
		UserID:     id.UserID,
		Email:      id.Email,
		Tier:       tier,
		PriceID:    price,
		SuccessURL: s.baseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.baseURL + "/billing/cancel",
		IdempotencyKey: fmt.Sprintf("checkout-%s-%s-%d", id.UserID, tier,
			s.clock.Now().Unix()/int64(checkoutIdempotencyWindow.Seconds())),
	}

	sub, err := s.store.GetSubscription(ctx, id.UserID)
	switch {
	case err == nil:
		if sub.Status != domain.StatusCanceled && sub.Tier == tier {
			return "", apperrors.ConflictError("already subscribed to this tier")
		}
		req.CustomerID = sub.StripeCustomerID
	case errors.Is(err, domain.ErrSubscriptionNotFound):
	default:
		return "", err
	}

	url, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", apperrors.ExternalError("failed to create checkout session", err)
	}
	return url, nil
}

func (s *BillingService) Portal(ctx context.Context, userID uuid.UUID) (string, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) || (err == nil && sub.StripeCustomerID == "") {
		return "", domain.ErrNoBillingCustomer
	}
	if err != nil {
		return "", err
	}

	url, err := s.provider.CreatePortalSession(ctx, sub.StripeCustomerID, s.baseURL+"/settings/billing")
	if err != nil {
		return "", apperrors.ExternalError("failed to create portal session", err)
	}
	return url, nil
}

func (s *BillingService) Subscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	return s.store.GetSubscription(ctx, userID)
}
