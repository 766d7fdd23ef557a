package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	stripego "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

// CheckoutClient creates hosted Checkout and Billing Portal sessions.
type CheckoutClient struct {
	checkout checkoutsession.Client
	portal   portalsession.Client
}

var _ domain.CheckoutProvider = (*CheckoutClient)(nil)

func NewCheckoutClient(secretKey string) *CheckoutClient {
	return NewCheckoutClientWithBackend(secretKey, stripego.GetBackend(stripego.APIBackend))
}

// NewCheckoutClientWithBackend lets tests point the client at a local server.
func NewCheckoutClientWithBackend(secretKey string, backend stripego.Backend) *CheckoutClient {
	return &CheckoutClient{
		checkout: checkoutsession.Client{B: backend, Key: secretKey},
		portal:   portalsession.Client{B: backend, Key: secretKey},
	}
}

func (c *CheckoutClient) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	params := &stripego.CheckoutSessionParams{
		Mode:              stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripego.String(req.UserID.String()),
		SuccessURL:        stripego.String(req.SuccessURL),
		CancelURL:         stripego.String(req.CancelURL),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(req.PriceID), Quantity: stripego.Int64(1)},
		},
		SubscriptionData: &stripego.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"tier": string(req.Tier), "user_id": req.UserID.String()},
		},
	}
	params.Context = ctx
	params.AddMetadata("tier", string(req.Tier))
	if req.CustomerID != "" {
		params.Customer = stripego.String(req.CustomerID)
	} else if req.Email != "" {
		params.CustomerEmail = stripego.String(req.Email)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	sess, err := c.checkout.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", describe(err))
	}
	return sess.URL, nil
}

func (c *CheckoutClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripego.BillingPortalSessionParams{
		Customer:  stripego.String(customerID),
		ReturnURL: stripego.String(returnURL),
	}
	params.Context = ctx

	sess, err := c.portal.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", describe(err))
	}
	return sess.URL, nil
}

// describe keeps the API error's code and request ID in the message for logs.
func describe(err error) error {
	var apiErr *stripego.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("stripe %s (status %d, code %s, request %s): %w",
			apiErr.Type, apiErr.HTTPStatusCode, apiErr.Code, apiErr.RequestID, err)
	}
	return err
}
