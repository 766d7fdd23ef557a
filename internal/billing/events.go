package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Event objects decode into stripe-go types, whose expandable fields accept a
// bare ID or an expanded object.

func decodeCheckoutSession(raw json.RawMessage) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &session, nil
}

func decodeSubscription(raw json.RawMessage) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &sub, nil
}

// invoiceObject adds the top-level "subscription" field that accounts pinned
// to API versions before 2025-03-31 still send; stripe.Invoice no longer has it.
type invoiceObject struct {
	stripe.Invoice
	legacySubscription *stripe.Subscription
}

func decodeInvoice(raw json.RawMessage) (*invoiceObject, error) {
	var inv invoiceObject
	if err := json.Unmarshal(raw, &inv.Invoice); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	var legacy struct {
		Subscription *stripe.Subscription `json:"subscription"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	inv.legacySubscription = legacy.Subscription
	return &inv, nil
}

// subscriptionID reads the legacy top-level field or, on newer API versions,
// parent.subscription_details.
func (inv *invoiceObject) subscriptionID() string {
	if inv.legacySubscription != nil && inv.legacySubscription.ID != "" {
		return inv.legacySubscription.ID
	}
	if p := inv.Parent; p != nil && p.SubscriptionDetails != nil && p.SubscriptionDetails.Subscription != nil {
		return p.SubscriptionDetails.Subscription.ID
	}
	return ""
}

// periodEnd prefers the latest line-item period end, which covers the
// subscription period actually paid for.
func (inv *invoiceObject) periodEnd() *time.Time {
	var end int64
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line != nil && line.Period != nil && line.Period.End > end {
				end = line.Period.End
			}
		}
	}
	if end == 0 {
		end = inv.PeriodEnd
	}
	if end == 0 {
		return nil
	}
	t := time.Unix(end, 0).UTC()
	return &t
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripe.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}
