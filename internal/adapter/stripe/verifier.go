package stripe

import (
	"fmt"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Verifier checks Stripe-Signature headers and decodes the event envelope.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

var _ domain.PaymentEventVerifier = (*Verifier)(nil)

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify returns domain.ErrInvalidSignature (wrapped with the library's reason)
// for any header that does not authenticate payload.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (domain.PaymentEvent, error) {
	// The envelope is version-independent; billing decodes the raw object.
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}

	out := domain.PaymentEvent{
		ID:       ev.ID,
		Type:     string(ev.Type),
		Created:  time.Unix(ev.Created, 0).UTC(),
		Livemode: ev.Livemode,
	}
	if ev.Data != nil {
		out.Data = ev.Data.Raw
	}
	if out.ID == "" {
		return domain.PaymentEvent{}, fmt.Errorf("%w: event has no id", domain.ErrInvalidSignature)
	}
	return out, nil
}
