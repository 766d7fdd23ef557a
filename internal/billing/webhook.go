package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/correlation"
	"github.com/jonboulle/clockwork"
)

const processingTimeout = 10 * time.Second

type Result struct {
	EventID    string
	EventType  string
	Outcome    Outcome
	Idempotent bool // short-circuited by the in-process guard
}

type WebhookService struct {
	verifier  domain.PaymentEventVerifier
	guard     *EventGuard
	processor *Processor
	metrics   *metrics.WebhookMetrics
	clock     clockwork.Clock
}

// NewWebhookService wires the webhook pipeline. m may be nil.
func NewWebhookService(verifier domain.PaymentEventVerifier, guard *EventGuard, processor *Processor, m *metrics.WebhookMetrics, clock clockwork.Clock) *WebhookService {
	return &WebhookService{
		verifier:  verifier,
		guard:     guard,
		processor: processor,
		metrics:   m,
		clock:     clock,
	}
}

// Handle verifies and processes one webhook delivery.
//
// It returns an error wrapping domain.ErrMissingSignature or
// domain.ErrInvalidSignature before touching any state. The event ID is marked
// in the guard only after processing succeeds, so a failed event is retried
// in full when the provider redelivers it.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	if signatureHeader == "" {
		s.countSignatureFailure()
		return Result{}, domain.ErrMissingSignature
	}

	ev, err := s.verifier.Verify(payload, signatureHeader)
	if err != nil {
		s.countSignatureFailure()
		if errors.Is(err, domain.ErrInvalidSignature) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}

	res := Result{EventID: ev.ID, EventType: ev.Type}

	if s.guard.Seen(ev.ID) {
		res.Outcome = OutcomeDuplicate
		res.Idempotent = true
		s.record(ev.Type, res.Outcome)
		slog.InfoContext(ctx, "Webhook event already processed by this instance", "event_id", ev.ID, "event_type", ev.Type)
		return res, nil
	}

	// Processing outlives a dropped provider connection.
	procCtx, cancel := context.WithTimeout(correlation.Detach(ctx), processingTimeout)
	defer cancel()

	start := s.clock.Now()
	outcome, err := s.processor.Process(procCtx, ev)
	if s.metrics != nil {
		s.metrics.ProcessingDuration.Observe(s.clock.Since(start).Seconds())
	}
	if err != nil {
		s.record(ev.Type, "error")
		return res, err
	}

	s.guard.MarkProcessed(ev.ID)
	if s.metrics != nil {
		s.metrics.GuardEntries.Set(float64(s.guard.Len()))
	}

	res.Outcome = outcome
	s.record(ev.Type, outcome)
	return res, nil
}

func (s *WebhookService) record(eventType string, outcome Outcome) {
	if s.metrics != nil {
		s.metrics.EventsTotal.WithLabelValues(metricEventType(eventType), string(outcome)).Inc()
	}
}

func (s *WebhookService) countSignatureFailure() {
	if s.metrics != nil {
		s.metrics.SignatureFailures.Inc()
	}
}

// metricEventType bounds label cardinality to the handled types.
func metricEventType(t string) string {
	switch t {
	case domain.EventCheckoutCompleted, domain.EventInvoicePaid, domain.EventSubscriptionDeleted, domain.EventInvoicePaymentFailed:
		return t
	default:
		return "other"
	}
}
