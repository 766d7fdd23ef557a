package httpserver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/labstack/echo/v4"
)

const stripeSignatureHeader = "Stripe-Signature"

// handleStripeWebhook answers in the provider's expected shape rather than the
// structured error format: 401 without a signature, 400 for a bad signature,
// 500 when processing fails so the provider retries.
func (s *Server) handleStripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, webhookMaxBytes))
	if err != nil {
		if isBodyTooLarge(err) {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "payload too large"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}

	res, err := s.webhooks.Handle(ctx, payload, c.Request().Header.Get(stripeSignatureHeader))
	switch {
	case errors.Is(err, domain.ErrMissingSignature):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing signature"})
	case errors.Is(err, domain.ErrInvalidSignature):
		slog.WarnContext(ctx, "Rejected webhook with invalid signature", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid signature"})
	case err != nil:
		slog.ErrorContext(ctx, "Webhook processing failed", "event_id", res.EventID, "event_type", res.EventType, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "webhook processing failed"})
	}

	body := map[string]any{"received": true}
	if res.Idempotent {
		body["idempotent"] = true
	}
	if err := c.JSON(http.StatusOK, body); err != nil {
		return fmt.Errorf("failed to write webhook response: %w", err)
	}
	return nil
}

// isBodyTooLarge matches both the stdlib limit and echo's BodyLimit reader,
// which fails streamed bodies with a 413 HTTPError.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	var httpErr *echo.HTTPError
	return errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge
}
