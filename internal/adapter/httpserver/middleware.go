package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/correlation"
	apperrors "github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

// correlationMiddleware adopts a well-formed inbound X-Request-ID or mints one,
// and echoes it on the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromInbound(c.Request().Header.Get(correlation.Header))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			return HandleError(c, err)
		}
	}
}

// domainErrorMapping translates domain sentinels into client-facing errors.
var domainErrorMapping = []struct {
	target error
	build  func() *apperrors.Error
}{
	{domain.ErrProfileNotFound, func() *apperrors.Error { return apperrors.NotFoundError("profile not found") }},
	{domain.ErrBookingNotFound, func() *apperrors.Error { return apperrors.NotFoundError("booking not found") }},
	{domain.ErrPartyNotFound, func() *apperrors.Error { return apperrors.NotFoundError("party not found") }},
	{domain.ErrPhotoNotFound, func() *apperrors.Error { return apperrors.NotFoundError("photo not found") }},
	{domain.ErrRightNowNotFound, func() *apperrors.Error { return apperrors.NotFoundError("no active post") }},
	{domain.ErrSubscriptionNotFound, func() *apperrors.Error { return apperrors.NotFoundError("no subscription") }},
	{domain.ErrNoBillingCustomer, func() *apperrors.Error { return apperrors.NotFoundError("no billing account") }},
	{domain.ErrBookingTransition, func() *apperrors.Error { return apperrors.ConflictError("booking cannot change to that status") }},
	{domain.ErrPartyFull, func() *apperrors.Error { return apperrors.ConflictError("party is full") }},
	{domain.ErrPhotoLimit, func() *apperrors.Error { return apperrors.ConflictError("photo limit reached") }},
	{domain.ErrInsufficientTier, func() *apperrors.Error { return apperrors.ForbiddenError("upgrade required") }},
	{domain.ErrInvalidToken, func() *apperrors.Error { return apperrors.UnauthorizedError("invalid access token") }},
}

func toStructuredError(err error) *apperrors.Error {
	var structuredErr *apperrors.Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}
	for _, m := range domainErrorMapping {
		if errors.Is(err, m.target) {
			return m.build().WithCause(err)
		}
	}
	return apperrors.InternalError("internal server error", err)
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if id, ok := identityFrom(c); ok {
		attrs = append(attrs, "user_id", id.UserID)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound, apperrors.TypeUnauthorized, apperrors.TypeForbidden:
		slog.InfoContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeConflict, apperrors.TypeRateLimited:
		slog.WarnContext(ctx, "Request conflict", attrs...)
	case apperrors.TypeInternal, apperrors.TypeExternal, apperrors.TypeUnavailable:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Request failed", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func HandleError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	structuredErr := toStructuredError(err)
	logError(c, structuredErr)
	if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

// WrapHTTPError converts an echo error into the structured form.
func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthorized
	case http.StatusForbidden:
		errType = apperrors.TypeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusTooManyRequests:
		errType = apperrors.TypeRateLimited
	case http.StatusBadGateway:
		errType = apperrors.TypeExternal
	case http.StatusServiceUnavailable:
		errType = apperrors.TypeUnavailable
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}
	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}
	return err
}

// httpErrorHandler renders errors that escape the middleware chain (routing,
// CSRF, body limits) in the same JSON shape as handler errors. The HTTP status
// of the original error is kept.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		_ = HandleError(c, err)
		return
	}

	structuredErr := WrapHTTPError(httpErr)
	if httpErr.Code >= http.StatusInternalServerError {
		logError(c, structuredErr)
	}
	if err := c.JSON(httpErr.Code, structuredErr.ToResponse()); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}
