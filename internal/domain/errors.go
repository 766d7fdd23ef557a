package domain

import "errors"

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNoBillingCustomer    = errors.New("no billing customer for user")
	ErrInsufficientTier     = errors.New("subscription tier too low")

	ErrMissingSignature      = errors.New("missing webhook signature")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrEventAlreadyProcessed = errors.New("event already processed")

	ErrBookingNotFound   = errors.New("booking not found")
	ErrBookingTransition = errors.New("booking transition not allowed")
	ErrPartyNotFound     = errors.New("party not found")
	ErrPartyFull         = errors.New("party is full")
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrPhotoLimit        = errors.New("photo limit reached")
	ErrRightNowNotFound  = errors.New("right-now post not found")

	ErrInvalidToken = errors.New("invalid access token")
)
