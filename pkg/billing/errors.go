package billing

import "errors"

var (
	ErrInvalidUser               = errors.New("billing: user id is required")
	ErrStorageUnavailable        = errors.New("billing: record store unavailable")
	ErrProviderUnavailable       = errors.New("billing: provider unavailable")
	ErrUnknownPlan               = errors.New("billing: no active price for lookup key")
	ErrInconsistentCustomerState = errors.New("billing: expected exactly one customer record")

	ErrNoCheckoutURL    = errors.New("billing: no checkout URL returned from provider")
	ErrNoPortalURL      = errors.New("billing: no portal URL returned from provider")
	ErrMissingAPIKey    = errors.New("billing: provider API key is required")
	ErrInvalidSignature = errors.New("billing: webhook signature verification failed")
	ErrMalformedEvent   = errors.New("billing: malformed webhook event")
	ErrLockNotAcquired  = errors.New("billing: provisioning lock not acquired")
)
