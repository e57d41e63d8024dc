package domain

import "errors"

var (
	// ErrNotReady is returned when a repair operation is requested while the
	// engine has not passed its readiness checks.
	ErrNotReady = errors.New("engine not ready")

	// ErrIdentityNotFound is returned when a token or address has no identity
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidEvent is returned for malformed event payloads. It is a
	// permanent error: the event is dropped, never retried.
	ErrInvalidEvent = errors.New("invalid event payload")

	// ErrUsernameTaken is returned by the store on a username uniqueness violation
	ErrUsernameTaken = errors.New("username already taken")

	// ErrOwnerTaken is returned by the store when an insert collides with an
	// existing row for the same owner address. Unlike a username collision there
	// is no alternative candidate, so callers treat it as permanent.
	ErrOwnerTaken = errors.New("owner address already mapped")

	// ErrSubscriptionFailed is returned when event handler registration fails
	ErrSubscriptionFailed = errors.New("subscription failed")
)
