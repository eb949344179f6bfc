package bookings

import "errors"

// Domain error taxonomy. Controllers map these to HTTP codes; callers decide
// retry vs give up from the error class alone.
var (
	// ErrBookingNotFound - unknown booking id. Not retryable.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSeatsExhausted - no capacity left on the schedule. Not retryable;
	// user-visible as "fully booked". No write occurred.
	ErrSeatsExhausted = errors.New("schedule is fully booked")

	// ErrContention - the optimistic retry budget was exhausted by
	// concurrent claims. Retryable by the caller after backoff.
	ErrContention = errors.New("could not claim a seat due to concurrent demand")

	// ErrTimeout - a store operation exceeded its deadline. The caller must
	// re-issue with the same idempotency key; the claim may or may not have
	// landed.
	ErrTimeout = errors.New("store operation timed out")

	// ErrInvalidState - the booking is not in a state that permits the
	// requested transition. Not retryable.
	ErrInvalidState = errors.New("booking is not in a valid state for this operation")

	// Reservation precondition failures. Not retryable.
	ErrRouteInactive         = errors.New("route is not currently active")
	ErrScheduleRouteMismatch = errors.New("schedule does not belong to the requested route")
	ErrScheduleInactiveDay   = errors.New("schedule does not run on the requested date")
)
