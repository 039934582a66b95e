package domain

import "errors"

// Shared sentinel errors. Services return these; controllers map them to
// HTTP status codes. Cross-tenant access is always surfaced as ErrNotFound
// so that entity existence is never leaked to another school.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// Registration and allocation errors.
var (
	// ErrEventClosed is returned when registering for a PAUSED or CLOSED event.
	ErrEventClosed = errors.New("event is not accepting registrations")
	// ErrInvalidSpotsCount is returned when the requested spots count is
	// outside [1, maxSpotsPerPerson].
	ErrInvalidSpotsCount = errors.New("invalid spots count")
	// ErrDuplicateRegistration is returned when an active (non-cancelled)
	// registration already exists for the same event and phone number.
	ErrDuplicateRegistration = errors.New("phone number already registered for this event")
	// ErrAlreadyCancelled is returned when cancelling a registration that is
	// already in the terminal CANCELLED state.
	ErrAlreadyCancelled = errors.New("registration already cancelled")
	// ErrNotWaitlisted is returned when promoting a registration that is not
	// on the waitlist.
	ErrNotWaitlisted = errors.New("registration is not waitlisted")
	// ErrWouldOverbook is returned when a waitlist promotion would push
	// confirmed spots past the event capacity.
	ErrWouldOverbook = errors.New("promotion would exceed event capacity")
	// ErrWouldExceedCapacity is returned when increasing the spots count of a
	// confirmed registration would exceed the event capacity.
	ErrWouldExceedCapacity = errors.New("spots change would exceed event capacity")
	// ErrCancellationDeadline is returned when a customer cancels too close
	// to the event start.
	ErrCancellationDeadline = errors.New("cancellation deadline has passed")
	// ErrCodeCollision is returned when a generated confirmation code is
	// already taken. Callers regenerate and retry.
	ErrCodeCollision = errors.New("confirmation code already in use")
	// ErrTxConflict wraps a transient transaction failure (serialization
	// failure or deadlock). Callers may retry the operation.
	ErrTxConflict = errors.New("transaction conflict")
)

// Payment errors.
var (
	// ErrInvalidPaymentTransition is returned for an out-of-order payment
	// state change (e.g. refunding a payment that never completed).
	ErrInvalidPaymentTransition = errors.New("invalid payment state transition")
	// ErrDuplicatePayment is returned when a second payment row is created
	// for a registration that already has one.
	ErrDuplicatePayment = errors.New("registration already has a payment")
	// ErrAmountMismatch is returned when the gateway-reported amount does not
	// match the stored payment amount.
	ErrAmountMismatch = errors.New("payment amount mismatch")
)

// Check-in errors.
var (
	ErrAlreadyCheckedIn = errors.New("registration already checked in")
	ErrCheckInUndone    = errors.New("check-in already undone")
	ErrNotConfirmed     = errors.New("registration is not confirmed")
)
