package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventspots/internal/domain"
)

// Postgres error codes the repositories care about.
const (
	pqUniqueViolation     = "23505"
	pqSerializationFailed = "40001"
	pqDeadlockDetected    = "40P01"
)

// Constraint names from the schema, used to map unique violations to the
// right domain error.
const (
	constraintActivePhone      = "registrations_event_phone_active_idx"
	constraintConfirmationCode = "registrations_confirmation_code_key"
	constraintPaymentPerReg    = "payments_registration_id_key"
	constraintAdminEmail       = "admins_email_key"
	constraintSchoolSlug       = "schools_slug_key"
	constraintEventSlug        = "events_school_id_slug_key"
)

// IsRetryable reports whether err is a transient transaction failure
// (serialization failure or deadlock) worth retrying.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqSerializationFailed || pqErr.Code == pqDeadlockDetected
	}
	return false
}

// mapRetryable wraps transient failures in domain.ErrTxConflict so services
// can retry without knowing about Postgres error codes.
func mapRetryable(err error) error {
	if err != nil && IsRetryable(err) {
		return fmt.Errorf("%w: %v", domain.ErrTxConflict, err)
	}
	return err
}

// isUniqueViolation reports whether err is a unique violation on the named
// constraint. An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// mapUniqueViolation translates a unique violation into its domain error.
// Returns err unchanged when it is not a recognized violation.
func mapUniqueViolation(err error) error {
	switch {
	case isUniqueViolation(err, constraintActivePhone):
		return domain.ErrDuplicateRegistration
	case isUniqueViolation(err, constraintPaymentPerReg):
		return domain.ErrDuplicatePayment
	case isUniqueViolation(err, constraintAdminEmail):
		return domain.ErrDuplicateEmail
	default:
		return err
	}
}
