package domain

import (
	"context"
	"time"
)

// Registration statuses. CANCELLED is terminal; the only other transition
// is WAITLIST -> CONFIRMED via promotion.
const (
	RegistrationConfirmed = "CONFIRMED"
	RegistrationWaitlist  = "WAITLIST"
	RegistrationCancelled = "CANCELLED"
)

// Who cancelled a registration.
const (
	CancelledByCustomer = "CUSTOMER"
	CancelledByAdmin    = "ADMIN"
)

// Registration represents a sign-up for an event.
//
// An active (non-cancelled) registration is unique per (event, phone number).
// SpotsCount counts toward the event's SpotsReserved ledger only while the
// registration is CONFIRMED; waitlisted spots are not reserved.
// swagger:model Registration
type Registration struct {
	ID                 string         `json:"id"`
	EventID            string         `json:"event_id"`
	Status             string         `json:"status"`
	SpotsCount         int            `json:"spots_count"`
	PhoneNumber        string         `json:"phone_number"`
	Email              string         `json:"email,omitempty"`
	Data               map[string]any `json:"data"`
	ConfirmationCode   string         `json:"confirmation_code"`
	CancellationToken  string         `json:"-"`
	PaymentStatus      string         `json:"payment_status"`
	AmountPaid         int64          `json:"amount_paid"` // agorot (cents)
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	CancellationReason *string        `json:"cancellation_reason,omitempty"`
	CancelledBy        *string        `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Active reports whether the registration still holds or may hold spots.
func (r *Registration) Active() bool {
	return r.Status != RegistrationCancelled
}

// RegistrationFilter narrows admin registration listings.
type RegistrationFilter struct {
	Status string // empty = all
	Search string // matches phone number or confirmation code
}

// RegistrationRepository defines read-side storage operations for
// registrations. All writes that touch the capacity ledger go through
// AllocationRepository instead.
type RegistrationRepository interface {
	GetByID(ctx context.Context, id string) (*Registration, error)
	GetByConfirmationCode(ctx context.Context, code string) (*Registration, error)
	GetByCancellationToken(ctx context.Context, token string) (*Registration, error)
	ListByEventID(ctx context.Context, eventID string, filter RegistrationFilter, params PaginationParams) ([]*Registration, int, error)
}

// AllocationRepository is the transactional boundary around the capacity
// ledger. Every method runs as a single database transaction that locks the
// owning event row, so the ledger invariant (spots_reserved == sum of
// confirmed spots) holds under concurrent writers.
type AllocationRepository interface {
	// Allocate inserts reg, deciding CONFIRMED vs WAITLIST against the
	// event's live capacity read under lock. On CONFIRMED the ledger is
	// incremented in the same transaction. If pay is non-nil it is inserted
	// alongside (status PROCESSING). With force set the registration is
	// CONFIRMED regardless of remaining capacity and the ledger is
	// incremented past capacity if needed.
	// Returns ErrDuplicateRegistration if an active registration with the
	// same phone number exists, and ErrEventClosed if the event stopped
	// accepting registrations between the caller's check and the lock.
	Allocate(ctx context.Context, reg *Registration, pay *Payment, force bool) error

	// Promote moves a WAITLIST registration to CONFIRMED, re-validating
	// capacity under lock. Returns ErrWouldOverbook when the spots no longer
	// fit and ErrNotWaitlisted when the registration is not on the waitlist.
	Promote(ctx context.Context, eventID, registrationID string) (*Registration, error)

	// Cancel transitions the registration to CANCELLED and, if it was
	// CONFIRMED, releases its spots back to the ledger.
	Cancel(ctx context.Context, eventID, registrationID string, reason *string, cancelledBy string) (*Registration, error)

	// UpdateSpots changes the spots count. For a CONFIRMED registration the
	// ledger delta is applied under the capacity guard; an increase that does
	// not fit returns ErrWouldExceedCapacity.
	UpdateSpots(ctx context.Context, eventID, registrationID string, newSpots int) (*Registration, error)

	// Delete hard-deletes the registration (payments cascade) and releases
	// its confirmed spots in the same transaction.
	Delete(ctx context.Context, eventID, registrationID string) error
}

// RegistrationRequest is a public or admin submission of the registration form.
type RegistrationRequest struct {
	Phone      string
	Email      string
	SpotsCount int
	Data       map[string]any
}

// RegistrationResult is what the caller gets back from the allocation engine.
// Payment is set only when the event requires an upfront payment.
type RegistrationResult struct {
	RegistrationID    string              `json:"registration_id"`
	Status            string              `json:"status"`
	ConfirmationCode  string              `json:"confirmation_code"`
	CancellationToken string              `json:"cancellation_token,omitempty"`
	Payment           *PaymentInstruction `json:"payment,omitempty"`
}

// AllocationService is the public-facing allocation engine.
type AllocationService interface {
	// Register atomically decides CONFIRMED vs WAITLIST for a public
	// registration request against the event identified by school + event slug.
	Register(ctx context.Context, schoolSlug, eventSlug string, req *RegistrationRequest) (*RegistrationResult, error)
	// CancelByToken is customer self-service cancellation, subject to the
	// event's cancellation deadline.
	CancelByToken(ctx context.Context, token string, reason *string) error
}

// RegistrationAdminService defines the admin-side registration operations.
type RegistrationAdminService interface {
	List(ctx context.Context, tenant Tenant, eventID string, filter RegistrationFilter, params PaginationParams) ([]*Registration, int, error)
	Get(ctx context.Context, tenant Tenant, registrationID string) (*Registration, error)
	// ManualAdd registers a participant on behalf of an admin. With force set
	// the registration is confirmed even when the event is full or closed.
	ManualAdd(ctx context.Context, tenant Tenant, eventID string, req *RegistrationRequest, force bool) (*RegistrationResult, error)
	Cancel(ctx context.Context, tenant Tenant, registrationID string, reason *string) (*Registration, error)
	UpdateSpots(ctx context.Context, tenant Tenant, registrationID string, newSpots int) (*Registration, error)
	Delete(ctx context.Context, tenant Tenant, registrationID string) error
}

// PromotionService moves waitlisted registrations to CONFIRMED, re-validating
// capacity at promotion time. A refused promotion (ErrWouldOverbook) also
// triggers the overbooking alert notification.
type PromotionService interface {
	Promote(ctx context.Context, tenant Tenant, registrationID string) (*Registration, error)
}
