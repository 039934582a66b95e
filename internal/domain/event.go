package domain

import (
	"context"
	"time"
)

// Event statuses. Only OPEN events accept new registrations.
const (
	EventStatusOpen   = "OPEN"
	EventStatusPaused = "PAUSED"
	EventStatusClosed = "CLOSED"
)

// Event types. Capacity-based events allocate against a single spots counter.
// Table-based events allocate against named table units; they are stored but
// the allocation engine only serves capacity-based events.
const (
	EventTypeCapacityBased = "CAPACITY_BASED"
	EventTypeTableBased    = "TABLE_BASED"
)

// Payment timing for paid events.
const (
	PaymentTimingUpfront = "UPFRONT"
	PaymentTimingNone    = "NONE"
)

// Event represents a registerable event owned by a school.
//
// Capacity and SpotsReserved form the capacity ledger: SpotsReserved always
// equals the sum of SpotsCount over CONFIRMED registrations, and is only
// mutated inside the allocation transactions that also touch the
// registration rows.
// swagger:model Event
type Event struct {
	ID                        string      `json:"id"`
	SchoolID                  string      `json:"school_id"`
	Title                     string      `json:"title"`
	Slug                      string      `json:"slug"`
	Status                    string      `json:"status"`
	EventType                 string      `json:"event_type"`
	Capacity                  int         `json:"capacity"`
	SpotsReserved             int         `json:"spots_reserved"`
	MaxSpotsPerPerson         int         `json:"max_spots_per_person"`
	PaymentRequired           bool        `json:"payment_required"`
	PaymentTiming             string      `json:"payment_timing"`
	PriceAmount               int64       `json:"price_amount"` // agorot (cents)
	IncludeProcessingFee      bool        `json:"include_processing_fee"`
	StartAt                   time.Time   `json:"start_at"`
	Location                  *string     `json:"location,omitempty"`
	CancellationDeadlineHours int         `json:"cancellation_deadline_hours"`
	CheckInToken              string      `json:"-"`
	Fields                    []FieldSpec `json:"fields"`
	CreatedAt                 time.Time   `json:"created_at"`
	UpdatedAt                 time.Time   `json:"updated_at"`
}

// SpotsAvailable returns the number of unreserved spots. May be negative
// after a forced admin add past capacity.
func (e *Event) SpotsAvailable() int {
	return e.Capacity - e.SpotsReserved
}

// AcceptingRegistrations reports whether new public registrations are allowed.
func (e *Event) AcceptingRegistrations() bool {
	return e.Status == EventStatusOpen
}

// EventUpdate is a partial update of admin-editable event fields.
// Nil fields are left unchanged.
type EventUpdate struct {
	Title                     *string
	Status                    *string
	Capacity                  *int
	MaxSpotsPerPerson         *int
	StartAt                   *time.Time
	Location                  *string
	CancellationDeadlineHours *int
	Fields                    []FieldSpec
}

// EventRepository defines the interface for event storage.
//
// The SpotsReserved counter is read-only through this interface; it is
// mutated only by AllocationRepository inside its transactions.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetBySlug resolves an event by its school-scoped slug.
	GetBySlug(ctx context.Context, schoolID, slug string) (*Event, error)
	ListBySchoolID(ctx context.Context, schoolID string) ([]*Event, error)
	Update(ctx context.Context, id string, update EventUpdate) (*Event, error)
	Delete(ctx context.Context, id string) error
}

// EventService defines organizer-facing event management.
type EventService interface {
	CreateEvent(ctx context.Context, tenant Tenant, event *Event) error
	GetEvent(ctx context.Context, tenant Tenant, eventID string) (*Event, error)
	ListEvents(ctx context.Context, tenant Tenant) ([]*Event, error)
	UpdateEvent(ctx context.Context, tenant Tenant, eventID string, update EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, tenant Tenant, eventID string) error
	// PublicEvent resolves an event for the public registration page by
	// school slug + event slug. No tenant scoping: the slugs are the scope.
	PublicEvent(ctx context.Context, schoolSlug, eventSlug string) (*School, *Event, error)
}
