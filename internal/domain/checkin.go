package domain

import (
	"context"
	"time"
)

// CheckIn records an arrival for a confirmed registration. Undo keeps the
// row for the audit trail and marks it undone instead of deleting it.
// swagger:model CheckIn
type CheckIn struct {
	ID             string     `json:"id"`
	RegistrationID string     `json:"registration_id"`
	EventID        string     `json:"event_id"`
	CheckedInBy    *string    `json:"checked_in_by,omitempty"`
	CheckedInAt    time.Time  `json:"checked_in_at"`
	UndoneAt       *time.Time `json:"undone_at,omitempty"`
	UndoneBy       *string    `json:"undone_by,omitempty"`
	UndoneReason   *string    `json:"undone_reason,omitempty"`
}

// CheckInStats summarizes arrivals for an event.
type CheckInStats struct {
	ConfirmedSpots int `json:"confirmed_spots"`
	CheckedInSpots int `json:"checked_in_spots"`
	CheckedInCount int `json:"checked_in_count"`
}

// CheckInRepository defines storage for check-ins.
type CheckInRepository interface {
	Create(ctx context.Context, checkIn *CheckIn) error
	GetByRegistrationID(ctx context.Context, registrationID string) (*CheckIn, error)
	Undo(ctx context.Context, checkInID string, undoneBy, undoneReason *string) (*CheckIn, error)
	Stats(ctx context.Context, eventID string) (*CheckInStats, error)
}

// CheckInService records arrivals against an event's check-in token.
// The token is the capability: whoever holds the event's check-in link may
// check participants in without an admin session.
type CheckInService interface {
	CheckIn(ctx context.Context, eventID, token, registrationID string, checkedInBy *string) (*CheckIn, error)
	Undo(ctx context.Context, eventID, token, registrationID string, undoneBy, undoneReason *string) (*CheckIn, error)
	Stats(ctx context.Context, eventID, token string) (*CheckInStats, error)
}
