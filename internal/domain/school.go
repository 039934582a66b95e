package domain

import (
	"context"
	"time"
)

// School is the tenant unit: every event, registration, and payment belongs
// to exactly one school, and admin operations are scoped to their school.
// swagger:model School
type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSchool returns a new School. ID is typically set by the repository on create.
func NewSchool(name, slug string, createdAt, updatedAt time.Time) *School {
	return &School{
		Name:      name,
		Slug:      slug,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// SchoolRepository defines the interface for school storage.
type SchoolRepository interface {
	Create(ctx context.Context, school *School) error
	GetByID(ctx context.Context, id string) (*School, error)
	GetBySlug(ctx context.Context, slug string) (*School, error)
}

// Tenant identifies the caller's school scope for admin operations.
// SuperAdmin callers may operate across schools.
type Tenant struct {
	SchoolID   string
	SuperAdmin bool
}

// CanAccess reports whether the tenant may touch entities owned by schoolID.
func (t Tenant) CanAccess(schoolID string) bool {
	return t.SuperAdmin || t.SchoolID == schoolID
}
