package services

import (
	"context"
	"time"

	"eventspots/internal/domain"
)

type registrationAdminService struct {
	allocator
	eventRepo      domain.EventRepository
	regRepo        domain.RegistrationRepository
	contextTimeout time.Duration
}

func NewRegistrationAdminService(
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	allocRepo domain.AllocationRepository,
	notifier domain.Notifier,
	baseURL string,
	timeout time.Duration,
) domain.RegistrationAdminService {
	return &registrationAdminService{
		allocator: allocator{
			allocRepo: allocRepo,
			notifier:  notifier,
			baseURL:   baseURL,
		},
		eventRepo:      eventRepo,
		regRepo:        regRepo,
		contextTimeout: timeout,
	}
}

// scopedEvent loads the event and enforces tenant access, reporting
// cross-tenant hits as not found.
func (s *registrationAdminService) scopedEvent(ctx context.Context, tenant domain.Tenant, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !tenant.CanAccess(event.SchoolID) {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

// scopedRegistration resolves a registration and its owning event, enforcing
// tenant access through the event's school.
func (s *registrationAdminService) scopedRegistration(ctx context.Context, tenant domain.Tenant, registrationID string) (*domain.Registration, *domain.Event, error) {
	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, nil, err
	}
	event, err := s.scopedEvent(ctx, tenant, reg.EventID)
	if err != nil {
		return nil, nil, err
	}
	return reg, event, nil
}

func (s *registrationAdminService) List(ctx context.Context, tenant domain.Tenant, eventID string, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.scopedEvent(ctx, tenant, eventID); err != nil {
		return nil, 0, err
	}
	return s.regRepo.ListByEventID(ctx, eventID, filter, params)
}

func (s *registrationAdminService) Get(ctx context.Context, tenant domain.Tenant, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, _, err := s.scopedRegistration(ctx, tenant, registrationID)
	return reg, err
}

func (s *registrationAdminService) ManualAdd(ctx context.Context, tenant domain.Tenant, eventID string, req *domain.RegistrationRequest, force bool) (*domain.RegistrationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.scopedEvent(ctx, tenant, eventID)
	if err != nil {
		return nil, err
	}
	if !force && !event.AcceptingRegistrations() {
		return nil, domain.ErrEventClosed
	}

	// Admin adds never collect payment through the gateway; any money
	// changes hands offline.
	school := &domain.School{ID: event.SchoolID}
	return s.allocate(ctx, school, event, req, force, false)
}

func (s *registrationAdminService) Cancel(ctx context.Context, tenant domain.Tenant, registrationID string, reason *string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, event, err := s.scopedRegistration(ctx, tenant, registrationID)
	if err != nil {
		return nil, err
	}
	return s.allocRepo.Cancel(ctx, event.ID, reg.ID, reason, domain.CancelledByAdmin)
}

func (s *registrationAdminService) UpdateSpots(ctx context.Context, tenant domain.Tenant, registrationID string, newSpots int) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if newSpots < 1 {
		return nil, domain.ErrInvalidSpotsCount
	}
	reg, event, err := s.scopedRegistration(ctx, tenant, registrationID)
	if err != nil {
		return nil, err
	}
	// Increases honor the per-person limit. Decreases always go through so an
	// oversized force add can still be trimmed.
	if newSpots > reg.SpotsCount && newSpots > event.MaxSpotsPerPerson {
		return nil, domain.ErrInvalidSpotsCount
	}
	return s.allocRepo.UpdateSpots(ctx, event.ID, reg.ID, newSpots)
}

func (s *registrationAdminService) Delete(ctx context.Context, tenant domain.Tenant, registrationID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, event, err := s.scopedRegistration(ctx, tenant, registrationID)
	if err != nil {
		return err
	}
	return s.allocRepo.Delete(ctx, event.ID, reg.ID)
}
