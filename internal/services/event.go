package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventspots/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	schoolRepo     domain.SchoolRepository
	contextTimeout time.Duration
}

func NewEventService(eventRepo domain.EventRepository, schoolRepo domain.SchoolRepository, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		schoolRepo:     schoolRepo,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, tenant domain.Tenant, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.SchoolID == "" {
		event.SchoolID = tenant.SchoolID
	}
	if !tenant.CanAccess(event.SchoolID) {
		return domain.ErrForbidden
	}
	if event.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	// Zero capacity is allowed: the event takes waitlist sign-ups only.
	if event.Capacity < 0 {
		return fmt.Errorf("%w: capacity cannot be negative", domain.ErrInvalidInput)
	}
	if event.MaxSpotsPerPerson < 1 {
		event.MaxSpotsPerPerson = 1
	}
	if event.Capacity > 0 && event.MaxSpotsPerPerson > event.Capacity {
		return fmt.Errorf("%w: max spots per person exceeds capacity", domain.ErrInvalidInput)
	}
	if event.StartAt.IsZero() {
		return fmt.Errorf("%w: start time is required", domain.ErrInvalidInput)
	}
	if event.PaymentRequired && event.PriceAmount <= 0 {
		return fmt.Errorf("%w: paid events need a positive price", domain.ErrInvalidInput)
	}
	if err := validateFieldSpecs(event.Fields); err != nil {
		return err
	}

	if event.Status == "" {
		event.Status = domain.EventStatusOpen
	}
	if event.EventType == "" {
		event.EventType = domain.EventTypeCapacityBased
	}
	if event.PaymentTiming == "" {
		if event.PaymentRequired {
			event.PaymentTiming = domain.PaymentTimingUpfront
		} else {
			event.PaymentTiming = domain.PaymentTimingNone
		}
	}
	if event.Slug == "" {
		event.Slug = slugify(event.Title)
	}
	if event.Slug == "" {
		return fmt.Errorf("%w: slug is required", domain.ErrInvalidInput)
	}
	event.CheckInToken = uuid.NewString()
	if event.Fields == nil {
		event.Fields = []domain.FieldSpec{}
	}
	event.SpotsReserved = 0
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()

	return s.eventRepo.Create(ctx, event)
}

func validateFieldSpecs(fields []domain.FieldSpec) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			return fmt.Errorf("%w: field key is required", domain.ErrInvalidInput)
		}
		if seen[f.Key] {
			return fmt.Errorf("%w: duplicate field key %q", domain.ErrInvalidInput, f.Key)
		}
		seen[f.Key] = true
		switch f.Type {
		case domain.FieldTypeText, domain.FieldTypeNumber, domain.FieldTypeCheckbox:
		case domain.FieldTypeDropdown:
			if len(f.Options) == 0 {
				return fmt.Errorf("%w: dropdown field %q needs options", domain.ErrInvalidInput, f.Key)
			}
		default:
			return fmt.Errorf("%w: field %q has unknown type %q", domain.ErrInvalidInput, f.Key, f.Type)
		}
	}
	return nil
}

// getScoped loads an event and enforces tenant scoping. A cross-tenant hit is
// reported as not found so event IDs are not probeable across schools.
func (s *eventService) getScoped(ctx context.Context, tenant domain.Tenant, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !tenant.CanAccess(event.SchoolID) {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, tenant domain.Tenant, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.getScoped(ctx, tenant, eventID)
}

func (s *eventService) ListEvents(ctx context.Context, tenant domain.Tenant) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.eventRepo.ListBySchoolID(ctx, tenant.SchoolID)
}

func (s *eventService) UpdateEvent(ctx context.Context, tenant domain.Tenant, eventID string, update domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getScoped(ctx, tenant, eventID)
	if err != nil {
		return nil, err
	}
	if update.Status != nil {
		switch *update.Status {
		case domain.EventStatusOpen, domain.EventStatusPaused, domain.EventStatusClosed:
		default:
			return nil, fmt.Errorf("%w: unknown event status %q", domain.ErrInvalidInput, *update.Status)
		}
	}
	if update.Capacity != nil {
		if *update.Capacity < 0 {
			return nil, fmt.Errorf("%w: capacity cannot be negative", domain.ErrInvalidInput)
		}
		// Lowering capacity below the reserved ledger would strand confirmed
		// registrations, so it is rejected outright.
		if *update.Capacity < event.SpotsReserved {
			return nil, fmt.Errorf("%w: capacity below reserved spots", domain.ErrInvalidInput)
		}
	}
	if update.MaxSpotsPerPerson != nil && *update.MaxSpotsPerPerson < 1 {
		return nil, fmt.Errorf("%w: max spots per person must be positive", domain.ErrInvalidInput)
	}
	if update.Fields != nil {
		if err := validateFieldSpecs(update.Fields); err != nil {
			return nil, err
		}
	}

	return s.eventRepo.Update(ctx, eventID, update)
}

func (s *eventService) DeleteEvent(ctx context.Context, tenant domain.Tenant, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.getScoped(ctx, tenant, eventID); err != nil {
		return err
	}
	return s.eventRepo.Delete(ctx, eventID)
}

func (s *eventService) PublicEvent(ctx context.Context, schoolSlug, eventSlug string) (*domain.School, *domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	school, err := s.schoolRepo.GetBySlug(ctx, schoolSlug)
	if err != nil {
		return nil, nil, err
	}
	event, err := s.eventRepo.GetBySlug(ctx, school.ID, eventSlug)
	if err != nil {
		return nil, nil, err
	}
	return school, event, nil
}
