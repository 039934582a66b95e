package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"eventspots/internal/domain"
)

type checkInService struct {
	eventRepo      domain.EventRepository
	regRepo        domain.RegistrationRepository
	checkInRepo    domain.CheckInRepository
	contextTimeout time.Duration
}

func NewCheckInService(
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	checkInRepo domain.CheckInRepository,
	timeout time.Duration,
) domain.CheckInService {
	return &checkInService{
		eventRepo:      eventRepo,
		regRepo:        regRepo,
		checkInRepo:    checkInRepo,
		contextTimeout: timeout,
	}
}

// authorize verifies the check-in token against the event. The token is the
// only credential for the check-in surface; a bad token reads as not found.
func (s *checkInService) authorize(ctx context.Context, eventID, token string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(event.CheckInToken), []byte(token)) != 1 {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

func (s *checkInService) CheckIn(ctx context.Context, eventID, token, registrationID string, checkedInBy *string) (*domain.CheckIn, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.authorize(ctx, eventID, token)
	if err != nil {
		return nil, err
	}
	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.EventID != event.ID {
		return nil, domain.ErrNotFound
	}
	if reg.Status != domain.RegistrationConfirmed {
		return nil, domain.ErrNotConfirmed
	}

	existing, err := s.checkInRepo.GetByRegistrationID(ctx, registrationID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.UndoneAt == nil {
		return nil, domain.ErrAlreadyCheckedIn
	}

	checkIn := &domain.CheckIn{
		RegistrationID: registrationID,
		EventID:        event.ID,
		CheckedInBy:    checkedInBy,
	}
	if err := s.checkInRepo.Create(ctx, checkIn); err != nil {
		return nil, err
	}
	return checkIn, nil
}

func (s *checkInService) Undo(ctx context.Context, eventID, token, registrationID string, undoneBy, undoneReason *string) (*domain.CheckIn, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.authorize(ctx, eventID, token)
	if err != nil {
		return nil, err
	}
	existing, err := s.checkInRepo.GetByRegistrationID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if existing.EventID != event.ID {
		return nil, domain.ErrNotFound
	}
	if existing.UndoneAt != nil {
		return nil, domain.ErrCheckInUndone
	}
	return s.checkInRepo.Undo(ctx, existing.ID, undoneBy, undoneReason)
}

func (s *checkInService) Stats(ctx context.Context, eventID, token string) (*domain.CheckInStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.authorize(ctx, eventID, token)
	if err != nil {
		return nil, err
	}
	return s.checkInRepo.Stats(ctx, event.ID)
}
