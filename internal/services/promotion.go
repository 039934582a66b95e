package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"eventspots/internal/domain"
)

type promotionService struct {
	eventRepo      domain.EventRepository
	regRepo        domain.RegistrationRepository
	allocRepo      domain.AllocationRepository
	notifier       domain.Notifier
	contextTimeout time.Duration
}

func NewPromotionService(
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	allocRepo domain.AllocationRepository,
	notifier domain.Notifier,
	timeout time.Duration,
) domain.PromotionService {
	return &promotionService{
		eventRepo:      eventRepo,
		regRepo:        regRepo,
		allocRepo:      allocRepo,
		notifier:       notifier,
		contextTimeout: timeout,
	}
}

func (s *promotionService) Promote(ctx context.Context, tenant domain.Tenant, registrationID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.regRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !tenant.CanAccess(event.SchoolID) {
		return nil, domain.ErrNotFound
	}

	promoted, err := s.allocRepo.Promote(ctx, event.ID, reg.ID)
	if err != nil {
		if errors.Is(err, domain.ErrWouldOverbook) {
			s.alertOverbook(ctx, event, reg)
		}
		return nil, err
	}

	if s.notifier != nil && promoted.Email != "" {
		data := &domain.RegistrationEmailData{
			Email:            promoted.Email,
			EventTitle:       event.Title,
			EventStartAt:     event.StartAt.Format(time.RFC1123),
			SpotsCount:       promoted.SpotsCount,
			ConfirmationCode: promoted.ConfirmationCode,
		}
		if event.Location != nil {
			data.EventLocation = *event.Location
		}
		if err := s.notifier.RegistrationPromoted(ctx, data); err != nil {
			slog.Error("failed to send promotion email", "registration_id", promoted.ID, "error", err)
		}
	}
	return promoted, nil
}

// alertOverbook tells the school's admins that a stale waitlist entry was
// refused promotion. Best effort only.
func (s *promotionService) alertOverbook(ctx context.Context, event *domain.Event, reg *domain.Registration) {
	if s.notifier == nil {
		return
	}
	current, err := s.eventRepo.GetByID(ctx, event.ID)
	if err != nil {
		current = event
	}
	err = s.notifier.OverbookBlocked(ctx, &domain.OverbookAlertData{
		EventTitle:     event.Title,
		RegistrationID: reg.ID,
		SpotsRequested: reg.SpotsCount,
		SpotsAvailable: current.SpotsAvailable(),
	})
	if err != nil {
		slog.Error("failed to send overbook alert", "event_id", event.ID, "error", err)
	}
}
