package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventspots/internal/domain"
)

// allocateAttempts bounds the retry loop around the allocation transaction.
// Both transient transaction conflicts and confirmation code collisions are
// retried with a freshly generated code.
const allocateAttempts = 3

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// allocator is the shared engine behind public registration and admin manual
// adds. It validates the request, runs the allocation transaction, and sends
// the post-commit notifications.
type allocator struct {
	allocRepo domain.AllocationRepository
	gateway   domain.PaymentGateway
	notifier  domain.Notifier
	baseURL   string
}

func (a *allocator) allocate(ctx context.Context, school *domain.School, event *domain.Event, req *domain.RegistrationRequest, force, withPayment bool) (*domain.RegistrationResult, error) {
	if event.EventType != domain.EventTypeCapacityBased {
		return nil, fmt.Errorf("%w: event does not use capacity-based registration", domain.ErrInvalidInput)
	}
	if req.SpotsCount < 1 {
		return nil, domain.ErrInvalidSpotsCount
	}
	if !force && req.SpotsCount > event.MaxSpotsPerPerson {
		return nil, domain.ErrInvalidSpotsCount
	}
	phone, err := domain.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email != "" && !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	if err := domain.ValidateFieldData(event.Fields, data); err != nil {
		return nil, err
	}

	upfront := withPayment && event.PaymentRequired && event.PaymentTiming == domain.PaymentTimingUpfront

	reg := &domain.Registration{
		EventID:       event.ID,
		SpotsCount:    req.SpotsCount,
		PhoneNumber:   phone,
		Email:         email,
		Data:          data,
		PaymentStatus: domain.PaymentStatusNone,
	}

	var pay *domain.Payment
	for attempt := 0; attempt < allocateAttempts; attempt++ {
		code, err := generateConfirmationCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate confirmation code: %w", err)
		}
		reg.ConfirmationCode = code
		reg.CancellationToken = uuid.NewString()

		pay = nil
		if upfront {
			amount, err := domain.CalculateAmount(event.PriceAmount, req.SpotsCount, event.IncludeProcessingFee)
			if err != nil {
				return nil, err
			}
			pay = &domain.Payment{
				EventID:        event.ID,
				SchoolID:       school.ID,
				GatewayOrderID: uuid.NewString(),
				Status:         domain.PaymentProcessing,
				Amount:         amount,
			}
			reg.PaymentStatus = domain.PaymentStatusProcessing
		}

		err = a.allocRepo.Allocate(ctx, reg, pay, force)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrCodeCollision) || errors.Is(err, domain.ErrTxConflict) {
			if attempt == allocateAttempts-1 {
				return nil, fmt.Errorf("allocation did not settle after %d attempts: %w", allocateAttempts, err)
			}
			continue
		}
		return nil, err
	}

	result := &domain.RegistrationResult{
		RegistrationID:    reg.ID,
		Status:            reg.Status,
		ConfirmationCode:  reg.ConfirmationCode,
		CancellationToken: reg.CancellationToken,
	}

	if reg.Status == domain.RegistrationConfirmed && pay != nil {
		instruction, err := a.gateway.CreatePaymentRequest(pay,
			phone, email, phone, fmt.Sprintf("%s x%d", event.Title, reg.SpotsCount))
		if err != nil {
			slog.Error("failed to build payment request", "registration_id", reg.ID, "error", err)
		} else {
			result.Payment = instruction
		}
	}

	var payAmount int64
	if pay != nil {
		payAmount = pay.Amount
	}
	a.notifyRegistered(ctx, event, reg, result, payAmount)
	return result, nil
}

// notifyRegistered sends the post-commit emails. Failures are logged and
// never fail the registration.
func (a *allocator) notifyRegistered(ctx context.Context, event *domain.Event, reg *domain.Registration, result *domain.RegistrationResult, payAmount int64) {
	if a.notifier == nil || reg.Email == "" {
		return
	}
	data := &domain.RegistrationEmailData{
		Email:            reg.Email,
		EventTitle:       event.Title,
		EventStartAt:     event.StartAt.Format(time.RFC1123),
		SpotsCount:       reg.SpotsCount,
		ConfirmationCode: reg.ConfirmationCode,
		CancellationURL:  a.baseURL + "/cancel/" + reg.CancellationToken,
	}
	if event.Location != nil {
		data.EventLocation = *event.Location
	}

	var err error
	switch reg.Status {
	case domain.RegistrationConfirmed:
		err = a.notifier.RegistrationConfirmed(ctx, data)
	case domain.RegistrationWaitlist:
		err = a.notifier.RegistrationWaitlisted(ctx, data)
	}
	if err != nil {
		slog.Error("failed to send registration email", "registration_id", reg.ID, "error", err)
	}

	if result.Payment != nil {
		err := a.notifier.PaymentInvoice(ctx, &domain.PaymentEmailData{
			Email:            reg.Email,
			EventTitle:       event.Title,
			Amount:           payAmount,
			ConfirmationCode: reg.ConfirmationCode,
			PaymentURL:       result.Payment.RedirectURL,
		})
		if err != nil {
			slog.Error("failed to send payment invoice email", "registration_id", reg.ID, "error", err)
		}
	}
}

type allocationService struct {
	allocator
	schoolRepo     domain.SchoolRepository
	eventRepo      domain.EventRepository
	regRepo        domain.RegistrationRepository
	contextTimeout time.Duration
}

func NewAllocationService(
	schoolRepo domain.SchoolRepository,
	eventRepo domain.EventRepository,
	regRepo domain.RegistrationRepository,
	allocRepo domain.AllocationRepository,
	gateway domain.PaymentGateway,
	notifier domain.Notifier,
	baseURL string,
	timeout time.Duration,
) domain.AllocationService {
	return &allocationService{
		allocator: allocator{
			allocRepo: allocRepo,
			gateway:   gateway,
			notifier:  notifier,
			baseURL:   baseURL,
		},
		schoolRepo:     schoolRepo,
		eventRepo:      eventRepo,
		regRepo:        regRepo,
		contextTimeout: timeout,
	}
}

func (s *allocationService) Register(ctx context.Context, schoolSlug, eventSlug string, req *domain.RegistrationRequest) (*domain.RegistrationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	school, err := s.schoolRepo.GetBySlug(ctx, schoolSlug)
	if err != nil {
		return nil, err
	}
	event, err := s.eventRepo.GetBySlug(ctx, school.ID, eventSlug)
	if err != nil {
		return nil, err
	}
	if !event.AcceptingRegistrations() {
		return nil, domain.ErrEventClosed
	}

	return s.allocate(ctx, school, event, req, false, true)
}

func (s *allocationService) CancelByToken(ctx context.Context, token string, reason *string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, err := s.regRepo.GetByCancellationToken(ctx, token)
	if err != nil {
		return err
	}
	if reg.Status == domain.RegistrationCancelled {
		return domain.ErrAlreadyCancelled
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return err
	}

	// The deadline is measured back from the event start. A zero deadline
	// still blocks cancellation once the event has started.
	deadline := event.StartAt.Add(-time.Duration(event.CancellationDeadlineHours) * time.Hour)
	if time.Now().After(deadline) {
		return domain.ErrCancellationDeadline
	}

	_, err = s.allocRepo.Cancel(ctx, event.ID, reg.ID, reason, domain.CancelledByCustomer)
	return err
}
