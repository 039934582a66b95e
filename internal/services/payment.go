package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventspots/internal/domain"
)

type paymentService struct {
	paymentRepo    domain.PaymentRepository
	regRepo        domain.RegistrationRepository
	eventRepo      domain.EventRepository
	notifier       domain.Notifier
	contextTimeout time.Duration
}

func NewPaymentService(
	paymentRepo domain.PaymentRepository,
	regRepo domain.RegistrationRepository,
	eventRepo domain.EventRepository,
	notifier domain.Notifier,
	timeout time.Duration,
) domain.PaymentService {
	return &paymentService{
		paymentRepo:    paymentRepo,
		regRepo:        regRepo,
		eventRepo:      eventRepo,
		notifier:       notifier,
		contextTimeout: timeout,
	}
}

// HandleCallback applies a signature-validated gateway callback. The gateway
// may deliver the same callback more than once; replays of an already settled
// payment are acknowledged without re-applying.
func (s *paymentService) HandleCallback(ctx context.Context, cb *domain.GatewayCallback) (*domain.CallbackResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	payment, err := s.paymentRepo.GetByGatewayOrderID(ctx, cb.OrderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentProcessing {
		return &domain.CallbackResult{
			Payment:          payment,
			AlreadyProcessed: true,
			Success:          payment.Status == domain.PaymentCompleted,
		}, nil
	}

	if !cb.Success {
		failed, err := s.paymentRepo.MarkFailed(ctx, payment.ID, cb.Code, cb.TransactionID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidPaymentTransition) {
				return s.settledElsewhere(ctx, payment.ID)
			}
			return nil, err
		}
		return &domain.CallbackResult{Payment: failed, Success: false}, nil
	}

	// A success callback must carry the amount that was charged. Anything
	// else is either tampering or a gateway misconfiguration, and the payment
	// stays PROCESSING for manual review.
	if cb.Amount != payment.Amount {
		slog.Error("payment amount mismatch",
			"payment_id", payment.ID, "expected", payment.Amount, "reported", cb.Amount)
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrAmountMismatch, payment.Amount, cb.Amount)
	}

	completed, err := s.paymentRepo.MarkCompleted(ctx, payment.ID, cb.Code, cb.TransactionID, cb.ConfirmationCode, cb.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPaymentTransition) {
			return s.settledElsewhere(ctx, payment.ID)
		}
		return nil, err
	}

	s.notifyCompleted(ctx, completed)
	return &domain.CallbackResult{Payment: completed, Success: true}, nil
}

// settledElsewhere re-reads a payment whose transition was refused because a
// concurrent delivery of the same callback settled it first. The gateway
// sends the customer redirect and the server notification with identical
// parameters; whichever lands second must still be acknowledged.
func (s *paymentService) settledElsewhere(ctx context.Context, paymentID string) (*domain.CallbackResult, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentProcessing {
		return nil, domain.ErrInvalidPaymentTransition
	}
	return &domain.CallbackResult{
		Payment:          payment,
		AlreadyProcessed: true,
		Success:          payment.Status == domain.PaymentCompleted,
	}, nil
}

func (s *paymentService) notifyCompleted(ctx context.Context, payment *domain.Payment) {
	if s.notifier == nil {
		return
	}
	reg, err := s.regRepo.GetByID(ctx, payment.RegistrationID)
	if err != nil || reg.Email == "" {
		return
	}
	event, err := s.eventRepo.GetByID(ctx, payment.EventID)
	if err != nil {
		return
	}
	err = s.notifier.PaymentCompleted(ctx, &domain.PaymentEmailData{
		Email:            reg.Email,
		EventTitle:       event.Title,
		Amount:           payment.Amount,
		ConfirmationCode: reg.ConfirmationCode,
	})
	if err != nil {
		slog.Error("failed to send payment receipt", "payment_id", payment.ID, "error", err)
	}
}

func (s *paymentService) Refund(ctx context.Context, tenant domain.Tenant, paymentID string, amount int64, reason string) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !tenant.CanAccess(payment.SchoolID) {
		return nil, domain.ErrNotFound
	}
	if amount <= 0 || amount > payment.Amount {
		return nil, fmt.Errorf("%w: refund amount out of range", domain.ErrInvalidInput)
	}
	return s.paymentRepo.MarkRefunded(ctx, paymentID, amount, reason)
}

func (s *paymentService) GetByRegistration(ctx context.Context, tenant domain.Tenant, registrationID string) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	payment, err := s.paymentRepo.GetByRegistrationID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if !tenant.CanAccess(payment.SchoolID) {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}
