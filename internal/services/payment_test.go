package services

import (
	"context"
	"testing"
	"time"

	"eventspots/internal/domain"

	"github.com/stretchr/testify/require"
)

func paymentFixture(t *testing.T) (*fakePaymentRepo, *fakeAllocRepo, *fakeNotifier, domain.PaymentService, *domain.Payment) {
	t.Helper()
	ctx := context.Background()
	events := newFakeEventRepo()
	alloc := newFakeAllocRepo(events)
	payments := newFakePaymentRepo()
	notifier := &fakeNotifier{}

	event := openEvent()
	event.SchoolID = "school-1"
	require.NoError(t, events.Create(ctx, event))

	reg := &domain.Registration{
		ID: "reg-1", EventID: event.ID, Status: domain.RegistrationConfirmed,
		SpotsCount: 1, PhoneNumber: "0501234567", Email: "dana@example.com",
		ConfirmationCode: "A1B2C3", PaymentStatus: domain.PaymentStatusProcessing,
	}
	alloc.regs[reg.ID] = reg

	payment := &domain.Payment{
		ID: "pay-1", RegistrationID: reg.ID, EventID: event.ID, SchoolID: "school-1",
		GatewayOrderID: "order-1", Status: domain.PaymentProcessing, Amount: 5225,
	}
	payments.byID[payment.ID] = payment

	svc := NewPaymentService(payments, alloc, events, notifier, time.Second)
	return payments, alloc, notifier, svc, payment
}

func TestPaymentService_HandleCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("success completes the payment and emails a receipt", func(t *testing.T) {
		_, _, notifier, svc, payment := paymentFixture(t)

		result, err := svc.HandleCallback(ctx, &domain.GatewayCallback{
			OrderID: "order-1", Success: true, Code: 0,
			TransactionID: "txn-1", ConfirmationCode: "0012345", Amount: 5225,
		})
		require.NoError(t, err)
		require.True(t, result.Success)
		require.False(t, result.AlreadyProcessed)
		require.Equal(t, domain.PaymentCompleted, payment.Status)
		require.Len(t, notifier.completed, 1)
		require.Equal(t, int64(5225), notifier.completed[0].Amount)
	})

	t.Run("replayed callback is acknowledged without re-applying", func(t *testing.T) {
		_, _, notifier, svc, _ := paymentFixture(t)
		cb := &domain.GatewayCallback{
			OrderID: "order-1", Success: true, Code: 0,
			TransactionID: "txn-1", Amount: 5225,
		}

		_, err := svc.HandleCallback(ctx, cb)
		require.NoError(t, err)
		result, err := svc.HandleCallback(ctx, cb)
		require.NoError(t, err)
		require.True(t, result.AlreadyProcessed)
		require.True(t, result.Success)
		require.Len(t, notifier.completed, 1)
	})

	t.Run("amount mismatch leaves the payment processing", func(t *testing.T) {
		_, _, _, svc, payment := paymentFixture(t)

		_, err := svc.HandleCallback(ctx, &domain.GatewayCallback{
			OrderID: "order-1", Success: true, Amount: 100,
		})
		require.ErrorIs(t, err, domain.ErrAmountMismatch)
		require.Equal(t, domain.PaymentProcessing, payment.Status)
	})

	t.Run("failure callback marks the payment failed", func(t *testing.T) {
		_, _, notifier, svc, payment := paymentFixture(t)

		result, err := svc.HandleCallback(ctx, &domain.GatewayCallback{
			OrderID: "order-1", Success: false, Code: 901, TransactionID: "txn-1",
		})
		require.NoError(t, err)
		require.False(t, result.Success)
		require.Equal(t, domain.PaymentFailed, payment.Status)
		require.Empty(t, notifier.completed)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, _, _, svc, _ := paymentFixture(t)

		_, err := svc.HandleCallback(ctx, &domain.GatewayCallback{OrderID: "order-404", Success: true})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// settlingPaymentRepo settles the payment out from under the mark calls, the
// way a concurrent delivery of the same callback would. The gateway delivers
// the customer redirect and the server notification together, so both can
// read the payment as PROCESSING before either transition lands.
type settlingPaymentRepo struct {
	*fakePaymentRepo
}

func (r *settlingPaymentRepo) MarkCompleted(ctx context.Context, paymentID string, gatewayCode int, transactionID, confirmCode string, amountPaid int64) (*domain.Payment, error) {
	if p, ok := r.byID[paymentID]; ok {
		p.Status = domain.PaymentCompleted
	}
	return nil, domain.ErrInvalidPaymentTransition
}

func (r *settlingPaymentRepo) MarkFailed(ctx context.Context, paymentID string, gatewayCode int, transactionID string) (*domain.Payment, error) {
	if p, ok := r.byID[paymentID]; ok {
		p.Status = domain.PaymentFailed
	}
	return nil, domain.ErrInvalidPaymentTransition
}

func TestPaymentService_HandleCallback_SimultaneousDeliveries(t *testing.T) {
	ctx := context.Background()

	fixture := func(t *testing.T) (*fakeNotifier, domain.PaymentService) {
		t.Helper()
		events := newFakeEventRepo()
		alloc := newFakeAllocRepo(events)
		payments := newFakePaymentRepo()
		notifier := &fakeNotifier{}
		payments.byID["pay-1"] = &domain.Payment{
			ID: "pay-1", RegistrationID: "reg-1", EventID: "ev-1", SchoolID: "school-1",
			GatewayOrderID: "order-1", Status: domain.PaymentProcessing, Amount: 5225,
		}
		svc := NewPaymentService(&settlingPaymentRepo{payments}, alloc, events, notifier, time.Second)
		return notifier, svc
	}

	t.Run("losing success delivery is acknowledged, not rejected", func(t *testing.T) {
		notifier, svc := fixture(t)

		result, err := svc.HandleCallback(ctx, &domain.GatewayCallback{
			OrderID: "order-1", Success: true, Code: 0, TransactionID: "txn-1", Amount: 5225,
		})
		require.NoError(t, err)
		require.True(t, result.AlreadyProcessed)
		require.True(t, result.Success)
		// The winning delivery already sent the receipt.
		require.Empty(t, notifier.completed)
	})

	t.Run("losing failure delivery is acknowledged, not rejected", func(t *testing.T) {
		_, svc := fixture(t)

		result, err := svc.HandleCallback(ctx, &domain.GatewayCallback{
			OrderID: "order-1", Success: false, Code: 901, TransactionID: "txn-1",
		})
		require.NoError(t, err)
		require.True(t, result.AlreadyProcessed)
		require.False(t, result.Success)
	})
}

func TestPaymentService_Refund(t *testing.T) {
	ctx := context.Background()
	tenant := domain.Tenant{SchoolID: "school-1"}

	t.Run("refund of a completed payment", func(t *testing.T) {
		_, _, _, svc, payment := paymentFixture(t)
		payment.Status = domain.PaymentCompleted

		refunded, err := svc.Refund(ctx, tenant, "pay-1", 5225, "event cancelled")
		require.NoError(t, err)
		require.Equal(t, domain.PaymentRefunded, refunded.Status)
		require.Equal(t, int64(5225), *refunded.RefundAmount)
	})

	t.Run("refund of a processing payment is refused", func(t *testing.T) {
		_, _, _, svc, _ := paymentFixture(t)

		_, err := svc.Refund(ctx, tenant, "pay-1", 5225, "oops")
		require.ErrorIs(t, err, domain.ErrInvalidPaymentTransition)
	})

	t.Run("refund above the charged amount is refused", func(t *testing.T) {
		_, _, _, svc, payment := paymentFixture(t)
		payment.Status = domain.PaymentCompleted

		_, err := svc.Refund(ctx, tenant, "pay-1", 9999, "too much")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("cross-tenant refund reads as not found", func(t *testing.T) {
		_, _, _, svc, payment := paymentFixture(t)
		payment.Status = domain.PaymentCompleted

		_, err := svc.Refund(ctx, domain.Tenant{SchoolID: "school-2"}, "pay-1", 100, "nope")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
