package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"eventspots/internal/domain"

	"github.com/stretchr/testify/require"
)

type allocationFixture struct {
	schools  *fakeSchoolRepo
	events   *fakeEventRepo
	alloc    *fakeAllocRepo
	gateway  *fakeGateway
	notifier *fakeNotifier
	svc      domain.AllocationService
	school   *domain.School
	event    *domain.Event
}

func newAllocationFixture(t *testing.T, event *domain.Event) *allocationFixture {
	t.Helper()
	schools := newFakeSchoolRepo()
	events := newFakeEventRepo()
	alloc := newFakeAllocRepo(events)
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}

	school := &domain.School{Name: "Dance Studio", Slug: "dance-studio"}
	require.NoError(t, schools.Create(context.Background(), school))
	event.SchoolID = school.ID
	require.NoError(t, events.Create(context.Background(), event))

	svc := NewAllocationService(schools, events, alloc, alloc, gateway, notifier,
		"https://eventspots.test", time.Second)
	return &allocationFixture{
		schools: schools, events: events, alloc: alloc,
		gateway: gateway, notifier: notifier,
		svc: svc, school: school, event: event,
	}
}

func openEvent() *domain.Event {
	return &domain.Event{
		Title:             "Spring Recital",
		Slug:              "spring-recital",
		Status:            domain.EventStatusOpen,
		EventType:         domain.EventTypeCapacityBased,
		Capacity:          10,
		SpotsReserved:     8,
		MaxSpotsPerPerson: 4,
		PaymentTiming:     domain.PaymentTimingNone,
		StartAt:           time.Now().Add(72 * time.Hour),
	}
}

func TestAllocationService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed when request fills remaining capacity exactly", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())

		result, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone:      "050-123-4567",
			Email:      "dana@example.com",
			SpotsCount: 2,
		})
		require.NoError(t, err)
		require.Equal(t, domain.RegistrationConfirmed, result.Status)
		require.Len(t, result.ConfirmationCode, 6)
		require.NotEmpty(t, result.CancellationToken)
		require.Equal(t, 10, f.event.SpotsReserved)
		require.Len(t, f.notifier.confirmed, 1)
	})

	t.Run("waitlisted when request exceeds remaining capacity", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())

		result, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone:      "0501234567",
			SpotsCount: 3,
		})
		require.NoError(t, err)
		require.Equal(t, domain.RegistrationWaitlist, result.Status)
		// Waitlisted spots are not reserved.
		require.Equal(t, 8, f.event.SpotsReserved)
		require.Empty(t, f.notifier.confirmed)
	})

	t.Run("phone number is normalized before duplicate detection", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())

		_, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "+972 50-123-4567", SpotsCount: 1,
		})
		require.NoError(t, err)

		_, err = f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 1,
		})
		require.ErrorIs(t, err, domain.ErrDuplicateRegistration)
	})

	t.Run("spots count above per-person limit", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())

		_, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 5,
		})
		require.ErrorIs(t, err, domain.ErrInvalidSpotsCount)
	})

	t.Run("zero spots", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())

		_, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 0,
		})
		require.ErrorIs(t, err, domain.ErrInvalidSpotsCount)
	})

	t.Run("paused event refuses registration", func(t *testing.T) {
		event := openEvent()
		event.Status = domain.EventStatusPaused
		f := newAllocationFixture(t, event)

		_, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 1,
		})
		require.ErrorIs(t, err, domain.ErrEventClosed)
	})

	t.Run("field schema is enforced", func(t *testing.T) {
		event := openEvent()
		event.Fields = []domain.FieldSpec{
			{Key: "student_name", Type: domain.FieldTypeText, Required: true},
		}
		f := newAllocationFixture(t, event)

		_, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 1,
		})
		require.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 1,
			Data: map[string]any{"student_name": "Dana"},
		})
		require.NoError(t, err)
	})

	t.Run("upfront payment produces a gateway instruction and invoice", func(t *testing.T) {
		event := openEvent()
		event.SpotsReserved = 0
		event.PaymentRequired = true
		event.PaymentTiming = domain.PaymentTimingUpfront
		event.PriceAmount = 5000
		event.IncludeProcessingFee = true
		f := newAllocationFixture(t, event)

		result, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", Email: "dana@example.com", SpotsCount: 1,
		})
		require.NoError(t, err)
		require.Equal(t, domain.RegistrationConfirmed, result.Status)
		require.NotNil(t, result.Payment)
		require.Contains(t, result.Payment.RedirectURL, result.Payment.OrderID)
		require.Len(t, f.notifier.invoices, 1)
		require.Equal(t, int64(5225), f.notifier.invoices[0].Amount)
	})

	t.Run("waitlisted paid registration defers payment", func(t *testing.T) {
		event := openEvent()
		event.SpotsReserved = 10
		event.PaymentRequired = true
		event.PaymentTiming = domain.PaymentTimingUpfront
		event.PriceAmount = 5000
		f := newAllocationFixture(t, event)

		result, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 1,
		})
		require.NoError(t, err)
		require.Equal(t, domain.RegistrationWaitlist, result.Status)
		require.Nil(t, result.Payment)
		require.Empty(t, f.alloc.pays)
		require.Equal(t, domain.PaymentStatusPending, f.alloc.regs[result.RegistrationID].PaymentStatus)
	})

	t.Run("unknown school slug", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())

		_, err := f.svc.Register(ctx, "other-school", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 1,
		})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("zero-capacity event waitlists every registration", func(t *testing.T) {
		event := openEvent()
		event.Capacity = 0
		event.SpotsReserved = 0
		f := newAllocationFixture(t, event)

		result, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 1,
		})
		require.NoError(t, err)
		require.Equal(t, domain.RegistrationWaitlist, result.Status)
		require.Equal(t, 0, f.event.SpotsReserved)
	})

	t.Run("single spot contested by simultaneous requests", func(t *testing.T) {
		event := openEvent()
		event.Capacity = 1
		event.SpotsReserved = 0
		event.MaxSpotsPerPerson = 1
		f := newAllocationFixture(t, event)

		phones := []string{"0501111111", "0502222222"}
		results := make([]*domain.RegistrationResult, len(phones))
		errs := make([]error, len(phones))
		var wg sync.WaitGroup
		for i, phone := range phones {
			wg.Add(1)
			go func(i int, phone string) {
				defer wg.Done()
				results[i], errs[i] = f.svc.Register(ctx, "dance-studio", "spring-recital",
					&domain.RegistrationRequest{Phone: phone, SpotsCount: 1})
			}(i, phone)
		}
		wg.Wait()

		var confirmed, waitlisted int
		for i := range phones {
			require.NoError(t, errs[i])
			switch results[i].Status {
			case domain.RegistrationConfirmed:
				confirmed++
			case domain.RegistrationWaitlist:
				waitlisted++
			}
		}
		require.Equal(t, 1, confirmed)
		require.Equal(t, 1, waitlisted)
		require.Equal(t, 1, f.event.SpotsReserved)
	})

	t.Run("retries transient transaction conflicts", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())
		f.alloc.err = domain.ErrTxConflict

		result, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: 1,
		})
		require.NoError(t, err)
		require.Equal(t, domain.RegistrationConfirmed, result.Status)
	})
}

func TestAllocationService_CancelByToken(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, f *allocationFixture, spots int) *domain.RegistrationResult {
		t.Helper()
		result, err := f.svc.Register(ctx, "dance-studio", "spring-recital", &domain.RegistrationRequest{
			Phone: "0501234567", SpotsCount: spots,
		})
		require.NoError(t, err)
		return result
	}

	t.Run("confirmed cancellation releases spots", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())
		result := register(t, f, 2)
		require.Equal(t, 10, f.event.SpotsReserved)

		require.NoError(t, f.svc.CancelByToken(ctx, result.CancellationToken, nil))
		require.Equal(t, 8, f.event.SpotsReserved)
		require.Equal(t, domain.RegistrationCancelled, f.alloc.regs[result.RegistrationID].Status)
	})

	t.Run("deadline blocks late cancellation", func(t *testing.T) {
		event := openEvent()
		event.StartAt = time.Now().Add(10 * time.Hour)
		event.CancellationDeadlineHours = 24
		f := newAllocationFixture(t, event)
		result := register(t, f, 1)

		err := f.svc.CancelByToken(ctx, result.CancellationToken, nil)
		require.ErrorIs(t, err, domain.ErrCancellationDeadline)
	})

	t.Run("second cancellation is rejected", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())
		result := register(t, f, 1)

		require.NoError(t, f.svc.CancelByToken(ctx, result.CancellationToken, nil))
		err := f.svc.CancelByToken(ctx, result.CancellationToken, nil)
		require.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newAllocationFixture(t, openEvent())
		err := f.svc.CancelByToken(ctx, "nope", nil)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}
