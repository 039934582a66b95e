package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"eventspots/internal/domain"
)

// In-memory fakes shared by the service tests. They reproduce the repository
// contracts closely enough to exercise the services' decisions, including the
// capacity ledger behavior of the allocation repository.

type fakeSchoolRepo struct {
	byID   map[string]*domain.School
	nextID int
}

func newFakeSchoolRepo() *fakeSchoolRepo {
	return &fakeSchoolRepo{byID: make(map[string]*domain.School), nextID: 1}
}

func (f *fakeSchoolRepo) Create(ctx context.Context, s *domain.School) error {
	for _, existing := range f.byID {
		if existing.Slug == s.Slug {
			return fmt.Errorf("%w: school slug already taken", domain.ErrInvalidInput)
		}
	}
	s.ID = fmt.Sprintf("school-%d", f.nextID)
	f.nextID++
	f.byID[s.ID] = s
	return nil
}

func (f *fakeSchoolRepo) GetByID(ctx context.Context, id string) (*domain.School, error) {
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSchoolRepo) GetBySlug(ctx context.Context, slug string) (*domain.School, error) {
	for _, s := range f.byID {
		if s.Slug == strings.ToLower(strings.TrimSpace(slug)) {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeEventRepo struct {
	byID   map[string]*domain.Event
	nextID int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		return e, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) GetBySlug(ctx context.Context, schoolID, slug string) (*domain.Event, error) {
	for _, e := range f.byID {
		if e.SchoolID == schoolID && e.Slug == slug {
			return e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListBySchoolID(ctx context.Context, schoolID string) ([]*domain.Event, error) {
	out := make([]*domain.Event, 0)
	for _, e := range f.byID {
		if e.SchoolID == schoolID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, id string, update domain.EventUpdate) (*domain.Event, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Title != nil {
		e.Title = *update.Title
	}
	if update.Status != nil {
		e.Status = *update.Status
	}
	if update.Capacity != nil {
		e.Capacity = *update.Capacity
	}
	if update.MaxSpotsPerPerson != nil {
		e.MaxSpotsPerPerson = *update.MaxSpotsPerPerson
	}
	if update.StartAt != nil {
		e.StartAt = *update.StartAt
	}
	if update.Location != nil {
		e.Location = update.Location
	}
	if update.CancellationDeadlineHours != nil {
		e.CancellationDeadlineHours = *update.CancellationDeadlineHours
	}
	if update.Fields != nil {
		e.Fields = update.Fields
	}
	return e, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeAllocRepo implements both AllocationRepository and the read-side
// RegistrationRepository over the same in-memory rows. The mutex serializes
// the methods the way the real repository's event row lock does, so tests can
// issue concurrent registrations.
type fakeAllocRepo struct {
	mu     sync.Mutex
	events *fakeEventRepo
	regs   map[string]*domain.Registration
	pays   map[string]*domain.Payment
	nextID int
	err    error // if set, Allocate returns this error once
}

func newFakeAllocRepo(events *fakeEventRepo) *fakeAllocRepo {
	return &fakeAllocRepo{
		events: events,
		regs:   make(map[string]*domain.Registration),
		pays:   make(map[string]*domain.Payment),
		nextID: 1,
	}
}

func (f *fakeAllocRepo) Allocate(ctx context.Context, reg *domain.Registration, pay *domain.Payment, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		err := f.err
		f.err = nil
		return err
	}
	event, ok := f.events.byID[reg.EventID]
	if !ok {
		return domain.ErrNotFound
	}
	if !force && event.Status != domain.EventStatusOpen {
		return domain.ErrEventClosed
	}
	for _, existing := range f.regs {
		if existing.EventID == reg.EventID && existing.PhoneNumber == reg.PhoneNumber && existing.Active() {
			return domain.ErrDuplicateRegistration
		}
	}

	if force || event.SpotsReserved+reg.SpotsCount <= event.Capacity {
		reg.Status = domain.RegistrationConfirmed
		event.SpotsReserved += reg.SpotsCount
	} else {
		reg.Status = domain.RegistrationWaitlist
		if pay != nil {
			pay = nil
			reg.PaymentStatus = domain.PaymentStatusPending
		}
	}

	reg.ID = fmt.Sprintf("reg-%d", f.nextID)
	f.nextID++
	f.regs[reg.ID] = reg

	if pay != nil {
		pay.RegistrationID = reg.ID
		pay.ID = fmt.Sprintf("pay-%d", f.nextID)
		f.nextID++
		f.pays[pay.ID] = pay
	}
	return nil
}

func (f *fakeAllocRepo) Promote(ctx context.Context, eventID, registrationID string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events.byID[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	reg, ok := f.regs[registrationID]
	if !ok || reg.EventID != eventID {
		return nil, domain.ErrNotFound
	}
	if reg.Status != domain.RegistrationWaitlist {
		return nil, domain.ErrNotWaitlisted
	}
	if event.SpotsReserved+reg.SpotsCount > event.Capacity {
		return nil, domain.ErrWouldOverbook
	}
	event.SpotsReserved += reg.SpotsCount
	reg.Status = domain.RegistrationConfirmed
	return reg, nil
}

func (f *fakeAllocRepo) Cancel(ctx context.Context, eventID, registrationID string, reason *string, cancelledBy string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events.byID[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	reg, ok := f.regs[registrationID]
	if !ok || reg.EventID != eventID {
		return nil, domain.ErrNotFound
	}
	if reg.Status == domain.RegistrationCancelled {
		return nil, domain.ErrAlreadyCancelled
	}
	if reg.Status == domain.RegistrationConfirmed {
		event.SpotsReserved -= reg.SpotsCount
		if event.SpotsReserved < 0 {
			event.SpotsReserved = 0
		}
	}
	reg.Status = domain.RegistrationCancelled
	reg.CancellationReason = reason
	reg.CancelledBy = &cancelledBy
	return reg, nil
}

func (f *fakeAllocRepo) UpdateSpots(ctx context.Context, eventID, registrationID string, newSpots int) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events.byID[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	reg, ok := f.regs[registrationID]
	if !ok || reg.EventID != eventID {
		return nil, domain.ErrNotFound
	}
	if reg.Status == domain.RegistrationCancelled {
		return nil, domain.ErrAlreadyCancelled
	}
	if reg.Status == domain.RegistrationConfirmed {
		delta := newSpots - reg.SpotsCount
		if delta > 0 && event.SpotsReserved+delta > event.Capacity {
			return nil, domain.ErrWouldExceedCapacity
		}
		event.SpotsReserved += delta
		if event.SpotsReserved < 0 {
			event.SpotsReserved = 0
		}
	}
	reg.SpotsCount = newSpots
	return reg, nil
}

func (f *fakeAllocRepo) Delete(ctx context.Context, eventID, registrationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events.byID[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	reg, ok := f.regs[registrationID]
	if !ok || reg.EventID != eventID {
		return domain.ErrNotFound
	}
	if reg.Status == domain.RegistrationConfirmed {
		event.SpotsReserved -= reg.SpotsCount
		if event.SpotsReserved < 0 {
			event.SpotsReserved = 0
		}
	}
	delete(f.regs, registrationID)
	return nil
}

func (f *fakeAllocRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reg, ok := f.regs[id]; ok {
		return reg, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAllocRepo) GetByConfirmationCode(ctx context.Context, code string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.regs {
		if reg.ConfirmationCode == code {
			return reg, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAllocRepo) GetByCancellationToken(ctx context.Context, token string) (*domain.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.regs {
		if reg.CancellationToken == token {
			return reg, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAllocRepo) ListByEventID(ctx context.Context, eventID string, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Registration, 0)
	for _, reg := range f.regs {
		if reg.EventID != eventID {
			continue
		}
		if filter.Status != "" && reg.Status != filter.Status {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(reg.PhoneNumber, filter.Search) &&
			!strings.Contains(reg.ConfirmationCode, filter.Search) {
			continue
		}
		out = append(out, reg)
	}
	return out, len(out), nil
}

type fakePaymentRepo struct {
	byID map[string]*domain.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: make(map[string]*domain.Payment)}
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) GetByGatewayOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	for _, p := range f.byID {
		if p.GatewayOrderID == orderID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) GetByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error) {
	for _, p := range f.byID {
		if p.RegistrationID == registrationID {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) MarkCompleted(ctx context.Context, paymentID string, gatewayCode int, transactionID, confirmCode string, amountPaid int64) (*domain.Payment, error) {
	p, ok := f.byID[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status != domain.PaymentProcessing {
		return nil, domain.ErrInvalidPaymentTransition
	}
	p.Status = domain.PaymentCompleted
	p.GatewayCode = &gatewayCode
	p.GatewayTransactionID = &transactionID
	p.GatewayConfirmCode = &confirmCode
	return p, nil
}

func (f *fakePaymentRepo) MarkFailed(ctx context.Context, paymentID string, gatewayCode int, transactionID string) (*domain.Payment, error) {
	p, ok := f.byID[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status != domain.PaymentProcessing {
		return nil, domain.ErrInvalidPaymentTransition
	}
	p.Status = domain.PaymentFailed
	p.GatewayCode = &gatewayCode
	p.GatewayTransactionID = &transactionID
	return p, nil
}

func (f *fakePaymentRepo) MarkRefunded(ctx context.Context, paymentID string, amount int64, reason string) (*domain.Payment, error) {
	p, ok := f.byID[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status != domain.PaymentCompleted {
		return nil, domain.ErrInvalidPaymentTransition
	}
	p.Status = domain.PaymentRefunded
	p.RefundAmount = &amount
	p.RefundReason = &reason
	return p, nil
}

type fakeGateway struct {
	err error
}

func (f *fakeGateway) CreatePaymentRequest(payment *domain.Payment, customerName, customerEmail, customerPhone, description string) (*domain.PaymentInstruction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.PaymentInstruction{
		OrderID:     payment.GatewayOrderID,
		RedirectURL: "https://pay.test/" + payment.GatewayOrderID,
		Params:      map[string]string{"Order": payment.GatewayOrderID},
	}, nil
}

type fakeCheckInRepo struct {
	byID   map[string]*domain.CheckIn
	nextID int
}

func newFakeCheckInRepo() *fakeCheckInRepo {
	return &fakeCheckInRepo{byID: make(map[string]*domain.CheckIn), nextID: 1}
}

func (f *fakeCheckInRepo) Create(ctx context.Context, c *domain.CheckIn) error {
	c.ID = fmt.Sprintf("chk-%d", f.nextID)
	f.nextID++
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCheckInRepo) GetByRegistrationID(ctx context.Context, registrationID string) (*domain.CheckIn, error) {
	var latest *domain.CheckIn
	for _, c := range f.byID {
		if c.RegistrationID == registrationID {
			if latest == nil || c.ID > latest.ID {
				latest = c
			}
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (f *fakeCheckInRepo) Undo(ctx context.Context, checkInID string, undoneBy, undoneReason *string) (*domain.CheckIn, error) {
	c, ok := f.byID[checkInID]
	if !ok || c.UndoneAt != nil {
		return nil, domain.ErrCheckInUndone
	}
	now := time.Now()
	c.UndoneAt = &now
	c.UndoneBy = undoneBy
	c.UndoneReason = undoneReason
	return c, nil
}

func (f *fakeCheckInRepo) Stats(ctx context.Context, eventID string) (*domain.CheckInStats, error) {
	stats := &domain.CheckInStats{}
	for _, c := range f.byID {
		if c.EventID == eventID && c.UndoneAt == nil {
			stats.CheckedInCount++
		}
	}
	return stats, nil
}

// fakeNotifier records every notification it was asked to send.
type fakeNotifier struct {
	confirmed  []*domain.RegistrationEmailData
	waitlisted []*domain.RegistrationEmailData
	promoted   []*domain.RegistrationEmailData
	overbooked []*domain.OverbookAlertData
	invoices   []*domain.PaymentEmailData
	completed  []*domain.PaymentEmailData
	err        error
}

func (f *fakeNotifier) RegistrationConfirmed(ctx context.Context, data *domain.RegistrationEmailData) error {
	f.confirmed = append(f.confirmed, data)
	return f.err
}

func (f *fakeNotifier) RegistrationWaitlisted(ctx context.Context, data *domain.RegistrationEmailData) error {
	f.waitlisted = append(f.waitlisted, data)
	return f.err
}

func (f *fakeNotifier) RegistrationPromoted(ctx context.Context, data *domain.RegistrationEmailData) error {
	f.promoted = append(f.promoted, data)
	return f.err
}

func (f *fakeNotifier) OverbookBlocked(ctx context.Context, data *domain.OverbookAlertData) error {
	f.overbooked = append(f.overbooked, data)
	return f.err
}

func (f *fakeNotifier) PaymentInvoice(ctx context.Context, data *domain.PaymentEmailData) error {
	f.invoices = append(f.invoices, data)
	return f.err
}

func (f *fakeNotifier) PaymentCompleted(ctx context.Context, data *domain.PaymentEmailData) error {
	f.completed = append(f.completed, data)
	return f.err
}
