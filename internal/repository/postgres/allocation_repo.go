package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eventspots/internal/domain"
)

// allocationRepository owns every write that touches the capacity ledger.
// Each method runs one transaction that locks the event row first, so the
// ledger invariant (spots_reserved equals the sum of confirmed spots) holds
// under concurrent registrations, promotions, and cancellations.
type allocationRepository struct {
	DB *sql.DB
}

func NewAllocationRepository(db *sql.DB) domain.AllocationRepository {
	return &allocationRepository{
		DB: db,
	}
}

// lockedEvent is the slice of the event row read under FOR UPDATE.
type lockedEvent struct {
	Status        string
	Capacity      int
	SpotsReserved int
}

func lockEvent(ctx context.Context, tx *sql.Tx, eventID string) (*lockedEvent, error) {
	query := `
		SELECT status, capacity, spots_reserved
		FROM events
		WHERE id = $1
		FOR UPDATE
	`
	e := &lockedEvent{}
	err := tx.QueryRowContext(ctx, query, eventID).Scan(&e.Status, &e.Capacity, &e.SpotsReserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// lockRegistration reads the registration row under FOR UPDATE, scoped to the
// event so a registration ID from another event resolves to ErrNotFound.
func lockRegistration(ctx context.Context, tx *sql.Tx, eventID, registrationID string) (status string, spots int, err error) {
	query := `
		SELECT status, spots_count
		FROM registrations
		WHERE id = $1 AND event_id = $2
		FOR UPDATE
	`
	err = tx.QueryRowContext(ctx, query, registrationID, eventID).Scan(&status, &spots)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, domain.ErrNotFound
	}
	return status, spots, err
}

func (r *allocationRepository) Allocate(ctx context.Context, reg *domain.Registration, pay *domain.Payment, force bool) error {
	return mapRetryable(r.allocate(ctx, reg, pay, force))
}

func (r *allocationRepository) allocate(ctx context.Context, reg *domain.Registration, pay *domain.Payment, force bool) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	event, err := lockEvent(ctx, tx, reg.EventID)
	if err != nil {
		return err
	}
	if !force && event.Status != domain.EventStatusOpen {
		return domain.ErrEventClosed
	}

	// Decide CONFIRMED vs WAITLIST against the capacity read under lock.
	// Force confirms unconditionally; the ledger may exceed capacity.
	if force || event.SpotsReserved+reg.SpotsCount <= event.Capacity {
		reg.Status = domain.RegistrationConfirmed
	} else {
		reg.Status = domain.RegistrationWaitlist
		// Waitlisted sign-ups pay on promotion, not upfront.
		if pay != nil {
			pay = nil
			reg.PaymentStatus = domain.PaymentStatusPending
		}
	}

	if reg.Status == domain.RegistrationConfirmed {
		_, err = tx.ExecContext(ctx, `
			UPDATE events SET spots_reserved = spots_reserved + $1, updated_at = NOW()
			WHERE id = $2
		`, reg.SpotsCount, reg.EventID)
		if err != nil {
			return err
		}
	}

	dataJSON, err := json.Marshal(reg.Data)
	if err != nil {
		return fmt.Errorf("failed to encode registration data: %w", err)
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (event_id, status, spots_count, phone_number, email, data,
			confirmation_code, cancellation_token, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, reg.EventID, reg.Status, reg.SpotsCount, reg.PhoneNumber, reg.Email, dataJSON,
		reg.ConfirmationCode, reg.CancellationToken, reg.PaymentStatus,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, constraintActivePhone) {
			return domain.ErrDuplicateRegistration
		}
		if isUniqueViolation(err, constraintConfirmationCode) {
			return domain.ErrCodeCollision
		}
		return err
	}

	if pay != nil {
		pay.RegistrationID = reg.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO payments (registration_id, event_id, school_id, gateway_order_id, status, amount, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, created_at, updated_at
		`, pay.RegistrationID, pay.EventID, pay.SchoolID, pay.GatewayOrderID, pay.Status, pay.Amount,
		).Scan(&pay.ID, &pay.CreatedAt, &pay.UpdatedAt)
		if err != nil {
			return mapUniqueViolation(err)
		}
	}

	return tx.Commit()
}

func (r *allocationRepository) Promote(ctx context.Context, eventID, registrationID string) (*domain.Registration, error) {
	reg, err := r.promote(ctx, eventID, registrationID)
	return reg, mapRetryable(err)
}

func (r *allocationRepository) promote(ctx context.Context, eventID, registrationID string) (*domain.Registration, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockEvent(ctx, tx, eventID); err != nil {
		return nil, err
	}
	status, spots, err := lockRegistration(ctx, tx, eventID, registrationID)
	if err != nil {
		return nil, err
	}
	if status != domain.RegistrationWaitlist {
		return nil, domain.ErrNotWaitlisted
	}

	// Capacity is re-validated at promotion time. The guard rejects the
	// increment when the spots no longer fit, even though the row is locked,
	// so a stale waitlist entry can never push the ledger past capacity.
	result, err := tx.ExecContext(ctx, `
		UPDATE events SET spots_reserved = spots_reserved + $1, updated_at = NOW()
		WHERE id = $2 AND spots_reserved + $1 <= capacity
	`, spots, eventID)
	if err != nil {
		return nil, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, domain.ErrWouldOverbook
	}

	reg, err := scanRegistration(tx.QueryRowContext(ctx, `
		UPDATE registrations SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+registrationColumns, domain.RegistrationConfirmed, registrationID))
	if err != nil {
		return nil, err
	}
	return reg, tx.Commit()
}

func (r *allocationRepository) Cancel(ctx context.Context, eventID, registrationID string, reason *string, cancelledBy string) (*domain.Registration, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockEvent(ctx, tx, eventID); err != nil {
		return nil, err
	}
	status, spots, err := lockRegistration(ctx, tx, eventID, registrationID)
	if err != nil {
		return nil, err
	}
	if status == domain.RegistrationCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	// Waitlisted registrations never held spots, so only a confirmed
	// cancellation releases capacity.
	if status == domain.RegistrationConfirmed {
		_, err = tx.ExecContext(ctx, `
			UPDATE events SET spots_reserved = GREATEST(0, spots_reserved - $1), updated_at = NOW()
			WHERE id = $2
		`, spots, eventID)
		if err != nil {
			return nil, err
		}
	}

	reg, err := scanRegistration(tx.QueryRowContext(ctx, `
		UPDATE registrations
		SET status = $1, cancelled_at = NOW(), cancellation_reason = $2, cancelled_by = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+registrationColumns, domain.RegistrationCancelled, reason, cancelledBy, registrationID))
	if err != nil {
		return nil, err
	}
	return reg, tx.Commit()
}

func (r *allocationRepository) UpdateSpots(ctx context.Context, eventID, registrationID string, newSpots int) (*domain.Registration, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockEvent(ctx, tx, eventID); err != nil {
		return nil, err
	}
	status, spots, err := lockRegistration(ctx, tx, eventID, registrationID)
	if err != nil {
		return nil, err
	}
	if status == domain.RegistrationCancelled {
		return nil, domain.ErrAlreadyCancelled
	}

	if status == domain.RegistrationConfirmed && newSpots != spots {
		delta := newSpots - spots
		if delta > 0 {
			result, err := tx.ExecContext(ctx, `
				UPDATE events SET spots_reserved = spots_reserved + $1, updated_at = NOW()
				WHERE id = $2 AND spots_reserved + $1 <= capacity
			`, delta, eventID)
			if err != nil {
				return nil, err
			}
			if rows, _ := result.RowsAffected(); rows == 0 {
				return nil, domain.ErrWouldExceedCapacity
			}
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE events SET spots_reserved = GREATEST(0, spots_reserved + $1), updated_at = NOW()
				WHERE id = $2
			`, delta, eventID)
			if err != nil {
				return nil, err
			}
		}
	}

	reg, err := scanRegistration(tx.QueryRowContext(ctx, `
		UPDATE registrations SET spots_count = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+registrationColumns, newSpots, registrationID))
	if err != nil {
		return nil, err
	}
	return reg, tx.Commit()
}

func (r *allocationRepository) Delete(ctx context.Context, eventID, registrationID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockEvent(ctx, tx, eventID); err != nil {
		return err
	}
	status, spots, err := lockRegistration(ctx, tx, eventID, registrationID)
	if err != nil {
		return err
	}

	if status == domain.RegistrationConfirmed {
		_, err = tx.ExecContext(ctx, `
			UPDATE events SET spots_reserved = GREATEST(0, spots_reserved - $1), updated_at = NOW()
			WHERE id = $2
		`, spots, eventID)
		if err != nil {
			return err
		}
	}

	// Payments cascade on delete.
	if _, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID); err != nil {
		return err
	}
	return tx.Commit()
}
