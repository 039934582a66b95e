package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventspots/internal/domain"
)

const paymentColumns = `id, registration_id, event_id, school_id, gateway_order_id, status, amount,
		gateway_code, gateway_transaction_id, gateway_confirm_code, completed_at,
		refunded_at, refund_amount, refund_reason, created_at, updated_at`

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{
		DB: db,
	}
}

func scanPayment(row interface{ Scan(...any) error }) (*domain.Payment, error) {
	p := &domain.Payment{}
	var gatewayCode sql.NullInt64
	var transactionID, confirmCode, refundReason sql.NullString
	var completedAt, refundedAt sql.NullTime
	var refundAmount sql.NullInt64
	err := row.Scan(
		&p.ID, &p.RegistrationID, &p.EventID, &p.SchoolID, &p.GatewayOrderID, &p.Status, &p.Amount,
		&gatewayCode, &transactionID, &confirmCode, &completedAt,
		&refundedAt, &refundAmount, &refundReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if gatewayCode.Valid {
		code := int(gatewayCode.Int64)
		p.GatewayCode = &code
	}
	if transactionID.Valid {
		p.GatewayTransactionID = &transactionID.String
	}
	if confirmCode.Valid {
		p.GatewayConfirmCode = &confirmCode.String
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	if refundedAt.Valid {
		p.RefundedAt = &refundedAt.Time
	}
	if refundAmount.Valid {
		p.RefundAmount = &refundAmount.Int64
	}
	if refundReason.Valid {
		p.RefundReason = &refundReason.String
	}
	return p, nil
}

func (r *paymentRepository) getBy(ctx context.Context, where string, arg any) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + where
	p, err := scanPayment(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *paymentRepository) GetByGatewayOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.getBy(ctx, "gateway_order_id = $1", orderID)
}

func (r *paymentRepository) GetByRegistrationID(ctx context.Context, registrationID string) (*domain.Payment, error) {
	return r.getBy(ctx, "registration_id = $1", registrationID)
}

func (r *paymentRepository) MarkCompleted(ctx context.Context, paymentID string, gatewayCode int, transactionID, confirmCode string, amountPaid int64) (*domain.Payment, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The status guard in the WHERE clause makes the transition idempotent
	// under concurrent callback deliveries: only one wins the update.
	p, err := scanPayment(tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $1, gateway_code = $2, gateway_transaction_id = $3, gateway_confirm_code = $4,
			completed_at = NOW(), updated_at = NOW()
		WHERE id = $5 AND status = $6
		RETURNING `+paymentColumns,
		domain.PaymentCompleted, gatewayCode, transactionID, confirmCode,
		paymentID, domain.PaymentProcessing))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvalidPaymentTransition
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE registrations SET payment_status = $1, amount_paid = $2, updated_at = NOW()
		WHERE id = $3
	`, domain.PaymentStatusCompleted, amountPaid, p.RegistrationID)
	if err != nil {
		return nil, err
	}
	return p, tx.Commit()
}

func (r *paymentRepository) MarkFailed(ctx context.Context, paymentID string, gatewayCode int, transactionID string) (*domain.Payment, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPayment(tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $1, gateway_code = $2, gateway_transaction_id = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING `+paymentColumns,
		domain.PaymentFailed, gatewayCode, transactionID,
		paymentID, domain.PaymentProcessing))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvalidPaymentTransition
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE registrations SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`, domain.PaymentStatusFailed, p.RegistrationID)
	if err != nil {
		return nil, err
	}
	return p, tx.Commit()
}

func (r *paymentRepository) MarkRefunded(ctx context.Context, paymentID string, amount int64, reason string) (*domain.Payment, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPayment(tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = $1, refunded_at = NOW(), refund_amount = $2, refund_reason = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING `+paymentColumns,
		domain.PaymentRefunded, amount, reason,
		paymentID, domain.PaymentCompleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvalidPaymentTransition
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE registrations SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`, domain.PaymentStatusRefunded, p.RegistrationID)
	if err != nil {
		return nil, err
	}
	return p, tx.Commit()
}
