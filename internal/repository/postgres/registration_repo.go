package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eventspots/internal/domain"
)

const registrationColumns = `id, event_id, status, spots_count, phone_number, email, data,
		confirmation_code, cancellation_token, payment_status, amount_paid,
		cancelled_at, cancellation_reason, cancelled_by, created_at, updated_at`

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{
		DB: db,
	}
}

func scanRegistration(row interface{ Scan(...any) error }) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var dataJSON []byte
	var cancelledAt sql.NullTime
	var cancellationReason, cancelledBy sql.NullString
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.Status, &reg.SpotsCount, &reg.PhoneNumber, &reg.Email, &dataJSON,
		&reg.ConfirmationCode, &reg.CancellationToken, &reg.PaymentStatus, &reg.AmountPaid,
		&cancelledAt, &cancellationReason, &cancelledBy, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &reg.Data); err != nil {
			return nil, fmt.Errorf("failed to decode registration data: %w", err)
		}
	}
	if reg.Data == nil {
		reg.Data = map[string]any{}
	}
	if cancelledAt.Valid {
		reg.CancelledAt = &cancelledAt.Time
	}
	if cancellationReason.Valid {
		reg.CancellationReason = &cancellationReason.String
	}
	if cancelledBy.Valid {
		reg.CancelledBy = &cancelledBy.String
	}
	return reg, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) GetByConfirmationCode(ctx context.Context, code string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE confirmation_code = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) GetByCancellationToken(ctx context.Context, token string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE cancellation_token = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) ListByEventID(ctx context.Context, eventID string, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	where := "WHERE event_id = $1"
	args := []interface{}{eventID}
	n := 2
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
		n++
	}
	if filter.Search != "" {
		where += fmt.Sprintf(" AND (phone_number ILIKE $%d OR confirmation_code ILIKE $%d)", n, n)
		args = append(args, "%"+filter.Search+"%")
		n++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM registrations ` + where
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+registrationColumns+`
		FROM registrations
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, n, n+1)
	args = append(args, params.Limit(), params.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	return regs, total, rows.Err()
}
