package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"eventspots/internal/domain"
)

const eventColumns = `id, school_id, title, slug, status, event_type, capacity, spots_reserved,
		max_spots_per_person, payment_required, payment_timing, price_amount, include_processing_fee,
		start_at, location, cancellation_deadline_hours, check_in_token, fields, created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(row interface{ Scan(...any) error }) (*domain.Event, error) {
	e := &domain.Event{}
	var locationNull sql.NullString
	var fieldsJSON []byte
	err := row.Scan(
		&e.ID, &e.SchoolID, &e.Title, &e.Slug, &e.Status, &e.EventType, &e.Capacity, &e.SpotsReserved,
		&e.MaxSpotsPerPerson, &e.PaymentRequired, &e.PaymentTiming, &e.PriceAmount, &e.IncludeProcessingFee,
		&e.StartAt, &locationNull, &e.CancellationDeadlineHours, &e.CheckInToken, &fieldsJSON,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if locationNull.Valid {
		e.Location = &locationNull.String
	}
	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode event fields: %w", err)
		}
	}
	if e.Fields == nil {
		e.Fields = []domain.FieldSpec{}
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode event fields: %w", err)
	}
	query := `
		INSERT INTO events (school_id, title, slug, status, event_type, capacity, max_spots_per_person,
			payment_required, payment_timing, price_amount, include_processing_fee, start_at, location,
			cancellation_deadline_hours, check_in_token, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	err = r.DB.QueryRowContext(ctx, query,
		e.SchoolID, e.Title, e.Slug, e.Status, e.EventType, e.Capacity, e.MaxSpotsPerPerson,
		e.PaymentRequired, e.PaymentTiming, e.PriceAmount, e.IncludeProcessingFee, e.StartAt, e.Location,
		e.CancellationDeadlineHours, e.CheckInToken, fieldsJSON, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err, constraintEventSlug) {
			return fmt.Errorf("%w: event slug already taken", domain.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) GetBySlug(ctx context.Context, schoolID, slug string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE school_id = $1 AND slug = $2`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, schoolID, strings.ToLower(strings.TrimSpace(slug))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListBySchoolID(ctx context.Context, schoolID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE school_id = $1 ORDER BY start_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, id string, update domain.EventUpdate) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	n := 1
	if update.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", n))
		args = append(args, *update.Title)
		n++
	}
	if update.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", n))
		args = append(args, *update.Status)
		n++
	}
	if update.Capacity != nil {
		setClauses = append(setClauses, fmt.Sprintf("capacity = $%d", n))
		args = append(args, *update.Capacity)
		n++
	}
	if update.MaxSpotsPerPerson != nil {
		setClauses = append(setClauses, fmt.Sprintf("max_spots_per_person = $%d", n))
		args = append(args, *update.MaxSpotsPerPerson)
		n++
	}
	if update.StartAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("start_at = $%d", n))
		args = append(args, *update.StartAt)
		n++
	}
	if update.Location != nil {
		setClauses = append(setClauses, fmt.Sprintf("location = $%d", n))
		args = append(args, *update.Location)
		n++
	}
	if update.CancellationDeadlineHours != nil {
		setClauses = append(setClauses, fmt.Sprintf("cancellation_deadline_hours = $%d", n))
		args = append(args, *update.CancellationDeadlineHours)
		n++
	}
	if update.Fields != nil {
		fieldsJSON, err := json.Marshal(update.Fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode event fields: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("fields = $%d", n))
		args = append(args, fieldsJSON)
		n++
	}
	if n == 1 {
		// No fields to update; just fetch current row
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING `+eventColumns, strings.Join(setClauses, ", "), n)
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
