package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventspots/internal/domain"
)

const checkInColumns = `id, registration_id, event_id, checked_in_by, checked_in_at,
		undone_at, undone_by, undone_reason`

type checkInRepository struct {
	DB *sql.DB
}

func NewCheckInRepository(db *sql.DB) domain.CheckInRepository {
	return &checkInRepository{
		DB: db,
	}
}

func scanCheckIn(row interface{ Scan(...any) error }) (*domain.CheckIn, error) {
	c := &domain.CheckIn{}
	var checkedInBy, undoneBy, undoneReason sql.NullString
	var undoneAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.RegistrationID, &c.EventID, &checkedInBy, &c.CheckedInAt,
		&undoneAt, &undoneBy, &undoneReason,
	)
	if err != nil {
		return nil, err
	}
	if checkedInBy.Valid {
		c.CheckedInBy = &checkedInBy.String
	}
	if undoneAt.Valid {
		c.UndoneAt = &undoneAt.Time
	}
	if undoneBy.Valid {
		c.UndoneBy = &undoneBy.String
	}
	if undoneReason.Valid {
		c.UndoneReason = &undoneReason.String
	}
	return c, nil
}

func (r *checkInRepository) Create(ctx context.Context, c *domain.CheckIn) error {
	query := `
		INSERT INTO check_ins (registration_id, event_id, checked_in_by, checked_in_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, checked_in_at
	`
	return r.DB.QueryRowContext(ctx, query, c.RegistrationID, c.EventID, c.CheckedInBy).
		Scan(&c.ID, &c.CheckedInAt)
}

// GetByRegistrationID returns the most recent check-in for the registration.
// Undone check-ins stay behind as audit rows, so the latest row decides
// whether the registration currently counts as checked in.
func (r *checkInRepository) GetByRegistrationID(ctx context.Context, registrationID string) (*domain.CheckIn, error) {
	query := `
		SELECT ` + checkInColumns + `
		FROM check_ins
		WHERE registration_id = $1
		ORDER BY checked_in_at DESC
		LIMIT 1
	`
	c, err := scanCheckIn(r.DB.QueryRowContext(ctx, query, registrationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *checkInRepository) Undo(ctx context.Context, checkInID string, undoneBy, undoneReason *string) (*domain.CheckIn, error) {
	query := `
		UPDATE check_ins
		SET undone_at = NOW(), undone_by = $1, undone_reason = $2
		WHERE id = $3 AND undone_at IS NULL
		RETURNING ` + checkInColumns
	c, err := scanCheckIn(r.DB.QueryRowContext(ctx, query, undoneBy, undoneReason, checkInID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCheckInUndone
		}
		return nil, err
	}
	return c, nil
}

func (r *checkInRepository) Stats(ctx context.Context, eventID string) (*domain.CheckInStats, error) {
	query := `
		SELECT
			COALESCE(SUM(r.spots_count), 0),
			COALESCE(SUM(r.spots_count) FILTER (WHERE c.id IS NOT NULL), 0),
			COUNT(c.id)
		FROM registrations r
		LEFT JOIN check_ins c ON c.registration_id = r.id AND c.undone_at IS NULL
		WHERE r.event_id = $1 AND r.status = $2
	`
	stats := &domain.CheckInStats{}
	err := r.DB.QueryRowContext(ctx, query, eventID, domain.RegistrationConfirmed).
		Scan(&stats.ConfirmedSpots, &stats.CheckedInSpots, &stats.CheckedInCount)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
