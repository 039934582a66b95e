package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"eventspots/internal/domain"
)

type adminRepository struct {
	DB *sql.DB
}

func NewAdminRepository(db *sql.DB) domain.AdminRepository {
	return &adminRepository{
		DB: db,
	}
}

func (r *adminRepository) Create(ctx context.Context, a *domain.Admin) error {
	query := `
		INSERT INTO admins (school_id, email, name, role, password_hash, password_salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		a.SchoolID, a.Email, a.Name, a.Role, a.PasswordHash, a.PasswordSalt, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err, constraintAdminEmail) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `
		SELECT id, school_id, email, name, role, password_hash, password_salt, created_at, updated_at
		FROM admins
		WHERE email = $1
	`
	a := &domain.Admin{}
	err := r.DB.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&a.ID, &a.SchoolID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.PasswordSalt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	query := `
		SELECT id, school_id, email, name, role, password_hash, password_salt, created_at, updated_at
		FROM admins
		WHERE id = $1
	`
	a := &domain.Admin{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.SchoolID, &a.Email, &a.Name, &a.Role, &a.PasswordHash, &a.PasswordSalt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, err
	}
	return a, nil
}
