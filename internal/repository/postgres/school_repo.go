package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"eventspots/internal/domain"
)

type schoolRepository struct {
	DB *sql.DB
}

func NewSchoolRepository(db *sql.DB) domain.SchoolRepository {
	return &schoolRepository{
		DB: db,
	}
}

func (r *schoolRepository) Create(ctx context.Context, s *domain.School) error {
	query := `
		INSERT INTO schools (name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, s.Name, s.Slug, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err, constraintSchoolSlug) {
			return fmt.Errorf("%w: school slug already taken", domain.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (r *schoolRepository) GetByID(ctx context.Context, id string) (*domain.School, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM schools
		WHERE id = $1
	`
	s := &domain.School{}
	err := r.DB.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *schoolRepository) GetBySlug(ctx context.Context, slug string) (*domain.School, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM schools
		WHERE slug = $1
	`
	s := &domain.School{}
	err := r.DB.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(slug))).
		Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}
