package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventspots/internal/domain"
)

const minPasswordLen = 8

type authService struct {
	adminRepo      domain.AdminRepository
	schoolRepo     domain.SchoolRepository
	hasher         domain.PasswordHasher
	tokens         domain.TokenIssuer
	tokenExpiry    time.Duration
	contextTimeout time.Duration
}

func NewAuthService(
	adminRepo domain.AdminRepository,
	schoolRepo domain.SchoolRepository,
	hasher domain.PasswordHasher,
	tokens domain.TokenIssuer,
	tokenExpiry time.Duration,
	timeout time.Duration,
) domain.AuthService {
	return &authService{
		adminRepo:      adminRepo,
		schoolRepo:     schoolRepo,
		hasher:         hasher,
		tokens:         tokens,
		tokenExpiry:    tokenExpiry,
		contextTimeout: timeout,
	}
}

func (s *authService) SignUp(ctx context.Context, schoolName, email, name, password string) (string, *domain.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegexp.MatchString(email) {
		return "", nil, fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLen {
		return "", nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	schoolName = strings.TrimSpace(schoolName)
	if schoolName == "" {
		return "", nil, fmt.Errorf("%w: school name is required", domain.ErrInvalidInput)
	}
	slug := slugify(schoolName)
	if slug == "" {
		return "", nil, fmt.Errorf("%w: school name yields an empty slug", domain.ErrInvalidInput)
	}

	now := time.Now()
	school := domain.NewSchool(schoolName, slug, now, now)
	if err := s.schoolRepo.Create(ctx, school); err != nil {
		return "", nil, fmt.Errorf("failed to create school: %w", err)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &domain.Admin{
		SchoolID:     school.ID,
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
		PasswordSalt: salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return "", nil, fmt.Errorf("failed to create admin: %w", err)
	}

	token, err := s.issueToken(admin)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	admin, err := s.adminRepo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return "", nil, domain.ErrBadCredentials
	}
	if err := s.hasher.Compare(admin.PasswordHash, admin.PasswordSalt, password); err != nil {
		return "", nil, domain.ErrBadCredentials
	}

	token, err := s.issueToken(admin)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

func (s *authService) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.adminRepo.GetByID(ctx, id)
}

func (s *authService) issueToken(admin *domain.Admin) (string, error) {
	token, err := s.tokens.Issue(domain.TokenClaims{
		AdminID:  admin.ID,
		SchoolID: admin.SchoolID,
		Role:     admin.Role,
	}, s.tokenExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}
