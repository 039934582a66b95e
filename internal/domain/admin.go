package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for admin account operations.
var (
	ErrAdminNotFound   = errors.New("admin not found")
	ErrDuplicateEmail  = errors.New("email already in use")
	ErrBadCredentials  = errors.New("invalid email or password")
)

// Admin roles.
const (
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// Admin represents a school administrator account.
// swagger:model Admin
type Admin struct {
	ID           string    `json:"id"`
	SchoolID     string    `json:"school_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	PasswordSalt string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Tenant returns the tenant scope for this admin.
func (a *Admin) Tenant() Tenant {
	return Tenant{SchoolID: a.SchoolID, SuperAdmin: a.Role == RoleSuperAdmin}
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenClaims is what an admin session token carries.
type TokenClaims struct {
	AdminID  string
	SchoolID string
	Role     string
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated admin.
type TokenIssuer interface {
	Issue(claims TokenClaims, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the claims it carries.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// AdminRepository defines the interface for admin account storage.
type AdminRepository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	GetByID(ctx context.Context, id string) (*Admin, error)
}

// AuthService defines signup and login for school administrators.
type AuthService interface {
	// SignUp creates a school and its first admin account, returning a
	// session token for the new admin.
	SignUp(ctx context.Context, schoolName, email, name, password string) (token string, admin *Admin, err error)
	Login(ctx context.Context, email, password string) (token string, admin *Admin, err error)
	GetAdmin(ctx context.Context, id string) (*Admin, error)
}
