package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "eventspots/internal/delivery/http/helpers"
	"eventspots/internal/domain"
)

type contextKey string

const claimsKey contextKey = "adminClaims"

// SetClaims returns a context with the admin token claims set. Used by auth middleware.
func SetClaims(ctx context.Context, claims *domain.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the authenticated admin's token claims, if present.
func ClaimsFromContext(ctx context.Context) (*domain.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*domain.TokenClaims)
	return claims, ok
}

// TenantFromContext returns the tenant scope derived from the token claims.
func TenantFromContext(ctx context.Context) (domain.Tenant, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return domain.Tenant{}, false
	}
	return domain.Tenant{
		SchoolID:   claims.SchoolID,
		SuperAdmin: claims.Role == domain.RoleSuperAdmin,
	}, true
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the
// admin claims in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			r = r.WithContext(SetClaims(r.Context(), claims))
			next(w, r)
		}
	}
}
