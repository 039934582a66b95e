package auth

import (
	"testing"
	"time"

	"eventspots/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokens_IssueAndVerify(t *testing.T) {
	tokens := NewJWTTokens("test-secret")

	token, err := tokens.Issue(domain.TokenClaims{
		AdminID:  "admin-123",
		SchoolID: "school-1",
		Role:     domain.RoleAdmin,
	}, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-123", claims.AdminID)
	assert.Equal(t, "school-1", claims.SchoolID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestJWTTokens_Verify_WrongSecret(t *testing.T) {
	issued, err := NewJWTTokens("secret-a").Issue(domain.TokenClaims{AdminID: "admin-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTTokens("secret-b").Verify(issued)
	require.Error(t, err)
}

func TestJWTTokens_Verify_Expired(t *testing.T) {
	tokens := NewJWTTokens("test-secret")
	issued, err := tokens.Issue(domain.TokenClaims{AdminID: "admin-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = tokens.Verify(issued)
	require.Error(t, err)
}

func TestJWTTokens_Verify_WrongAlgorithm(t *testing.T) {
	// A token signed with "none" must be rejected by the HMAC method check.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "admin-1"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTTokens("test-secret").Verify(raw)
	require.Error(t, err)
}
