package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "policygate/pkg/domain"
	dErrors "policygate/pkg/domain-errors"
	"policygate/pkg/requestcontext"
)

func testIdentity() requestcontext.UserIdentity {
	return requestcontext.UserIdentity{
		UserID: id.NewUserID(),
		Email:  "alice@example.com",
		Name:   "Alice Example",
		Role:   id.RoleAdmin,
	}
}

func TestGenerateAndValidate_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "policygate", "policygate-clients", time.Hour)
	ident := testIdentity()

	token, err := svc.GenerateAccessToken(ident, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, ident.UserID.String(), claims.UserID)
	assert.Equal(t, ident.Email, claims.Email)
	assert.Equal(t, ident.Name, claims.Name)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, ident.Email, claims.Subject)
	assert.NotEmpty(t, claims.ID, "every token carries a unique jti")
}

func TestIdentity_MapsClaimsToTypedIdentity(t *testing.T) {
	svc := NewJWTService("test-secret", "policygate", "policygate-clients", time.Hour)
	ident := testIdentity()

	token, err := svc.GenerateAccessToken(ident, time.Now())
	require.NoError(t, err)

	got, err := svc.Identity(token)
	require.NoError(t, err)
	assert.Equal(t, ident, got)
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := NewJWTService("test-secret", "policygate", "policygate-clients", time.Hour)

	t.Run("expired token", func(t *testing.T) {
		expired := NewJWTService("test-secret", "policygate", "policygate-clients", -time.Minute)
		token, err := expired.GenerateAccessToken(testIdentity(), time.Now())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewJWTService("other-secret", "policygate", "policygate-clients", time.Hour)
		token, err := other.GenerateAccessToken(testIdentity(), time.Now())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService("test-secret", "someone-else", "policygate-clients", time.Hour)
		token, err := other.GenerateAccessToken(testIdentity(), time.Now())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewJWTService("test-secret", "policygate", "other-clients", time.Hour)
		token, err := other.GenerateAccessToken(testIdentity(), time.Now())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
