package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return New("access-secret", "refresh-secret", 15, 7)
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService()

	pair, err := svc.Issue(42, "user@example.com", "USER")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	t.Run("access token decodes to the principal", func(t *testing.T) {
		claims, err := svc.VerifyAccess(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), claims.ID)
		assert.Equal(t, "42", claims.Subject)
		assert.Equal(t, "user@example.com", claims.Email)
		assert.Equal(t, "USER", claims.Role)
		assert.NotEmpty(t, claims.RegisteredClaims.ID)
	})

	t.Run("refresh token decodes to the principal", func(t *testing.T) {
		claims, err := svc.VerifyRefresh(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), claims.ID)
		assert.Equal(t, "USER", claims.Role)
	})
}

func TestSecretsAreIndependent(t *testing.T) {
	svc := newTestService()
	pair, err := svc.Issue(1, "a@b.c", "USER")
	require.NoError(t, err)

	t.Run("access token rejected by refresh verifier", func(t *testing.T) {
		_, err := svc.VerifyRefresh(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh token rejected by access verifier", func(t *testing.T) {
		_, err := svc.VerifyAccess(pair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not a jwt", "hello world"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyAccess(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	svc := newTestService()
	other := New("other-secret", "refresh-secret", 15, 7)

	pair, err := other.Issue(7, "x@y.z", "ADMIN")
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	// Negative TTL produces a token that is already past its expiry.
	svc := New("access-secret", "refresh-secret", -1, 7)

	pair, err := svc.Issue(9, "old@example.com", "USER")
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpired)
}
