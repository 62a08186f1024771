package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	digest, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", digest)

	assert.True(t, VerifyPassword("s3cret-password", digest))
	assert.False(t, VerifyPassword("wrong-password", digest))
	assert.False(t, VerifyPassword("s3cret-password", "not-a-hash"))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Hour)

	token, err := issuer.Issue(42, "customer", "")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.ActorID)
	assert.Equal(t, "customer", claims.ActorType)
	assert.Empty(t, claims.Role)
}

func TestTokenWrongKey(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Hour)
	other := NewTokenIssuer("different-key", time.Hour)

	token, err := issuer.Issue(1, "user", "admin")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", -time.Minute)

	token, err := issuer.Issue(1, "customer", "")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.Error(t, err)
}
