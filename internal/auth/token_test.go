package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef-test-secret"

func TestMintAndValidate(t *testing.T) {
	t.Parallel()

	iss, err := NewIssuer(secret, time.Hour)
	require.NoError(t, err)

	raw, err := iss.Mint("alice", "Alice")
	require.NoError(t, err)

	claims, err := iss.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Owner())
	assert.Equal(t, "Alice", claims.Name)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	iss, err := NewIssuer(secret, time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("another-secret-of-enough-length", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Mint("alice", "")
	require.NoError(t, err)
	_, err = iss.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewIssuer(secret, time.Minute)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Mint("alice", "")
	require.NoError(t, err)
	_, err = iss.ValidateToken(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice", Issuer: issuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = iss.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer("short", time.Hour)
	assert.Error(t, err)

	iss, err := NewIssuer(secret, time.Hour)
	require.NoError(t, err)
	_, err = iss.Mint("", "")
	assert.Error(t, err)
}
