package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateJWT("owner-42", secret, time.Hour)
	require.NoError(t, err)

	owner, err := ValidateToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "owner-42", owner)
}

func TestGenerateJWT_EmptyOwner(t *testing.T) {
	_, err := GenerateJWT("", secret, time.Hour)
	assert.ErrorIs(t, err, ErrEmptyOwner)
}

func TestValidateToken_Rejects(t *testing.T) {
	expired, err := GenerateJWT("owner-42", secret, -time.Minute)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "owner-42"}).SignedString(secret)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)

	good, err := GenerateJWT("owner-42", secret, time.Hour)
	require.NoError(t, err)

	tests := map[string]struct {
		token  string
		secret []byte
	}{
		"expired":      {expired, secret},
		"no expiry":    {noExpiry, secret},
		"no subject":   {noSubject, secret},
		"wrong secret": {good, []byte("other")},
		"garbage":      {"not.a.token", secret},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateToken(tt.token, tt.secret)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}
