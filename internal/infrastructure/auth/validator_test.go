package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/config"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                "user-123",
		"iss":                "https://id.example.com/realms/support",
		"aud":                "support-chat",
		"preferred_username": "ada",
		"email":              "ada@example.com",
		"name":               "Ada Lovelace",
		"exp":                time.Now().Add(time.Hour).Unix(),
	}
}

func TestStaticValidator(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	v := NewStaticValidator(func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, "https://id.example.com/realms/support", "support-chat", zerolog.Nop())

	t.Run("valid", func(t *testing.T) {
		p, err := v.Validate(context.Background(), signToken(t, key, baseClaims()))
		require.NoError(t, err)
		assert.Equal(t, "user-123", p.Subject)
		assert.Equal(t, "ada", p.Username)
		assert.Equal(t, "ada@example.com", p.Email)
		assert.Equal(t, "Ada Lovelace", p.DisplayName())
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := v.Validate(context.Background(), signToken(t, other, baseClaims()))
		assert.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := baseClaims()
		claims["aud"] = "someone-else"
		_, err := v.Validate(context.Background(), signToken(t, key, claims))
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := baseClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := v.Validate(context.Background(), signToken(t, key, claims))
		assert.Error(t, err)
	})

	t.Run("hs256 rejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims()).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Validate(context.Background(), token)
		assert.Error(t, err)
	})
}

func TestUnverifiedValidator(t *testing.T) {
	v, err := NewValidator(context.Background(), &config.Config{AuthEnabled: false}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, v.Verifying())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "dev-user", "name": "Dev"}).SignedString([]byte("anything"))
	require.NoError(t, err)

	p, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "dev-user", p.Subject)
	assert.Equal(t, "Dev", p.Name)

	_, err = v.Validate(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}

func TestPrincipalFromClaimsRequiresSubject(t *testing.T) {
	_, err := PrincipalFromClaims(jwt.MapClaims{"email": "x@example.com"})
	assert.Error(t, err)
}
