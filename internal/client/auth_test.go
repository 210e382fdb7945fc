package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/utils/httpclients"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                subject,
		"preferred_username": subject,
		"email":              subject + "@example.com",
		"name":               "Alice Example",
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestIdentityFromToken(t *testing.T) {
	raw := signedToken(t, "alice")
	identity, err := IdentityFromToken(raw)
	require.NoError(t, err)

	assert.Equal(t, "alice", identity.Subject)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "Alice Example", identity.DisplayName())
	assert.Equal(t, raw, identity.Token)
}

func TestIdentityFromTokenRequiresSubject(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x@example.com"}).
		SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = IdentityFromToken(raw)
	assert.Error(t, err)

	_, err = IdentityFromToken("not-a-jwt")
	assert.Error(t, err)
}

func TestDisplayNameFallbacks(t *testing.T) {
	assert.Equal(t, "bob", Identity{Subject: "s", Username: "bob"}.DisplayName())
	assert.Equal(t, "b@x.io", Identity{Subject: "s", Email: "b@x.io"}.DisplayName())
	assert.Equal(t, "s", Identity{Subject: "s"}.DisplayName())
}

func TestTokenAuthenticatorNotifiesSubscribers(t *testing.T) {
	auth := NewTokenAuthenticator(StaticTokenSource(signedToken(t, "alice")), testLogger())

	var seen []*Identity
	unsubscribe := auth.Subscribe(func(identity *Identity) { seen = append(seen, identity) })

	require.NoError(t, auth.SignIn(context.Background()))
	require.NoError(t, auth.SignOut(context.Background()))
	unsubscribe()
	require.NoError(t, auth.SignIn(context.Background()))

	require.Len(t, seen, 3)
	assert.Nil(t, seen[0])
	assert.Equal(t, "alice", seen[1].Subject)
	assert.Nil(t, seen[2])
	assert.Equal(t, "alice", auth.Current().Subject)
}

func TestTokenAuthenticatorWithoutSource(t *testing.T) {
	auth := NewTokenAuthenticator(nil, testLogger())
	assert.ErrorIs(t, auth.SignIn(context.Background()), ErrNoCredentials)
	assert.Nil(t, auth.Current())

	empty := NewTokenAuthenticator(StaticTokenSource(""), testLogger())
	assert.ErrorIs(t, empty.SignIn(context.Background()), ErrNoCredentials)
}

func TestPasswordGrantSource(t *testing.T) {
	token := signedToken(t, "alice")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "support-chat", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid user credentials",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token, "token_type": "Bearer"})
	}))
	defer server.Close()

	client := httpclients.NewClient("test-token", zerolog.Nop())

	got, err := NewPasswordGrantSource(client, server.URL, "support-chat", "alice", "secret").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, got)

	_, err = NewPasswordGrantSource(client, server.URL, "support-chat", "alice", "wrong").Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid user credentials")
}
