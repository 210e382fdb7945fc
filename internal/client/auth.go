package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"resty.dev/v3"
)

// ErrNoCredentials is returned by SignIn when no token source is configured.
var ErrNoCredentials = errors.New("no credentials configured")

// Authenticator signs users in and out and reports identity changes.
type Authenticator interface {
	SignIn(ctx context.Context) error
	SignOut(ctx context.Context) error
	// Subscribe calls fn with the current identity (nil when signed out)
	// immediately and after every change.
	Subscribe(fn func(*Identity)) (unsubscribe func())
}

// TokenSource obtains an access token for the user.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource hands out a pre-issued token.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

// PasswordGrantSource runs an OIDC resource owner password grant, e.g.
// against a Keycloak realm token endpoint.
type PasswordGrantSource struct {
	client   *resty.Client
	tokenURL string
	clientID string
	username string
	password string
}

func NewPasswordGrantSource(client *resty.Client, tokenURL, clientID, username, password string) *PasswordGrantSource {
	return &PasswordGrantSource{
		client:   client,
		tokenURL: tokenURL,
		clientID: clientID,
		username: username,
		password: password,
	}
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p *PasswordGrantSource) Token(ctx context.Context) (string, error) {
	var result tokenResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": "password",
			"client_id":  p.clientID,
			"username":   p.username,
			"password":   p.password,
			"scope":      "openid profile email",
		}).
		SetResult(&result).
		Post(p.tokenURL)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if resp.IsError() {
		var failure tokenResponse
		if json.Unmarshal([]byte(resp.String()), &failure) == nil && failure.ErrorDescription != "" {
			return "", fmt.Errorf("token request rejected (%d): %s", resp.StatusCode(), failure.ErrorDescription)
		}
		return "", fmt.Errorf("token request rejected with status %d", resp.StatusCode())
	}
	if result.AccessToken == "" {
		return "", errors.New("token response carries no access_token")
	}
	return result.AccessToken, nil
}

// TokenAuthenticator derives the identity from the claims of the token its
// source returns. Signature verification is the server's job.
type TokenAuthenticator struct {
	source TokenSource
	log    zerolog.Logger

	mu          sync.Mutex
	current     *Identity
	subscribers map[int]func(*Identity)
	next        int
}

var _ Authenticator = (*TokenAuthenticator)(nil)

// NewTokenAuthenticator builds an authenticator; source may be nil for an
// anonymous-only client.
func NewTokenAuthenticator(source TokenSource, log zerolog.Logger) *TokenAuthenticator {
	return &TokenAuthenticator{
		source:      source,
		log:         log.With().Str("component", "auth").Logger(),
		subscribers: make(map[int]func(*Identity)),
	}
}

func (a *TokenAuthenticator) SignIn(ctx context.Context) error {
	if a.source == nil {
		return ErrNoCredentials
	}
	token, err := a.source.Token(ctx)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	identity, err := IdentityFromToken(token)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	a.log.Info().Str("subject", identity.Subject).Msg("signed in")
	a.set(identity)
	return nil
}

func (a *TokenAuthenticator) SignOut(context.Context) error {
	a.log.Info().Msg("signed out")
	a.set(nil)
	return nil
}

// Current returns the signed-in identity or nil.
func (a *TokenAuthenticator) Current() *Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *TokenAuthenticator) Subscribe(fn func(*Identity)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.next
	a.next++
	a.subscribers[id] = fn
	current := a.current
	a.mu.Unlock()

	fn(current)

	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}
}

func (a *TokenAuthenticator) set(identity *Identity) {
	a.mu.Lock()
	a.current = identity
	subscribers := make([]func(*Identity), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subscribers = append(subscribers, fn)
	}
	a.mu.Unlock()

	for _, fn := range subscribers {
		fn(identity)
	}
}

// IdentityFromToken reads the identity claims of a JWT without verifying it.
func IdentityFromToken(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, errors.New("token has no subject")
	}
	username, _ := claims["preferred_username"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return &Identity{
		Subject:  sub,
		Username: username,
		Email:    email,
		Name:     name,
		Token:    token,
	}, nil
}
