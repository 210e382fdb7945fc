package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/domain"
)

var validMethods = []string{"RS256", "RS384", "RS512"}

// Validator turns bearer tokens into principals. With auth disabled the
// token's claims are trusted without signature verification.
type Validator struct {
	issuer   string
	audience string
	verify   bool
	keyfunc  jwt.Keyfunc
	jwks     *keyfunc.JWKS
	log      zerolog.Logger
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		log.Warn().Msg("AUTH_ENABLED=false: bearer tokens are NOT verified")
		return &Validator{log: log}, nil
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	return &Validator{
		issuer:   cfg.AuthIssuer,
		audience: cfg.AuthAudience,
		verify:   true,
		keyfunc:  jwks.Keyfunc,
		jwks:     jwks,
		log:      log,
	}, nil
}

// NewStaticValidator verifies tokens with a fixed key function.
func NewStaticValidator(kf jwt.Keyfunc, issuer, audience string, log zerolog.Logger) *Validator {
	return &Validator{
		issuer:   issuer,
		audience: audience,
		verify:   true,
		keyfunc:  kf,
		log:      log,
	}
}

// Verifying reports whether signatures are checked.
func (v *Validator) Verifying() bool {
	return v.verify
}

// Validate parses rawToken and returns the principal it identifies.
func (v *Validator) Validate(_ context.Context, rawToken string) (domain.Principal, error) {
	claims := jwt.MapClaims{}
	if v.verify {
		opts := []jwt.ParserOption{jwt.WithValidMethods(validMethods)}
		if v.issuer != "" {
			opts = append(opts, jwt.WithIssuer(v.issuer))
		}
		if v.audience != "" {
			opts = append(opts, jwt.WithAudience(v.audience))
		}
		token, err := jwt.NewParser(opts...).ParseWithClaims(rawToken, claims, v.keyfunc)
		if err != nil {
			return domain.Principal{}, fmt.Errorf("parse token: %w", err)
		}
		if !token.Valid {
			return domain.Principal{}, errors.New("invalid token")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
			return domain.Principal{}, fmt.Errorf("parse token: %w", err)
		}
	}

	return PrincipalFromClaims(claims)
}

// PrincipalFromClaims maps standard OIDC claims onto a principal. The
// subject claim is required.
func PrincipalFromClaims(claims jwt.MapClaims) (domain.Principal, error) {
	sub, _ := claims.GetSubject()
	if sub == "" {
		return domain.Principal{}, errors.New("sub claim missing")
	}
	iss, _ := claims.GetIssuer()
	return domain.Principal{
		Subject:  sub,
		Issuer:   iss,
		Username: claimString(claims["preferred_username"]),
		Email:    claimString(claims["email"]),
		Name:     claimString(claims["name"]),
	}, nil
}

// Close stops background JWKS refreshes.
func (v *Validator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func claimString(value any) string {
	if str, ok := value.(string); ok {
		return str
	}
	return ""
}
