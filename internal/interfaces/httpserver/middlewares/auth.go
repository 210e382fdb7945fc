package middlewares

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain"
	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/responses"
)

const (
	principalContextKey = "principal"
	apiKeyHeader        = "X-API-Key"
)

// AuthMiddleware requires a bearer token and stores the resulting principal.
func AuthMiddleware(validator *auth.Validator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			logger.Warn().
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("unauthenticated request")
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized, errors.New("authentication required"), "unauthorized")
			return
		}

		principal, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Warn().Err(err).Msg("jwt validation failed")
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized, err, "unauthorized")
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// APIKeyMiddleware requires X-API-Key to match key. An empty key disables the check.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := c.GetHeader(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized, errors.New("invalid api key"), "invalid api key")
			return
		}
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := val.(domain.Principal)
	return principal, ok
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
