package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/middlewares"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers     *handlers.Provider
	validator    *auth.Validator
	publicAPIKey string
	log          zerolog.Logger
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider, validator *auth.Validator, publicAPIKey string, log zerolog.Logger) *Routes {
	return &Routes{
		handlers:     handlerProvider,
		validator:    validator,
		publicAPIKey: publicAPIKey,
		log:          log,
	}
}

// Register attaches all v1 routes under /v1 prefix. Every v1 route needs an identity.
func (r *Routes) Register(engine *gin.Engine) {
	group := engine.Group("/v1",
		middlewares.APIKeyMiddleware(r.publicAPIKey),
		middlewares.AuthMiddleware(r.validator, r.log),
	)
	registerConversationRoutes(group, r.handlers.Conversation)
}
