package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
	v1 "github.com/janhq/support-chat/internal/interfaces/httpserver/routes/v1"
)

// Provider registers every API route on the engine.
type Provider struct {
	handlers *handlers.Provider
	v1       *v1.Routes
	log      zerolog.Logger
}

func NewProvider(handlerProvider *handlers.Provider, validator *auth.Validator, publicAPIKey string, log zerolog.Logger) *Provider {
	return &Provider{
		handlers: handlerProvider,
		v1:       v1.NewRoutes(handlerProvider, validator, publicAPIKey, log),
		log:      log,
	}
}

// Register attaches the relay endpoint and the versioned API.
func (p *Provider) Register(engine *gin.Engine) {
	registerChatRoutes(engine.Group("/api"), p.handlers.Relay, p.log)
	p.v1.Register(engine)
}
