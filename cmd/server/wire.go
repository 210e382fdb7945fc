//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/auth"
	"github.com/janhq/support-chat/internal/infrastructure/logger"
	"github.com/janhq/support-chat/internal/infrastructure/observability"
	"github.com/janhq/support-chat/internal/interfaces/httpserver"
)

var conversationSet = wire.NewSet(
	newStorage,
	wire.FieldsOf(new(*storage), "repository", "readiness"),
	newConversationService,
)

// BuildApplication assembles the server with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		newLogger,
		newRelayService,
		newSanitizer,
		conversationSet,
		auth.NewValidator,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newConversationService(repo conversation.Repository, log zerolog.Logger, sanitizer *observability.Sanitizer) *conversation.Service {
	return conversation.NewService(repo, log, conversation.WithSanitizer(sanitizer))
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}
