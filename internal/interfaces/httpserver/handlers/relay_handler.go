package handlers

import (
	"context"
	"iter"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/relay"
)

// RelayHandler invokes the relay use case.
type RelayHandler struct {
	service *relay.Service
}

func NewRelayHandler(service *relay.Service) *RelayHandler {
	return &RelayHandler{service: service}
}

// Relay opens the completion for turns and returns its fragments.
func (h *RelayHandler) Relay(ctx context.Context, turns []chat.Turn) (iter.Seq2[string, error], error) {
	return h.service.Relay(ctx, chat.Conversation(turns))
}

// Model returns the completion model in use.
func (h *RelayHandler) Model() string {
	return h.service.Model()
}
