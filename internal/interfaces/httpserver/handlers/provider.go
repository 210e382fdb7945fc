package handlers

import (
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/domain/relay"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Relay        *RelayHandler
	Conversation *ConversationHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(relayService *relay.Service, conversationService *conversation.Service) *Provider {
	return &Provider{
		Relay:        NewRelayHandler(relayService),
		Conversation: NewConversationHandler(conversationService),
	}
}
