package handlers

import (
	"context"

	"github.com/janhq/support-chat/internal/domain"
	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/conversation"
)

// ConversationHandler reads and writes the caller's conversation document.
type ConversationHandler struct {
	service *conversation.Service
}

func NewConversationHandler(service *conversation.Service) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// Get returns the document of principal.
func (h *ConversationHandler) Get(ctx context.Context, principal domain.Principal) (*chat.Document, error) {
	return h.service.Get(ctx, principal.Subject)
}

// Put overwrites the document of principal.
func (h *ConversationHandler) Put(ctx context.Context, principal domain.Principal, messages chat.Conversation) error {
	return h.service.Save(ctx, principal.Subject, &chat.Document{Messages: messages})
}
