package conversationrepo

import (
	"context"
	"sync"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
)

// MemoryRepository is a process-local store for development and tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]chat.Conversation
}

var _ conversation.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]chat.Conversation)}
}

func (repo *MemoryRepository) Find(_ context.Context, identity string) (*chat.Document, error) {
	repo.mu.RLock()
	messages, ok := repo.docs[identity]
	repo.mu.RUnlock()

	metrics.RecordDocstoreOp("memory", "find", nil)
	if !ok {
		return nil, conversation.ErrNotFound
	}
	return &chat.Document{Messages: messages.Clone()}, nil
}

func (repo *MemoryRepository) Save(_ context.Context, identity string, doc *chat.Document) error {
	messages := doc.Messages.Clone()
	if messages == nil {
		messages = chat.Conversation{}
	}

	repo.mu.Lock()
	repo.docs[identity] = messages
	repo.mu.Unlock()

	metrics.RecordDocstoreOp("memory", "save", nil)
	return nil
}
