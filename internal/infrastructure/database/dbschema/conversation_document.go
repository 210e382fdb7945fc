package dbschema

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/janhq/support-chat/internal/domain/chat"
)

// ConversationDocument is the row holding one identity's conversation.
type ConversationDocument struct {
	Identity  string         `gorm:"primaryKey;size:255"`
	Messages  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ConversationDocument) TableName() string {
	return "conversation_documents"
}

// NewSchemaConversationDocument converts a domain document into its row.
func NewSchemaConversationDocument(identity string, doc *chat.Document) (*ConversationDocument, error) {
	messages := doc.Messages
	if messages == nil {
		messages = chat.Conversation{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, err
	}
	return &ConversationDocument{
		Identity: identity,
		Messages: datatypes.JSON(raw),
	}, nil
}

// EtoD converts the row back into a domain document.
func (e *ConversationDocument) EtoD() (*chat.Document, error) {
	messages := chat.Conversation{}
	if len(e.Messages) > 0 {
		if err := json.Unmarshal(e.Messages, &messages); err != nil {
			return nil, err
		}
	}
	return &chat.Document{Messages: messages}, nil
}
