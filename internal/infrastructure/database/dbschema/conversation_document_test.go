package dbschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/domain/chat"
)

func TestConversationDocumentConversion(t *testing.T) {
	conv := chat.NewConversation().Append(chat.Turn{Role: chat.RoleUser, Content: "hi"})

	entity, err := NewSchemaConversationDocument("u1", &chat.Document{Messages: conv})
	require.NoError(t, err)
	assert.Equal(t, "u1", entity.Identity)
	assert.JSONEq(t, `[{"role":"assistant","content":"`+chat.Greeting+`"},{"role":"user","content":"hi"}]`, string(entity.Messages))

	doc, err := entity.EtoD()
	require.NoError(t, err)
	assert.True(t, conv.Equal(doc.Messages))
}

func TestConversationDocumentEmptyMessages(t *testing.T) {
	entity, err := NewSchemaConversationDocument("u1", &chat.Document{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(entity.Messages))

	doc, err := (&ConversationDocument{}).EtoD()
	require.NoError(t, err)
	assert.NotNil(t, doc.Messages)
	assert.Empty(t, doc.Messages)
}
