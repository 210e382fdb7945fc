package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/utils/httpclients"
)

// documentServer mimics the /v1/conversations/me routes keyed by bearer token.
func documentServer(t *testing.T) *httptest.Server {
	t.Helper()
	var (
		mu   sync.Mutex
		docs = map[string]chat.Document{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, conversationPath, r.URL.Path)
		assert.Equal(t, "pk-test", r.Header.Get("X-API-Key"))
		key := r.Header.Get("Authorization")
		if key == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			doc, ok := docs[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"code":"x","error":"not found"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(doc)
		case http.MethodPut:
			var doc chat.Document
			if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			docs[key] = doc
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestStoreClientRoundTrip(t *testing.T) {
	server := documentServer(t)
	store := NewStoreClient(httpclients.NewClient("test-store", zerolog.Nop()), server.URL, "pk-test")
	alice := Identity{Subject: "alice", Token: "alice-token"}
	ctx := context.Background()

	_, err := store.Load(ctx, alice)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	doc := &chat.Document{Messages: chat.NewConversation().Append(
		chat.Turn{Role: chat.RoleUser, Content: "hi"},
		chat.Turn{Role: chat.RoleAssistant, Content: "Hello!"},
	)}
	require.NoError(t, store.Save(ctx, alice, doc))

	got, err := store.Load(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, doc.Messages, got.Messages)

	_, err = store.Load(ctx, Identity{Subject: "bob", Token: "bob-token"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestStoreClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	store := NewStoreClient(httpclients.NewClient("test-store", zerolog.Nop()), server.URL, "")

	_, err := store.Load(context.Background(), Identity{Subject: "a", Token: "t"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDocumentNotFound)

	assert.Error(t, store.Save(context.Background(), Identity{Subject: "a", Token: "t"}, &chat.Document{}))
}

func TestSessionPersistsThroughStoreClient(t *testing.T) {
	server := documentServer(t)
	store := NewStoreClient(httpclients.NewClient("test-store", zerolog.Nop()), server.URL, "pk-test")
	alice := &Identity{Subject: "alice", Token: "alice-token"}
	ctx := context.Background()

	first := NewSession(replying("Hello", "!"), store)
	require.NoError(t, first.SetIdentity(ctx, alice))
	require.NoError(t, first.Send(ctx, "hi"))

	second := NewSession(replying(), store)
	require.NoError(t, second.SetIdentity(ctx, alice))
	assert.Equal(t, first.State().Conversation, second.State().Conversation)
}
