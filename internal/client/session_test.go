package client

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/domain/chat"
)

type fakeRelay struct {
	StreamFunc func(ctx context.Context, turns chat.Conversation) (iter.Seq2[[]byte, error], error)
}

func (f *fakeRelay) Stream(ctx context.Context, turns chat.Conversation) (iter.Seq2[[]byte, error], error) {
	return f.StreamFunc(ctx, turns)
}

func chunks(parts ...string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for _, p := range parts {
			if !yield([]byte(p), nil) {
				return
			}
		}
	}
}

func replying(parts ...string) *fakeRelay {
	return &fakeRelay{StreamFunc: func(context.Context, chat.Conversation) (iter.Seq2[[]byte, error], error) {
		return chunks(parts...), nil
	}}
}

type memStore struct {
	mu      sync.Mutex
	docs    map[string]chat.Conversation
	saveErr error
	loadErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]chat.Conversation)}
}

func (m *memStore) Load(_ context.Context, identity Identity) (*chat.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	msgs, ok := m.docs[identity.Subject]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &chat.Document{Messages: msgs.Clone()}, nil
}

func (m *memStore) Save(_ context.Context, identity Identity, doc *chat.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[identity.Subject] = doc.Messages.Clone()
	return nil
}

func TestNewSessionStartsWithGreeting(t *testing.T) {
	s := NewSession(replying(), nil)
	state := s.State()
	assert.Equal(t, chat.NewConversation(), state.Conversation)
	assert.False(t, state.Loading)
	assert.Nil(t, state.Identity)
}

func TestSendAppendsUserTurnAndPlaceholderBeforeRelay(t *testing.T) {
	var sent chat.Conversation
	relay := &fakeRelay{StreamFunc: func(_ context.Context, turns chat.Conversation) (iter.Seq2[[]byte, error], error) {
		sent = turns
		return chunks("ok"), nil
	}}
	s := NewSession(relay, nil)

	require.NoError(t, s.Send(context.Background(), "hi"))

	require.Len(t, sent, 3)
	assert.Equal(t, chat.Turn{Role: chat.RoleUser, Content: "hi"}, sent[1])
	assert.Equal(t, chat.Turn{Role: chat.RoleAssistant, Content: ""}, sent[2])
}

func TestSendStreamsEachFragmentIntoPlaceholder(t *testing.T) {
	s := NewSession(replying("Hel", "lo", "!"), nil)

	var (
		mu      sync.Mutex
		replies []string
	)
	s.Subscribe(func(state State) {
		last, _ := state.Conversation.Last()
		mu.Lock()
		replies = append(replies, last.Content)
		mu.Unlock()
	})

	require.NoError(t, s.Send(context.Background(), "hi"))

	mu.Lock()
	assert.Equal(t, []string{chat.Greeting, "", "Hel", "Hello", "Hello!", "Hello!"}, replies)
	mu.Unlock()

	state := s.State()
	assert.False(t, state.Loading)
	assert.Equal(t, chat.Conversation{
		{Role: chat.RoleAssistant, Content: chat.Greeting},
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "Hello!"},
	}, state.Conversation)
}

func TestSendPublishesLoadingWhileInFlight(t *testing.T) {
	s := NewSession(replying("x"), nil)

	var loadingSeen bool
	s.Subscribe(func(state State) {
		if state.Loading {
			loadingSeen = true
		}
	})
	require.NoError(t, s.Send(context.Background(), "hi"))
	assert.True(t, loadingSeen)
	assert.False(t, s.State().Loading)
}

func TestSendRejectsBlankInput(t *testing.T) {
	called := false
	relay := &fakeRelay{StreamFunc: func(context.Context, chat.Conversation) (iter.Seq2[[]byte, error], error) {
		called = true
		return chunks(), nil
	}}
	s := NewSession(relay, nil)

	for _, input := range []string{"", "   ", "\n\t"} {
		assert.ErrorIs(t, s.Send(context.Background(), input), ErrBlankInput)
	}
	assert.False(t, called)
	assert.Equal(t, chat.NewConversation(), s.State().Conversation)
}

func TestSendWhileLoadingIsRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	relay := &fakeRelay{StreamFunc: func(context.Context, chat.Conversation) (iter.Seq2[[]byte, error], error) {
		close(started)
		<-release
		return chunks("done"), nil
	}}
	s := NewSession(relay, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Send(context.Background(), "first") }()
	<-started

	before := s.State()
	assert.ErrorIs(t, s.Send(context.Background(), "second"), ErrBusy)
	assert.Equal(t, before, s.State())

	close(release)
	require.NoError(t, <-errCh)
	assert.Len(t, s.State().Conversation, 3)
}

func TestSendFailureAppendsApology(t *testing.T) {
	boom := errors.New("relay down")
	relay := &fakeRelay{StreamFunc: func(context.Context, chat.Conversation) (iter.Seq2[[]byte, error], error) {
		return nil, boom
	}}
	s := NewSession(relay, nil)

	assert.ErrorIs(t, s.Send(context.Background(), "hi"), boom)

	state := s.State()
	assert.False(t, state.Loading)
	assert.Equal(t, chat.Conversation{
		{Role: chat.RoleAssistant, Content: chat.Greeting},
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: ""},
		{Role: chat.RoleAssistant, Content: chat.Apology},
	}, state.Conversation)
}

func TestSendMidStreamFailureDiscardsPartialReply(t *testing.T) {
	boom := errors.New("connection reset")
	relay := &fakeRelay{StreamFunc: func(context.Context, chat.Conversation) (iter.Seq2[[]byte, error], error) {
		return func(yield func([]byte, error) bool) {
			if !yield([]byte("par"), nil) {
				return
			}
			yield(nil, boom)
		}, nil
	}}
	s := NewSession(relay, nil, WithFailurePolicy(FailureReplacePlaceholder))

	assert.ErrorIs(t, s.Send(context.Background(), "hi"), boom)

	assert.Equal(t, chat.Conversation{
		{Role: chat.RoleAssistant, Content: chat.Greeting},
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: chat.Apology},
	}, s.State().Conversation)
}

func TestSendDecodesSplitUTF8(t *testing.T) {
	raw := []byte("héllo 👋")
	parts := make([]string, 0, len(raw))
	for _, b := range raw {
		parts = append(parts, string([]byte{b}))
	}
	s := NewSession(replying(parts...), nil)

	require.NoError(t, s.Send(context.Background(), "hi"))
	last, _ := s.State().Conversation.Last()
	assert.Equal(t, "héllo 👋", last.Content)
}

func TestSendPersistsForBoundIdentity(t *testing.T) {
	store := newMemStore()
	s := NewSession(replying("Hello!"), store)
	alice := &Identity{Subject: "alice", Token: "t"}
	require.NoError(t, s.SetIdentity(context.Background(), alice))

	require.NoError(t, s.Send(context.Background(), "hi"))

	assert.Equal(t, s.State().Conversation, store.docs["alice"])

	// a fresh session for the same identity restores the document
	restored := NewSession(replying(), store)
	require.NoError(t, restored.SetIdentity(context.Background(), alice))
	assert.Equal(t, s.State().Conversation, restored.State().Conversation)
}

func TestSendAnonymousDoesNotPersist(t *testing.T) {
	store := newMemStore()
	s := NewSession(replying("Hello!"), store)
	require.NoError(t, s.Send(context.Background(), "hi"))
	assert.Zero(t, store.saves)
}

func TestSendSaveFailureShowsApology(t *testing.T) {
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	s := NewSession(replying("Hello!"), store)
	require.NoError(t, s.SetIdentity(context.Background(), &Identity{Subject: "alice"}))

	assert.Error(t, s.Send(context.Background(), "hi"))

	conv := s.State().Conversation
	last, _ := conv.Last()
	assert.Equal(t, chat.Apology, last.Content)
	assert.Equal(t, "", conv[len(conv)-2].Content)
}

func TestSetIdentityWithoutDocumentKeepsConversation(t *testing.T) {
	s := NewSession(replying("Hello!"), newMemStore())
	require.NoError(t, s.Send(context.Background(), "hi"))
	before := s.State().Conversation

	require.NoError(t, s.SetIdentity(context.Background(), &Identity{Subject: "bob"}))
	assert.Equal(t, before, s.State().Conversation)
	assert.Equal(t, "bob", s.State().Identity.Subject)
}

func TestSetIdentityLoadFailureKeepsConversation(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("unreachable")
	s := NewSession(replying("Hello!"), store)
	require.NoError(t, s.Send(context.Background(), "hi"))
	before := s.State().Conversation

	require.NoError(t, s.SetIdentity(context.Background(), &Identity{Subject: "bob"}))
	assert.Equal(t, before, s.State().Conversation)
}

func TestSignOutResetsToGreeting(t *testing.T) {
	store := newMemStore()
	s := NewSession(replying("Hello!"), store)
	require.NoError(t, s.SetIdentity(context.Background(), &Identity{Subject: "alice"}))
	require.NoError(t, s.Send(context.Background(), "hi"))

	require.NoError(t, s.SetIdentity(context.Background(), nil))

	state := s.State()
	assert.Nil(t, state.Identity)
	assert.Equal(t, chat.NewConversation(), state.Conversation)
	assert.Len(t, store.docs["alice"], 3)
}

func TestSignOutDuringSendAppliesAfterExchange(t *testing.T) {
	store := newMemStore()
	release := make(chan struct{})
	started := make(chan struct{})
	relay := &fakeRelay{StreamFunc: func(context.Context, chat.Conversation) (iter.Seq2[[]byte, error], error) {
		close(started)
		<-release
		return chunks("late reply"), nil
	}}
	s := NewSession(relay, store)
	require.NoError(t, s.SetIdentity(context.Background(), &Identity{Subject: "alice"}))

	sendErr := make(chan error, 1)
	go func() { sendErr <- s.Send(context.Background(), "hi") }()
	<-started

	signedOut := make(chan error, 1)
	go func() { signedOut <- s.SetIdentity(context.Background(), nil) }()

	select {
	case <-signedOut:
		t.Fatal("sign-out applied while the exchange was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-sendErr)
	require.NoError(t, <-signedOut)

	assert.Equal(t, chat.NewConversation(), s.State().Conversation)
	last, _ := store.docs["alice"].Last()
	assert.Equal(t, "late reply", last.Content)
}

func TestSetIdentityHonorsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	relay := &fakeRelay{StreamFunc: func(context.Context, chat.Conversation) (iter.Seq2[[]byte, error], error) {
		close(started)
		<-release
		return chunks("x"), nil
	}}
	s := NewSession(relay, nil)
	go func() { _ = s.Send(context.Background(), "hi") }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SetIdentity(ctx, nil), context.Canceled)
	close(release)
}

func TestSubscribeReceivesCurrentStateAndUnsubscribes(t *testing.T) {
	s := NewSession(replying("x"), nil)

	calls := 0
	unsubscribe := s.Subscribe(func(State) { calls++ })
	assert.Equal(t, 1, calls)

	unsubscribe()
	require.NoError(t, s.Send(context.Background(), "hi"))
	assert.Equal(t, 1, calls)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := NewSession(replying("x"), nil)
	state := s.State()
	state.Conversation[0].Content = "mutated"
	assert.Equal(t, chat.Greeting, s.State().Conversation[0].Content)
}

func TestBindFollowsAuthenticator(t *testing.T) {
	store := newMemStore()
	store.docs["alice"] = chat.Conversation{
		{Role: chat.RoleAssistant, Content: chat.Greeting},
		{Role: chat.RoleUser, Content: "earlier"},
		{Role: chat.RoleAssistant, Content: "answer"},
	}
	auth := NewTokenAuthenticator(StaticTokenSource(signedToken(t, "alice")), testLogger())
	s := NewSession(replying(), store)

	unbind := s.Bind(context.Background(), auth)
	defer unbind()
	assert.Nil(t, s.State().Identity)

	require.NoError(t, auth.SignIn(context.Background()))
	assert.Equal(t, store.docs["alice"], s.State().Conversation)

	require.NoError(t, auth.SignOut(context.Background()))
	assert.Equal(t, chat.NewConversation(), s.State().Conversation)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FailureAppendApology, p)

	p, err = ParseFailurePolicy("replace")
	require.NoError(t, err)
	assert.Equal(t, FailureReplacePlaceholder, p)

	_, err = ParseFailurePolicy("ignore")
	assert.Error(t, err)
}
