package client

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain/chat"
)

// Session owns one conversation. Send and SetIdentity run as mutually
// exclusive exchanges, so an identity change waits for an in-flight reply.
type Session struct {
	relay  Relay
	store  DocumentStore
	policy FailurePolicy
	log    zerolog.Logger

	// exchange is a one-slot semaphore held for the whole of Send or SetIdentity.
	exchange chan struct{}

	mu           sync.Mutex
	conversation chat.Conversation
	loading      bool
	identity     *Identity

	observersMu  sync.Mutex
	observers    map[int]func(State)
	nextObserver int
}

type Option func(*Session)

func WithFailurePolicy(policy FailurePolicy) Option {
	return func(s *Session) { s.policy = policy }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession starts an anonymous session holding only the greeting. store
// may be nil, in which case nothing is persisted.
func NewSession(relay Relay, store DocumentStore, opts ...Option) *Session {
	s := &Session{
		relay:        relay,
		store:        store,
		policy:       FailureAppendApology,
		log:          zerolog.Nop(),
		exchange:     make(chan struct{}, 1),
		conversation: chat.NewConversation(),
		observers:    make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every published state and calls it once with
// the current state. The returned function unregisters it.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.observersMu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.observersMu.Unlock()

	fn(s.State())

	return func() {
		s.observersMu.Lock()
		delete(s.observers, id)
		s.observersMu.Unlock()
	}
}

// Send runs one exchange: it appends the user turn and an empty assistant
// placeholder, streams the reply into the placeholder and, when an identity
// is bound, overwrites its stored document. A failed exchange ends with the
// apology turn and its cause is returned. ErrBusy and ErrBlankInput leave the
// state untouched.
func (s *Session) Send(ctx context.Context, input string) error {
	if chat.IsBlank(input) {
		return ErrBlankInput
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	s.mu.Unlock()

	if err := s.acquire(ctx); err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.publish()
		return err
	}
	defer s.release()

	s.mu.Lock()
	s.conversation = s.conversation.Append(
		chat.Turn{Role: chat.RoleUser, Content: input},
		chat.Turn{Role: chat.RoleAssistant, Content: ""},
	)
	placeholder := len(s.conversation) - 1
	turns := s.conversation.Clone()
	identity := s.identity
	s.mu.Unlock()
	s.publish()

	err := s.exchangeReply(ctx, turns, identity)

	s.mu.Lock()
	if err != nil {
		s.conversation[placeholder].Content = ""
		switch s.policy {
		case FailureReplacePlaceholder:
			s.conversation[placeholder].Content = chat.Apology
		default:
			s.conversation = s.conversation.Append(chat.Turn{Role: chat.RoleAssistant, Content: chat.Apology})
		}
	}
	s.loading = false
	s.mu.Unlock()
	s.publish()

	if err != nil {
		s.log.Error().Err(err).Msg("exchange failed")
	}
	return err
}

// exchangeReply streams the reply into the last turn and persists the result.
func (s *Session) exchangeReply(ctx context.Context, turns chat.Conversation, identity *Identity) error {
	fragments, err := s.relay.Stream(ctx, turns)
	if err != nil {
		return err
	}

	var decoder utf8Decoder
	for chunk, streamErr := range fragments {
		if streamErr != nil {
			return streamErr
		}
		s.appendReply(decoder.Decode(chunk))
	}
	s.appendReply(decoder.Flush())

	if identity == nil || s.store == nil {
		return nil
	}

	s.mu.Lock()
	doc := &chat.Document{Messages: s.conversation.Clone()}
	s.mu.Unlock()
	return s.store.Save(ctx, *identity, doc)
}

func (s *Session) appendReply(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	s.conversation = s.conversation.AppendToLast(text)
	s.mu.Unlock()
	s.publish()
}

// SetIdentity binds or clears the signed-in identity. A bound identity's
// stored document replaces the conversation when one exists; a load failure
// is logged and leaves the conversation as it was. Clearing the identity
// resets the conversation to the greeting.
func (s *Session) SetIdentity(ctx context.Context, identity *Identity) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	s.identity = identity
	if identity == nil {
		s.conversation = chat.NewConversation()
	}
	s.mu.Unlock()
	s.publish()

	if identity == nil || s.store == nil {
		return nil
	}

	doc, err := s.store.Load(ctx, *identity)
	if errors.Is(err, ErrDocumentNotFound) {
		s.log.Debug().Str("subject", identity.Subject).Msg("no stored conversation")
		return nil
	}
	if err != nil {
		s.log.Warn().Err(err).Str("subject", identity.Subject).Msg("load stored conversation")
		return nil
	}

	s.mu.Lock()
	s.conversation = doc.Messages.Clone()
	s.mu.Unlock()
	s.publish()
	return nil
}

// Bind follows auth: every identity change it reports is applied to the session.
func (s *Session) Bind(ctx context.Context, auth Authenticator) (unsubscribe func()) {
	return auth.Subscribe(func(identity *Identity) {
		if err := s.SetIdentity(ctx, identity); err != nil {
			s.log.Warn().Err(err).Msg("apply identity change")
		}
	})
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.exchange <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() {
	<-s.exchange
}

func (s *Session) snapshotLocked() State {
	state := State{
		Conversation: s.conversation.Clone(),
		Loading:      s.loading,
	}
	if s.identity != nil {
		identity := *s.identity
		state.Identity = &identity
	}
	return state
}

func (s *Session) publish() {
	s.mu.Lock()
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.observersMu.Lock()
	observers := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.observersMu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}
