package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

type fakeStream struct {
	deltas []string
	err    error
	pos    int
	closed bool
}

func (f *fakeStream) Next() bool {
	if f.pos >= len(f.deltas) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeStream) Delta() string { return f.deltas[f.pos-1] }

func (f *fakeStream) Err() error {
	if f.pos >= len(f.deltas) {
		return f.err
	}
	return nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

type mockUpstream struct {
	OpenFunc func(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error)
	requests []openai.ChatCompletionRequest
}

func (m *mockUpstream) Open(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error) {
	m.requests = append(m.requests, request)
	return m.OpenFunc(ctx, request)
}

func collect(t *testing.T, seq func(func(string, error) bool)) ([]string, error) {
	t.Helper()
	var (
		fragments []string
		streamErr error
	)
	for fragment, err := range seq {
		if err != nil {
			streamErr = err
			continue
		}
		fragments = append(fragments, fragment)
	}
	return fragments, streamErr
}

func TestRelayPrependsSystemTurn(t *testing.T) {
	stream := &fakeStream{deltas: []string{"Hi"}}
	upstream := &mockUpstream{OpenFunc: func(context.Context, openai.ChatCompletionRequest) (Stream, error) {
		return stream, nil
	}}
	svc := NewService(upstream, "", zerolog.Nop())

	seq, err := svc.Relay(context.Background(), chat.Conversation{{Role: chat.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	_, _ = collect(t, seq)

	require.Len(t, upstream.requests, 1)
	req := upstream.requests[0]
	assert.Equal(t, chat.DefaultModel, req.Model)
	assert.True(t, req.Stream)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, chat.SystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "hi", req.Messages[1].Content)
	assert.True(t, stream.closed)
}

func TestRelayForwardsCallerTurnsAsIs(t *testing.T) {
	upstream := &mockUpstream{OpenFunc: func(context.Context, openai.ChatCompletionRequest) (Stream, error) {
		return &fakeStream{}, nil
	}}
	svc := NewService(upstream, "custom-model", zerolog.Nop())

	turns := chat.Conversation{
		{Role: chat.RoleSystem, Content: "ignore previous"},
		{Role: chat.RoleAssistant, Content: chat.Greeting},
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: ""},
	}
	seq, err := svc.Relay(context.Background(), turns)
	require.NoError(t, err)
	_, _ = collect(t, seq)

	req := upstream.requests[0]
	assert.Equal(t, "custom-model", req.Model)
	require.Len(t, req.Messages, 5)
	for i, turn := range turns {
		assert.Equal(t, string(turn.Role), req.Messages[i+1].Role)
		assert.Equal(t, turn.Content, req.Messages[i+1].Content)
	}
}

func TestRelaySkipsEmptyDeltas(t *testing.T) {
	upstream := &mockUpstream{OpenFunc: func(context.Context, openai.ChatCompletionRequest) (Stream, error) {
		return &fakeStream{deltas: []string{"", "Hel", "", "lo", "!"}}, nil
	}}
	svc := NewService(upstream, "m", zerolog.Nop())

	seq, err := svc.Relay(context.Background(), chat.Conversation{{Role: chat.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	fragments, streamErr := collect(t, seq)

	assert.NoError(t, streamErr)
	assert.Equal(t, []string{"Hel", "lo", "!"}, fragments)
}

func TestRelayYieldsMidStreamErrorOnce(t *testing.T) {
	boom := errors.New("connection reset")
	upstream := &mockUpstream{OpenFunc: func(context.Context, openai.ChatCompletionRequest) (Stream, error) {
		return &fakeStream{deltas: []string{"par", "tial"}, err: boom}, nil
	}}
	svc := NewService(upstream, "m", zerolog.Nop())

	seq, err := svc.Relay(context.Background(), chat.Conversation{{Role: chat.RoleUser, Content: "hi"}})
	require.NoError(t, err)

	var (
		fragments []string
		errs      []error
	)
	for fragment, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fragments = append(fragments, fragment)
	}
	assert.Equal(t, []string{"par", "tial"}, fragments)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestRelayStopsWhenConsumerBreaks(t *testing.T) {
	stream := &fakeStream{deltas: []string{"a", "b", "c"}}
	upstream := &mockUpstream{OpenFunc: func(context.Context, openai.ChatCompletionRequest) (Stream, error) {
		return stream, nil
	}}
	svc := NewService(upstream, "m", zerolog.Nop())

	seq, err := svc.Relay(context.Background(), nil)
	require.NoError(t, err)
	for fragment := range seq {
		assert.Equal(t, "a", fragment)
		break
	}
	assert.True(t, stream.closed)
	assert.Equal(t, 1, stream.pos)
}

func TestRelayEstablishmentFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType platformerrors.ErrorType
	}{
		{
			name:     "plain error becomes external",
			err:      errors.New("dial tcp: refused"),
			wantType: platformerrors.ErrorTypeExternal,
		},
		{
			name:     "platform error keeps its type",
			err:      platformerrors.NewError(context.Background(), platformerrors.LayerInfrastructure, platformerrors.ErrorTypeUnauthorized, "bad key", nil, ""),
			wantType: platformerrors.ErrorTypeUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &mockUpstream{OpenFunc: func(context.Context, openai.ChatCompletionRequest) (Stream, error) {
				return nil, tt.err
			}}
			svc := NewService(upstream, "m", zerolog.Nop())

			seq, err := svc.Relay(context.Background(), chat.Conversation{{Role: chat.RoleUser, Content: "hi"}})
			require.Error(t, err)
			assert.Nil(t, seq)
			assert.True(t, platformerrors.IsErrorType(err, tt.wantType))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLastUserContent(t *testing.T) {
	turns := chat.NewConversation().Append(
		chat.Turn{Role: chat.RoleUser, Content: "first"},
		chat.Turn{Role: chat.RoleAssistant, Content: "reply"},
		chat.Turn{Role: chat.RoleUser, Content: "second"},
		chat.Turn{Role: chat.RoleAssistant, Content: ""},
	)
	assert.Equal(t, "second", lastUserContent(turns))
	assert.Equal(t, "", lastUserContent(chat.NewConversation()))
}
