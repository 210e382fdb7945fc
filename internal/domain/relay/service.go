package relay

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
	"github.com/janhq/support-chat/internal/infrastructure/observability"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

const tracerName = "support-chat/relay"

// Stream is an open upstream completion, read forward-only.
type Stream interface {
	Next() bool
	Delta() string
	Err() error
	Close() error
}

// Upstream opens streaming completions.
type Upstream interface {
	Open(ctx context.Context, request openai.ChatCompletionRequest) (Stream, error)
}

// Service forwards chat turns to the completion upstream and exposes the reply
// as a sequence of text fragments. It keeps no state between calls.
type Service struct {
	upstream  Upstream
	model     string
	log       zerolog.Logger
	sanitizer *observability.Sanitizer
}

type Option func(*Service)

// WithSanitizer sets how the latest user turn is previewed on the relay span.
func WithSanitizer(sanitizer *observability.Sanitizer) Option {
	return func(s *Service) { s.sanitizer = sanitizer }
}

func NewService(upstream Upstream, model string, log zerolog.Logger, opts ...Option) *Service {
	if model == "" {
		model = chat.DefaultModel
	}
	s := &Service{
		upstream: upstream,
		model:    model,
		log:      log.With().Str("component", "relay").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the completion model requests are sent with.
func (s *Service) Model() string {
	return s.model
}

// Relay opens an upstream completion for turns, prefixed with the system turn.
// An error is returned when the upstream cannot be reached or rejects the
// request; otherwise the returned sequence yields each non-empty delta in
// arrival order. A failure while streaming is yielded once, after which the
// sequence stops. The sequence may be ranged over only once.
func (s *Service) Relay(ctx context.Context, turns chat.Conversation) (iter.Seq2[string, error], error) {
	request := s.buildRequest(turns)

	spanCtx, span := observability.StartSpan(ctx, tracerName, "relay.open")
	observability.AddSpanAttributes(spanCtx,
		attribute.String("completion.model", s.model),
		attribute.Int("relay.turns", len(turns)),
		attribute.String("relay.prompt", s.sanitizer.Text(lastUserContent(turns))),
	)
	started := time.Now()
	stream, err := s.upstream.Open(spanCtx, request)
	if err != nil {
		observability.RecordError(spanCtx, err)
		span.End()
		metrics.RecordUpstreamError(s.model, "open")
		s.log.Error().Err(err).Int("turns", len(turns)).Msg("open completion stream")
		return nil, upstreamError(ctx, err)
	}
	span.End()

	return func(yield func(string, error) bool) {
		defer stream.Close()

		metrics.ActiveRelays.WithLabelValues(s.model).Inc()
		defer metrics.ActiveRelays.WithLabelValues(s.model).Dec()

		first := true
		for stream.Next() {
			delta := stream.Delta()
			if delta == "" {
				continue
			}
			if first {
				metrics.FirstFragmentDuration.WithLabelValues(s.model).Observe(time.Since(started).Seconds())
				first = false
			}
			metrics.RecordFragment(s.model, len(delta))
			if !yield(delta, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			metrics.RecordUpstreamError(s.model, "stream")
			s.log.Error().Err(err).Msg("completion stream interrupted")
			yield("", err)
		}
	}, nil
}

// upstreamError keeps the classification of platform errors and treats any
// other failure as an external one.
func upstreamError(ctx context.Context, err error) error {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "completion upstream unavailable")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "completion upstream unavailable", err, "9f3c6a1e-2b7d-4e58-a0c4-71d5e8b2f903")
}

func lastUserContent(turns chat.Conversation) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == chat.RoleUser {
			return turns[i].Content
		}
	}
	return ""
}

func (s *Service) buildRequest(turns chat.Conversation) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: chat.SystemPrompt,
	})
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   true,
	}
}
