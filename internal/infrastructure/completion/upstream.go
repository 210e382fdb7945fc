package completion

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/janhq/support-chat/internal/domain/relay"
)

// Upstream adapts Client to the relay service.
type Upstream struct {
	client *Client
}

func NewUpstream(client *Client) *Upstream {
	return &Upstream{client: client}
}

func (u *Upstream) Open(ctx context.Context, request openai.ChatCompletionRequest) (relay.Stream, error) {
	stream, err := u.client.StreamChatCompletion(ctx, request)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

var _ relay.Upstream = (*Upstream)(nil)
