package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"resty.dev/v3"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

const readChunkSize = 4 * 1024

// RelayClient posts conversations to the relay endpoint over HTTP.
type RelayClient struct {
	client *resty.Client
	url    string
}

var _ Relay = (*RelayClient)(nil)

func NewRelayClient(client *resty.Client, serverURL, relayPath string) *RelayClient {
	return &RelayClient{
		client: client,
		url:    strings.TrimRight(serverURL, "/") + "/" + strings.TrimLeft(relayPath, "/"),
	}
}

// Stream posts turns and returns the response body as it arrives. Each
// yielded chunk is a fresh slice. A connection that breaks before a clean
// end of body is yielded as an error.
func (r *RelayClient) Stream(ctx context.Context, turns chat.Conversation) (iter.Seq2[[]byte, error], error) {
	if turns == nil {
		turns = chat.Conversation{}
	}
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(turns).
		SetDoNotParseResponse(true).
		Post(r.url)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, "relay request failed", err, "6a2f0d94-1c7b-4e38-b5a9-e3d8c1f7a026")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, "relay returned no body", nil, "b17e4c58-93d0-4a2f-8e6b-0c5f9a3d7e81")
	}
	body := resp.RawResponse.Body
	if resp.IsError() {
		defer body.Close()
		detail, _ := io.ReadAll(io.LimitReader(body, 4*1024))
		return nil, platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, fmt.Sprintf("relay returned status %d: %s", resp.StatusCode(), strings.TrimSpace(string(detail))), nil, "3c9d7b20-e4f1-4a86-9d35-71b0e8c2f4a9")
	}

	return func(yield func([]byte, error) bool) {
		defer body.Close()
		buf := make([]byte, readChunkSize)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				if !yield(append([]byte(nil), buf[:n]...), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read relay stream: %w", err))
				return
			}
		}
	}, nil
}
