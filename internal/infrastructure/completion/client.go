package completion

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

func NewClient(client *resty.Client, baseURL, apiKey string) *Client {
	return &Client{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		apiKey:  apiKey,
	}
}

// StreamChatCompletion opens a streaming completion. Failures to establish the
// stream (transport errors, non-2xx statuses) are returned here; failures while
// reading surface through Stream.Err.
func (c *Client) StreamChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*Stream, error) {
	request.Stream = true

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/event-stream").
		SetHeader("Accept-Encoding", "identity").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(newChatRequest(request)).
		SetDoNotParseResponse(true).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "streaming request failed", err, "c0e1b7d2-4f7e-4f0a-9a51-0d3c1b2f8e61")
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "streaming request failed")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "streaming request failed: empty response body", nil, "5d7a2c41-92b8-4c55-8f0e-6e4b3d9a7c10")
	}

	return newStream(resp.RawResponse.Body), nil
}

// BaseURL returns the normalized upstream base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string) string {
	if c.baseURL == "" {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	status := resp.StatusCode()
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: status %d", message, status), nil, "3476dd55-5fc0-4653-bd10-665895ecc099")
	}
	defer resp.RawResponse.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.RawResponse.Body, 64*1024))
	trimmed := strings.TrimSpace(string(body))
	if err != nil || trimmed == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: status %d", message, status), err, "8cd2cae7-9ad9-40fe-ac00-8f9b24251064")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: status %d: %s", message, status, trimmed), nil, "a1f46e0d-4017-4411-ac05-987946c3066d")
}

func normalizeBaseURL(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}
