package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"resty.dev/v3"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

const conversationPath = "/v1/conversations/me"

// StoreClient reads and writes documents on the support-chat server.
type StoreClient struct {
	client *resty.Client
	url    string
	apiKey string
}

var _ DocumentStore = (*StoreClient)(nil)

// NewStoreClient targets serverURL; apiKey is the public project key, sent
// as X-API-Key when set.
func NewStoreClient(client *resty.Client, serverURL, apiKey string) *StoreClient {
	return &StoreClient{
		client: client,
		url:    strings.TrimRight(serverURL, "/") + conversationPath,
		apiKey: apiKey,
	}
}

func (c *StoreClient) request(ctx context.Context, identity Identity) *resty.Request {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+identity.Token)
	if c.apiKey != "" {
		req.SetHeader("X-API-Key", c.apiKey)
	}
	return req
}

func (c *StoreClient) Load(ctx context.Context, identity Identity) (*chat.Document, error) {
	var doc chat.Document
	resp, err := c.request(ctx, identity).
		SetResult(&doc).
		Get(c.url)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, "load conversation", err, "8e5a1c37-2d9f-4b04-a6e8-f3c0d7b9152e")
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrDocumentNotFound
	}
	if resp.IsError() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, fmt.Sprintf("load conversation: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())), nil, "d04b7f92-6a1e-4c58-b3d7-29e8f5a0c6b4")
	}
	if doc.Messages == nil {
		doc.Messages = chat.Conversation{}
	}
	return &doc, nil
}

func (c *StoreClient) Save(ctx context.Context, identity Identity, doc *chat.Document) error {
	resp, err := c.request(ctx, identity).
		SetHeader("Content-Type", "application/json").
		SetBody(doc).
		Put(c.url)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, "save conversation", err, "5f8c2a61-b7e3-4d90-8c14-a6d2e9f3b057")
	}
	if resp.IsError() {
		return platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, fmt.Sprintf("save conversation: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String())), nil, "a7d3e0b5-4c82-4f1a-9e67-b1c8f4d2a039")
	}
	return nil
}
