package completion

import "github.com/sashabaranov/go-openai"

// chatRequest is the outbound body. go-openai drops empty message content,
// which completion APIs reject for assistant turns, so messages are written
// with content always present.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	User        string        `json:"user,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

func newChatRequest(request openai.ChatCompletionRequest) chatRequest {
	messages := make([]chatMessage, 0, len(request.Messages))
	for _, m := range request.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content, Name: m.Name})
	}
	return chatRequest{
		Model:       request.Model,
		Messages:    messages,
		Stream:      request.Stream,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxTokens,
		User:        request.User,
	}
}
