package completion

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	dataPrefix           = "data:"
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
)

// Stream reads server-sent completion chunks. It is forward-only and not safe
// for concurrent use.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	current openai.ChatCompletionStreamResponse
	err     error
	done    bool
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)
	return &Stream{body: body, scanner: scanner}
}

// Next advances to the next chunk. It returns false at the end of the stream
// or on error; check Err afterwards.
func (s *Stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		data, found := strings.CutPrefix(line, dataPrefix)
		if !found {
			// blank separators, comments, event/id fields
			continue
		}
		data = strings.TrimSpace(data)
		if data == doneMarker {
			s.done = true
			return false
		}

		chunk, err := decodeChunk(data)
		if err != nil {
			s.err = err
			return false
		}
		s.current = chunk
		return true
	}

	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("read completion stream: %w", err)
		return false
	}
	s.done = true
	return false
}

// Current returns the chunk read by the last successful Next.
func (s *Stream) Current() openai.ChatCompletionStreamResponse {
	return s.current
}

// Delta returns the text delta of the current chunk, empty when it carries none.
func (s *Stream) Delta() string {
	if len(s.current.Choices) == 0 {
		return ""
	}
	return s.current.Choices[0].Delta.Content
}

// Err returns the error that stopped the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the underlying response body.
func (s *Stream) Close() error {
	s.done = true
	return s.body.Close()
}

func decodeChunk(data string) (openai.ChatCompletionStreamResponse, error) {
	var envelope struct {
		openai.ChatCompletionStreamResponse
		Error *openai.APIError `json:"error,omitempty"`
	}
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		return openai.ChatCompletionStreamResponse{}, fmt.Errorf("decode completion chunk: %w", err)
	}
	if envelope.Error != nil {
		msg := envelope.Error.Message
		if msg == "" {
			msg = "upstream reported an error"
		}
		return openai.ChatCompletionStreamResponse{}, errors.New("completion stream error: " + msg)
	}
	return envelope.ChatCompletionStreamResponse, nil
}
