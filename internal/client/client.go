// Package client implements the support chat session: local conversation
// state, streaming exchanges through the relay and per-identity persistence.
package client

import (
	"context"
	"errors"
	"iter"

	"github.com/janhq/support-chat/internal/domain/chat"
)

var (
	// ErrBusy is returned by Send while another exchange is in flight.
	ErrBusy = errors.New("an exchange is already in flight")
	// ErrBlankInput is returned by Send for empty or whitespace-only input.
	ErrBlankInput = errors.New("input is blank")
	// ErrDocumentNotFound is returned by a DocumentStore when the identity has no document.
	ErrDocumentNotFound = errors.New("conversation document not found")
)

// Identity is a signed-in user. Token authorizes document store calls.
type Identity struct {
	Subject  string
	Username string
	Email    string
	Name     string
	Token    string
}

// DisplayName returns the most human friendly identifier available.
func (i Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Username != "":
		return i.Username
	case i.Email != "":
		return i.Email
	default:
		return i.Subject
	}
}

// Relay streams an assistant reply for a conversation. The returned sequence
// yields raw body chunks; a chunk boundary may split a UTF-8 sequence.
type Relay interface {
	Stream(ctx context.Context, turns chat.Conversation) (iter.Seq2[[]byte, error], error)
}

// DocumentStore loads and overwrites the conversation document of an identity.
type DocumentStore interface {
	Load(ctx context.Context, identity Identity) (*chat.Document, error)
	Save(ctx context.Context, identity Identity, doc *chat.Document) error
}

// FailurePolicy decides how a failed exchange is shown.
type FailurePolicy int

const (
	// FailureAppendApology keeps the emptied placeholder and appends an apology turn.
	FailureAppendApology FailurePolicy = iota
	// FailureReplacePlaceholder turns the placeholder itself into the apology.
	FailureReplacePlaceholder
)

// ParseFailurePolicy maps the configuration value onto a policy.
func ParseFailurePolicy(value string) (FailurePolicy, error) {
	switch value {
	case "", "append":
		return FailureAppendApology, nil
	case "replace":
		return FailureReplacePlaceholder, nil
	}
	return FailureAppendApology, errors.New("unknown failure policy " + value)
}

// State is an immutable snapshot published to observers.
type State struct {
	Conversation chat.Conversation
	Loading      bool
	Identity     *Identity
}
