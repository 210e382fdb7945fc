// Package conversation stores one conversation document per identity.
package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/infrastructure/observability"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// ErrNotFound is returned by repositories when an identity has no document.
var ErrNotFound = errors.New("conversation document not found")

// Repository persists conversation documents keyed by identity. Save
// overwrites the whole document.
type Repository interface {
	Find(ctx context.Context, identity string) (*chat.Document, error)
	Save(ctx context.Context, identity string, doc *chat.Document) error
}

type Service struct {
	repo      Repository
	log       zerolog.Logger
	sanitizer *observability.Sanitizer
}

type Option func(*Service)

// WithSanitizer pseudonymizes identities in log records.
func WithSanitizer(sanitizer *observability.Sanitizer) Option {
	return func(s *Service) { s.sanitizer = sanitizer }
}

func NewService(repo Repository, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		log:  log.With().Str("component", "conversation").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the document stored for identity.
func (s *Service) Get(ctx context.Context, identity string) (*chat.Document, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "identity is required", nil, "2e0c8f4a-61d3-4b9e-8a7f-3c5d1e9b0a24")
	}

	doc, err := s.repo.Find(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "no conversation stored for identity", err, "7b41d2e9-0c5a-4f83-9e16-a2d8c4f7b531")
	}
	if err != nil {
		s.log.Error().Err(err).Str("identity", s.sanitizer.Identity(identity)).Msg("load conversation document")
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load conversation")
	}
	return doc, nil
}

// Save overwrites the document stored for identity. Last write wins.
func (s *Service) Save(ctx context.Context, identity string, doc *chat.Document) error {
	if strings.TrimSpace(identity) == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "identity is required", nil, "d6a9e3b0-4f1c-42d7-b8e5-90c3a7f1d268")
	}
	if doc == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "document is required", nil, "0f8b5c27-93ae-4d61-a4c0-e7b2d9f3168a")
	}
	for _, turn := range doc.Messages {
		if !turn.Role.Valid() {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "unknown role "+string(turn.Role), nil, "c3e7a1f5-28bd-4906-9f4e-6d0b8a2c5e17")
		}
	}
	if doc.Messages == nil {
		doc.Messages = chat.Conversation{}
	}

	if err := s.repo.Save(ctx, identity, doc); err != nil {
		s.log.Error().Err(err).Str("identity", s.sanitizer.Identity(identity)).Msg("save conversation document")
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save conversation")
	}
	s.log.Debug().Str("identity", s.sanitizer.Identity(identity)).Int("turns", len(doc.Messages)).Msg("conversation saved")
	return nil
}
