package conversationrepo

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
)

// DocumentCache is a read cache in front of a Repository. Lock serializes
// writes and cache fills for one identity so the backend and cache never
// diverge.
type DocumentCache interface {
	Name() string
	Get(ctx context.Context, identity string) (*chat.Document, bool)
	Set(ctx context.Context, identity string, doc *chat.Document)
	Invalidate(ctx context.Context, identity string)
	Lock(ctx context.Context, identity string, fn func() error) error
}

// CachedRepository reads through the cache and writes through to both the
// backend and the cache. Concurrent misses for one identity share a single
// backend read.
type CachedRepository struct {
	next   conversation.Repository
	cache  DocumentCache
	log    zerolog.Logger
	misses singleflight.Group
}

var _ conversation.Repository = (*CachedRepository)(nil)

func NewCachedRepository(next conversation.Repository, cache DocumentCache, log zerolog.Logger) *CachedRepository {
	return &CachedRepository{
		next:  next,
		cache: cache,
		log:   log.With().Str("component", "docstore-cache").Str("cache", cache.Name()).Logger(),
	}
}

func (repo *CachedRepository) Find(ctx context.Context, identity string) (*chat.Document, error) {
	if doc, ok := repo.cache.Get(ctx, identity); ok {
		metrics.RecordCacheLookup(repo.cache.Name(), true)
		return doc, nil
	}
	metrics.RecordCacheLookup(repo.cache.Name(), false)

	shared, err, _ := repo.misses.Do(identity, func() (any, error) {
		return repo.fill(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return cloneDocument(shared.(*chat.Document)), nil
}

// fill reads the backend and caches the result under the identity's write
// lock, so a concurrent Save cannot be overwritten by an older read.
func (repo *CachedRepository) fill(ctx context.Context, identity string) (*chat.Document, error) {
	var (
		doc    *chat.Document
		locked bool
	)
	err := repo.cache.Lock(ctx, identity, func() error {
		locked = true
		if cached, ok := repo.cache.Get(ctx, identity); ok {
			doc = cached
			return nil
		}
		found, err := repo.next.Find(ctx, identity)
		if err != nil {
			return err
		}
		repo.cache.Set(ctx, identity, found)
		doc = found
		return nil
	})
	if err != nil && !locked {
		repo.log.Warn().Err(err).Msg("cache lock unavailable, reading backend directly")
		return repo.next.Find(ctx, identity)
	}
	return doc, err
}

func (repo *CachedRepository) Save(ctx context.Context, identity string, doc *chat.Document) error {
	return repo.cache.Lock(ctx, identity, func() error {
		if err := repo.next.Save(ctx, identity, doc); err != nil {
			repo.cache.Invalidate(ctx, identity)
			return err
		}
		repo.cache.Set(ctx, identity, doc)
		return nil
	})
}

func cloneDocument(doc *chat.Document) *chat.Document {
	if doc == nil {
		return nil
	}
	messages := doc.Messages.Clone()
	if messages == nil {
		messages = chat.Conversation{}
	}
	return &chat.Document{Messages: messages}
}
