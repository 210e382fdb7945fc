package conversationrepo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/infrastructure/cache"
	"github.com/janhq/support-chat/internal/infrastructure/observability"
)

const lockTTL = 10 * time.Second

// RedisCache shares cached documents between server instances. Redis
// failures degrade to cache misses.
type RedisCache struct {
	rdb       *cache.RedisCache
	ttl       time.Duration
	log       zerolog.Logger
	sanitizer *observability.Sanitizer
}

var _ DocumentCache = (*RedisCache)(nil)

// NewRedisCache logs identities through sanitizer; a nil sanitizer hashes them.
func NewRedisCache(rdb *cache.RedisCache, ttl time.Duration, log zerolog.Logger, sanitizer *observability.Sanitizer) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl, log: log, sanitizer: sanitizer}
}

func (c *RedisCache) Name() string { return "redis" }

func (c *RedisCache) Get(ctx context.Context, identity string) (*chat.Document, bool) {
	doc, err := cache.GetJSON[chat.Document](ctx, c.rdb, documentKey(identity))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.log.Warn().Err(err).Str("identity", c.sanitizer.Identity(identity)).Msg("read cached conversation")
		}
		return nil, false
	}
	if doc.Messages == nil {
		doc.Messages = chat.Conversation{}
	}
	return doc, true
}

func (c *RedisCache) Set(ctx context.Context, identity string, doc *chat.Document) {
	if err := cache.SetJSON(ctx, c.rdb, documentKey(identity), doc, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("identity", c.sanitizer.Identity(identity)).Msg("cache conversation")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, identity string) {
	if err := c.rdb.Delete(ctx, documentKey(identity)); err != nil {
		c.log.Warn().Err(err).Str("identity", c.sanitizer.Identity(identity)).Msg("invalidate cached conversation")
	}
}

func (c *RedisCache) Lock(ctx context.Context, identity string, fn func() error) error {
	return cache.WithLock(ctx, c.rdb, "lock:"+documentKey(identity), lockTTL, fn)
}

func documentKey(identity string) string {
	return "support-chat:" + cache.CacheVersion + ":conversation:" + identity
}
