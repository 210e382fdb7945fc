package conversationrepo

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/janhq/support-chat/internal/domain/chat"
)

// LRUCache holds recently used documents in process memory.
type LRUCache struct {
	cache *lru.Cache
	ttl   time.Duration
	locks sync.Map
	now   func() time.Time
}

type lruEntry struct {
	doc       *chat.Document
	expiresAt time.Time
}

var _ DocumentCache = (*LRUCache)(nil)

func NewLRUCache(size int, ttl time.Duration) (*LRUCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: cache, ttl: ttl, now: time.Now}, nil
}

func (c *LRUCache) Name() string { return "lru" }

func (c *LRUCache) Get(_ context.Context, identity string) (*chat.Document, bool) {
	val, found := c.cache.Get(identity)
	if !found {
		return nil, false
	}
	entry := val.(lruEntry)
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		c.cache.Remove(identity)
		return nil, false
	}
	return cloneDocument(entry.doc), true
}

func (c *LRUCache) Set(_ context.Context, identity string, doc *chat.Document) {
	c.cache.Add(identity, lruEntry{
		doc:       cloneDocument(doc),
		expiresAt: c.now().Add(c.ttl),
	})
}

func (c *LRUCache) Invalidate(_ context.Context, identity string) {
	c.cache.Remove(identity)
}

// Lock serializes writers per identity within this process.
func (c *LRUCache) Lock(_ context.Context, identity string, fn func() error) error {
	mu, _ := c.locks.LoadOrStore(identity, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()
	return fn()
}
