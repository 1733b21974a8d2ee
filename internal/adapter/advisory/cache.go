package advisory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/couchcryptid/island-resilience-service/internal/domain"
	"github.com/couchcryptid/island-resilience-service/internal/observability"
)

// CachedAdvisor wraps an Advisor with an in-memory LRU cache keyed by the
// request content. Identical scope and context give the same report without
// another round trip.
type CachedAdvisor struct {
	inner   domain.Advisor
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedAdvisor creates a cache decorator around an advisor.
func NewCachedAdvisor(inner domain.Advisor, maxEntries int, metrics *observability.Metrics) *CachedAdvisor {
	return &CachedAdvisor{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedAdvisor) Advise(ctx context.Context, scope string, advisory domain.AdvisoryContext) (string, error) {
	key, err := cacheKey(scope, advisory)
	if err != nil {
		return c.inner.Advise(ctx, scope, advisory)
	}
	if text, ok := c.cache.get(key); ok {
		c.metrics.AdvisoryCache.WithLabelValues("hit").Inc()
		return text, nil
	}
	c.metrics.AdvisoryCache.WithLabelValues("miss").Inc()

	text, err := c.inner.Advise(ctx, scope, advisory)
	if err != nil {
		return text, err
	}
	// Only cache replies that parse, so a malformed answer is asked again next time.
	if _, perr := domain.ParseAdvisorReply(text); perr == nil {
		c.cache.put(key, text)
	}
	return text, nil
}

func cacheKey(scope string, advisory domain.AdvisoryContext) (string, error) {
	payload, err := json.Marshal(advisory)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// lruCache is a thread-safe LRU cache of reply texts.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value string
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	for len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *lruCache) evictOldest() {
	oldest := c.tail
	if oldest == nil {
		return
	}
	c.unlink(oldest)
	delete(c.entries, oldest.key)
}
