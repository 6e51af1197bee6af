package resolver

import (
	"container/list"
	"sync"
	"time"

	"github.com/signalhouse/dispatch/internal/domain"
)

const (
	templateCacheSize = 500
	templateCacheTTL  = 5 * time.Minute
)

type cacheEntry struct {
	key       string
	template  *domain.Template
	expiresAt time.Time
}

// templateCache is a mutex-guarded LRU with TTL expiry. A hit refreshes
// the entry's position; inserting past capacity evicts the least
// recently used entry.
type templateCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front is most recently used
	entries  map[string]*list.Element
}

func newTemplateCache(capacity int, ttl time.Duration) *templateCache {
	return &templateCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (c *templateCache) get(key string) (*domain.Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return entry.template, true
}

func (c *templateCache) put(key string, template *domain.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.template = template
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:       key,
		template:  template,
		expiresAt: expiresAt,
	})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *templateCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
}

func (c *templateCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
