package embeddings

import (
	"container/list"
	"sync"
)

// CachePolicy stores embeddings by key. Implementations must be safe for
// concurrent use.
type CachePolicy interface {
	Get(key string) (Vector, bool)
	Put(key string, v Vector)
	Len() int
}

// UnboundedCache keeps every entry for the lifetime of the process.
type UnboundedCache struct {
	mu      sync.RWMutex
	entries map[string]Vector
}

func NewUnboundedCache() *UnboundedCache {
	return &UnboundedCache{entries: make(map[string]Vector)}
}

func (c *UnboundedCache) Get(key string) (Vector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *UnboundedCache) Put(key string, v Vector) {
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
}

func (c *UnboundedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LRUCache evicts the least recently used entry once it holds size entries.
type LRUCache struct {
	mu    sync.Mutex
	size  int
	order *list.List // front is most recently used
	items map[string]*list.Element
}

type lruEntry struct {
	key string
	vec Vector
}

// NewLRUCache returns a cache bounded to size entries. A size of zero or
// less gives an unbounded policy.
func NewLRUCache(size int) CachePolicy {
	if size <= 0 {
		return NewUnboundedCache()
	}
	return &LRUCache{
		size:  size,
		order: list.New(),
		items: make(map[string]*list.Element, size),
	}
}

func (c *LRUCache) Get(key string) (Vector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).vec, true
}

func (c *LRUCache) Put(key string, v Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).vec = v
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&lruEntry{key: key, vec: v})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
}

func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
