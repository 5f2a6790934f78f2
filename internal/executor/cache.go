package executor

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"
)

const defaultCacheCapacity = 256

// resultCache is an LRU cache with per-entry TTLs. Capacity eviction and
// TTL expiry are independent: a fresh entry can be evicted under pressure,
// and a stale entry is dropped on read even when capacity is free.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key       string
	value     any
	ttl       time.Duration
	createdAt time.Time
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &resultCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// cacheKey is toolName + canonicalized arguments. json.Marshal sorts map
// keys, which gives a stable serialization for identical argument sets.
func cacheKey(toolName string, args map[string]any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return toolName
	}
	return toolName + ":" + string(b)
}

func (c *resultCache) get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if entry.ttl > 0 && time.Since(entry.createdAt) > entry.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.value, true
}

func (c *resultCache) put(key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.ttl = ttl
		entry.createdAt = time.Now()
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&cacheEntry{key: key, value: value, ttl: ttl, createdAt: time.Now()})
	c.entries[key] = el
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// clear drops the whole cache. There is no per-key or pattern invalidation.
func (c *resultCache) clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element, c.capacity)
}

func (c *resultCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
