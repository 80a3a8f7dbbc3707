// Package vcache is the in-process verification cache: normalized citation
// key → VerificationRecord. The cache is bounded by an LRU policy so long
// sessions across many documents cannot grow it without limit, and it is an
// explicitly constructed value injected into the verifier rather than
// package-global state.
package vcache

import (
	"container/list"
	"sync"

	"github.com/jgowrie/advocate/internal/schema"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 4096

// Cache is a mutex-guarded LRU of verification records. The lock serializes
// the read-miss → network → write sequence enough to bound duplicate lookups
// for the same key; two near-simultaneous first lookups of a brand-new key
// may still both hit the network. Last write wins, which is acceptable
// because verification is idempotent per key.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used; values are *entry
	items    map[string]*list.Element
}

type entry struct {
	key string
	rec schema.VerificationRecord
}

// New returns a cache bounded to capacity entries. Non-positive capacities
// fall back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the record for key and whether it was present. A hit refreshes
// the entry's recency.
func (c *Cache) Get(key string) (schema.VerificationRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return schema.VerificationRecord{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).rec, true
}

// Put stores rec under key, overwriting any existing record and evicting the
// least recently used entry when the cache is full.
func (c *Cache) Put(key string, rec schema.VerificationRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).rec = rec
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&entry{key: key, rec: rec})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).key)
	}
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
