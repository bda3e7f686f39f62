package cache

import (
	"container/list"
	"sync"
)

// LRU is a size-bounded cache that evicts the least recently used entry.
// Entries never expire on their own; keys are expected to identify an
// immutable value.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[K]*list.Element
	order   *list.List
	onEvict func(K, V)
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

var _ Cache[string, int] = (*LRU[string, int])(nil)

// NewLRU creates a cache holding at most maxSize entries (minimum 1).
func NewLRU[K comparable, V any](maxSize int) *LRU[K, V] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRU[K, V]{
		maxSize: maxSize,
		items:   make(map[K]*list.Element),
		order:   list.New(),
	}
}

// OnEvict registers fn to be called, under the cache lock, for every entry
// dropped because the cache was full.
func (c *LRU[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get retrieves a value and marks it most recently used
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Set stores a value, evicting the oldest entry when over capacity
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		e := oldest.Value.(*entry[K, V])
		c.removeElement(oldest)
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
	}
}

// Delete removes a key from the cache
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element)
	c.order.Init()
}

func (c *LRU[K, V]) removeElement(elem *list.Element) {
	delete(c.items, elem.Value.(*entry[K, V]).key)
	c.order.Remove(elem)
}

// Size returns the current number of items in the cache
func (c *LRU[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
