// Package cache provides a byte-budgeted cache with LRU eviction.
//
// The cache is bounded by the total accounted size of its entries rather
// than by entry count. Eviction is purely size and recency driven; there
// is no expiry by age and no external invalidation API. Each cache
// instance is exclusively owned by the server instance that created it.
package cache

import (
	"sync"
	"sync/atomic"
)

// Sizer computes the byte size charged against the budget for an entry.
type Sizer[V any] func(key string, value V) int64

// StringSizer accounts a string entry as key length plus value length.
func StringSizer(key, value string) int64 {
	return int64(len(key) + len(value))
}

// BytesSizer accounts a byte-slice entry as key length plus value length.
func BytesSizer(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

// Cache is a key-value cache with LRU eviction bounded by a byte budget.
//
// Invariants: keys are unique; after every Set the sum of entry sizes is
// at or below maxBytes, except when a single entry alone exceeds the
// budget. Such oversized entries are stored anyway (evicting everything
// else) rather than rejected; the next insertion evicts them immediately.
type Cache[V any] struct {
	entries      map[string]*entry[V]
	mutex        sync.RWMutex
	maxBytes     int64
	currentBytes int64
	sizer        Sizer[V]

	// LRU doubly-linked list with dummy head and tail
	head *entry[V]
	tail *entry[V]

	// Statistics tracking (atomic for cheap reads)
	hits      int64
	misses    int64
	sets      int64
	evictions int64
}

type entry[V any] struct {
	key   string
	value V
	size  int64
	prev  *entry[V]
	next  *entry[V]
}

// Stats is a snapshot of cache counters and accounting.
type Stats struct {
	Entries   int   `json:"entries"`
	Bytes     int64 `json:"bytes"`
	MaxBytes  int64 `json:"max_bytes"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Evictions int64 `json:"evictions"`
}

// New creates a cache with the given byte budget and size function.
func New[V any](maxBytes int64, sizer Sizer[V]) *Cache[V] {
	c := &Cache[V]{
		entries:  make(map[string]*entry[V]),
		maxBytes: maxBytes,
		sizer:    sizer,
	}

	c.head = &entry[V]{}
	c.tail = &entry[V]{}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get retrieves a value and promotes its entry to most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		var zero V
		return zero, false
	}

	c.moveToFront(e)
	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// Set stores a value, evicting least-recently-used entries until the
// total accounted size fits the budget. Entries are replaced wholesale;
// values are never mutated in place.
func (c *Cache[V]) Set(key string, value V) {
	size := c.sizer(key, value)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, exists := c.entries[key]; exists {
		c.currentBytes += size - existing.size
		existing.value = value
		existing.size = size
		c.moveToFront(existing)
		c.evictOverBudget()
		atomic.AddInt64(&c.sets, 1)
		return
	}

	c.evictIfNeeded(size)

	e := &entry[V]{key: key, value: value, size: size}
	c.entries[key] = e
	c.currentBytes += size
	c.addToFront(e)
	atomic.AddInt64(&c.sets, 1)
}

// evictIfNeeded evicts LRU entries until a new entry of newSize fits.
func (c *Cache[V]) evictIfNeeded(newSize int64) {
	for c.currentBytes+newSize > c.maxBytes && c.tail.prev != c.head {
		c.evictLRU()
	}
}

// evictOverBudget evicts LRU entries while the cache exceeds its budget,
// never removing the sole remaining entry.
func (c *Cache[V]) evictOverBudget() {
	for c.currentBytes > c.maxBytes && len(c.entries) > 1 {
		c.evictLRU()
	}
}

func (c *Cache[V]) evictLRU() {
	lru := c.tail.prev
	c.removeFromList(lru)
	delete(c.entries, lru.key)
	c.currentBytes -= lru.size
	atomic.AddInt64(&c.evictions, 1)
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Bytes returns the current accounted size.
func (c *Cache[V]) Bytes() int64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.currentBytes
}

// Stats returns a snapshot of cache statistics.
func (c *Cache[V]) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return Stats{
		Entries:   len(c.entries),
		Bytes:     c.currentBytes,
		MaxBytes:  c.maxBytes,
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

// Clear drops all entries and resets counters.
func (c *Cache[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*entry[V])
	c.currentBytes = 0
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.sets, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// LRU doubly-linked list operations

func (c *Cache[V]) addToFront(e *entry[V]) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *Cache[V]) removeFromList(e *entry[V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (c *Cache[V]) moveToFront(e *entry[V]) {
	c.removeFromList(e)
	c.addToFront(e)
}
