package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newStringCache(maxBytes int64) *Cache[string] {
	return New(maxBytes, StringSizer)
}

func TestCache_LRUEviction(t *testing.T) {
	t.Run("eviction order", func(t *testing.T) {
		// Each entry is 10 bytes (4 byte key + 6 byte value), 5 fit.
		cache := newStringCache(50)

		for i := 1; i <= 5; i++ {
			cache.Set(fmt.Sprintf("key%d", i), "value*")
		}
		for i := 1; i <= 5; i++ {
			_, found := cache.Get(fmt.Sprintf("key%d", i))
			assert.True(t, found, "key%d should be present", i)
		}

		// One more entry pushes the oldest out.
		cache.Set("key6", "value*")

		_, found := cache.Get("key1")
		assert.False(t, found, "key1 should be evicted as LRU")

		for i := 2; i <= 6; i++ {
			_, found := cache.Get(fmt.Sprintf("key%d", i))
			assert.True(t, found, "key%d should still be present", i)
		}
	})

	t.Run("access promotes entry", func(t *testing.T) {
		cache := newStringCache(40)

		cache.Set("key1", "value*")
		cache.Set("key2", "value*")
		cache.Set("key3", "value*")
		cache.Set("key4", "value*")

		// key1 becomes most recently used.
		cache.Get("key1")

		cache.Set("key5", "value*")

		_, found := cache.Get("key1")
		assert.True(t, found, "key1 should survive after access")
		_, found = cache.Get("key2")
		assert.False(t, found, "key2 should be evicted as LRU")
	})
}

func TestCache_ByteAccounting(t *testing.T) {
	t.Run("size tracked on insert", func(t *testing.T) {
		cache := newStringCache(1000)

		cache.Set("key1", "value1")
		assert.Equal(t, 1, cache.Len())
		assert.Equal(t, int64(10), cache.Bytes())

		cache.Set("key2", "value22")
		assert.Equal(t, 2, cache.Len())
		assert.Equal(t, int64(21), cache.Bytes())
	})

	t.Run("budget never exceeded by multiple entries", func(t *testing.T) {
		cache := newStringCache(100)

		for i := range 50 {
			cache.Set(fmt.Sprintf("key%03d", i), "some value content")
		}

		assert.LessOrEqual(t, cache.Bytes(), int64(100))
		assert.Greater(t, cache.Len(), 0)
	})

	t.Run("update adjusts accounting", func(t *testing.T) {
		cache := newStringCache(1000)

		cache.Set("key1", "short")
		cache.Set("key1", "a considerably longer value")

		assert.Equal(t, 1, cache.Len(), "update must not duplicate the key")
		assert.Equal(t, int64(len("key1")+len("a considerably longer value")), cache.Bytes())

		v, found := cache.Get("key1")
		assert.True(t, found)
		assert.Equal(t, "a considerably longer value", v)
	})
}

func TestCache_OversizedSingleton(t *testing.T) {
	// An entry bigger than the whole budget is stored anyway; it evicts
	// everything else and is itself evicted by the next insertion.
	cache := newStringCache(20)

	cache.Set("small", "v")
	cache.Set("big", string(make([]byte, 100)))

	_, found := cache.Get("small")
	assert.False(t, found, "oversized insert should evict prior entries")

	v, found := cache.Get("big")
	assert.True(t, found, "oversized entry is stored, not rejected")
	assert.Len(t, v, 100)

	cache.Set("next", "value")
	_, found = cache.Get("big")
	assert.False(t, found, "oversized entry is evicted by the next insert")
}

func TestCache_Stats(t *testing.T) {
	cache := newStringCache(1000)

	cache.Set("key1", "value1")
	cache.Get("key1")
	cache.Get("absent")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1000), stats.MaxBytes)
	assert.Equal(t, cache.Bytes(), stats.Bytes)
}

func TestCache_Clear(t *testing.T) {
	cache := newStringCache(1000)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, int64(0), cache.Bytes())

	_, found := cache.Get("key1")
	assert.False(t, found)

	cache.Set("key3", "value3")
	_, found = cache.Get("key3")
	assert.True(t, found, "cache should remain usable after Clear")
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := newStringCache(10000)
	var wg sync.WaitGroup

	for i := range 10 {
		cache.Set(fmt.Sprintf("key%d", i), "value")
	}

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				cache.Get(fmt.Sprintf("key%d", j%10))
			}
		}()
	}
	for i := range 5 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range 50 {
				cache.Set(fmt.Sprintf("new%d_%d", id, j), "value")
			}
		}(i)
	}

	wg.Wait()

	assert.Greater(t, cache.Len(), 0)
	assert.LessOrEqual(t, cache.Bytes(), int64(10000))
}

func TestCache_BytesValues(t *testing.T) {
	cache := New(1000, BytesSizer)

	cache.Set("key", []byte("payload"))

	v, found := cache.Get("key")
	assert.True(t, found)
	assert.Equal(t, []byte("payload"), v)
	assert.Equal(t, int64(10), cache.Bytes())
}

func BenchmarkCache_Set(b *testing.B) {
	cache := newStringCache(1 << 20)
	value := string(make([]byte, 100))

	b.ResetTimer()
	for i := range b.N {
		cache.Set(fmt.Sprintf("key%d", i), value)
	}
}

func BenchmarkCache_Get(b *testing.B) {
	cache := newStringCache(1 << 20)
	value := string(make([]byte, 100))
	for i := range 1000 {
		cache.Set(fmt.Sprintf("key%d", i), value)
	}

	b.ResetTimer()
	for i := range b.N {
		cache.Get(fmt.Sprintf("key%d", i%1000))
	}
}
