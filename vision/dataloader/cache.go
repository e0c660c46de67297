package dataloader

import (
	"container/list"
	"fmt"
	"sync"
)

// decodeCache keeps recently decoded images in memory so later epochs
// skip re-reading and re-decoding files, evicting least-recently-used
// entries once full.
type decodeCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	lru     *list.List
	lruMap  map[string]*list.Element
	maxSize int

	hits   int64
	misses int64
}

func newDecodeCache(maxSize int) *decodeCache {
	return &decodeCache{
		entries: make(map[string][]float32),
		lru:     list.New(),
		lruMap:  make(map[string]*list.Element),
		maxSize: maxSize,
	}
}

func (c *decodeCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if data, ok := c.entries[key]; ok {
		if elem, ok := c.lruMap[key]; ok {
			c.lru.MoveToFront(elem)
		}
		c.hits++
		return data, true
	}
	c.misses++
	return nil, false
}

func (c *decodeCache) put(key string, data []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		if elem, ok := c.lruMap[key]; ok {
			c.lru.MoveToFront(elem)
		}
		return
	}

	elem := c.lru.PushFront(key)
	c.lruMap[key] = elem
	c.entries[key] = data

	for len(c.entries) > c.maxSize && c.lru.Len() > 0 {
		oldest := c.lru.Back()
		oldKey := oldest.Value.(string)
		c.lru.Remove(oldest)
		delete(c.lruMap, oldKey)
		delete(c.entries, oldKey)
	}
}

func (c *decodeCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

// CacheStats reports decode-cache effectiveness
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    int64
	Misses  int64
	HitRate float64
}

func (cs CacheStats) String() string {
	return fmt.Sprintf("cache: %d/%d items, hits=%d, misses=%d, hit rate=%.1f%%",
		cs.Size, cs.MaxSize, cs.Hits, cs.Misses, cs.HitRate)
}
