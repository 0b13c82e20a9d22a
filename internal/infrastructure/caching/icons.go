package caching

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

// IconCacheKey identifies a rendered icon: source URL plus target pixel
// size, since the same URL is rasterized at different densities.
func IconCacheKey(url string, widthPx, heightPx int) string {
	return fmt.Sprintf("%s#%d,%d", url, widthPx, heightPx)
}

// IconCache is a capacity-bounded in-memory LRU of rendered marker icons,
// shared by all map sessions and accessed from background workers.
type IconCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List               // front = most recently used
	entries  map[string]*list.Element // value: *iconEntry
}

type iconEntry struct {
	key    string
	bitmap *native.IconBitmap
}

// NewIconCache creates an icon cache holding at most capacity entries.
func NewIconCache(capacity int) *IconCache {
	if capacity < 1 {
		capacity = 1
	}
	return &IconCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached bitmap and promotes the entry.
func (c *IconCache) Get(key string) (*native.IconBitmap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*iconEntry).bitmap, true
}

// Put stores a bitmap, evicting the least-recently-used entry when over
// capacity.
func (c *IconCache) Put(key string, bitmap *native.IconBitmap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*iconEntry).bitmap = bitmap
		c.order.MoveToFront(elem)
		return
	}
	c.entries[key] = c.order.PushFront(&iconEntry{key: key, bitmap: bitmap})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*iconEntry).key)
	}
}

// Len returns the number of cached icons.
func (c *IconCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
