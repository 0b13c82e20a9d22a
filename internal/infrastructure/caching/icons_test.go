package caching

import (
	"testing"

	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

func bitmap(w, h int) *native.IconBitmap {
	return &native.IconBitmap{Width: w, Height: h}
}

func TestIconCacheKey(t *testing.T) {
	key := IconCacheKey("http://example.com/pin.png", 22, 32)
	if key != "http://example.com/pin.png#22,32" {
		t.Fatalf("key = %q", key)
	}
	if key == IconCacheKey("http://example.com/pin.png", 44, 64) {
		t.Fatal("different sizes share a key")
	}
}

func TestIconCacheEvictsOverCapacity(t *testing.T) {
	cache := NewIconCache(2)

	cache.Put("a", bitmap(1, 1))
	cache.Put("b", bitmap(2, 2))
	cache.Put("c", bitmap(3, 3))

	if cache.Len() != 2 {
		t.Fatalf("Len = %d, want 2", cache.Len())
	}
	if _, ok := cache.Get("a"); ok {
		t.Fatal("oldest entry survived eviction")
	}
	if got, ok := cache.Get("c"); !ok || got.Width != 3 {
		t.Fatalf("Get(c) = (%+v, %v)", got, ok)
	}
}

func TestIconCacheGetPromotes(t *testing.T) {
	cache := NewIconCache(2)

	cache.Put("a", bitmap(1, 1))
	cache.Put("b", bitmap(2, 2))
	if _, ok := cache.Get("a"); !ok {
		t.Fatal("a missing")
	}
	cache.Put("c", bitmap(3, 3))

	if _, ok := cache.Get("a"); !ok {
		t.Fatal("promoted entry evicted")
	}
	if _, ok := cache.Get("b"); ok {
		t.Fatal("least recently used entry survived")
	}
}

func TestIconCachePutReplacesExistingKey(t *testing.T) {
	cache := NewIconCache(2)

	cache.Put("a", bitmap(1, 1))
	cache.Put("a", bitmap(9, 9))

	if cache.Len() != 1 {
		t.Fatalf("Len = %d, want 1", cache.Len())
	}
	if got, ok := cache.Get("a"); !ok || got.Width != 9 {
		t.Fatalf("Get(a) = (%+v, %v)", got, ok)
	}
}
