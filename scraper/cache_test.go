package scraper

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	cache := NewCache[string](time.Minute)

	if _, ok := cache.Get("missing"); ok {
		t.Error("Expected miss for unknown key")
	}

	cache.Set("key", "value")
	got, ok := cache.Get("key")
	if !ok || got != "value" {
		t.Errorf("Expected hit with %q, got %q (ok=%v)", "value", got, ok)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected Len 1, got %d", cache.Len())
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache[int](10 * time.Millisecond)

	cache.Set("n", 42)
	time.Sleep(25 * time.Millisecond)

	if _, ok := cache.Get("n"); ok {
		t.Error("Expected expired entry to miss")
	}
	if cache.Len() != 0 {
		t.Errorf("Expected expired entry dropped, Len = %d", cache.Len())
	}
}

func TestCacheDelete(t *testing.T) {
	cache := NewCache[string](time.Minute)

	cache.Set("key", "value")
	cache.Delete("key")
	if _, ok := cache.Get("key"); ok {
		t.Error("Expected miss after delete")
	}
}
