package caching

import (
	"testing"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
)

func TestMemorySharingCacheRoundTrip(t *testing.T) {
	cache := NewMemorySharingCache(time.Minute)

	if _, ok := cache.Get("t1", "item1"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	cache.Set("t1", "item1", visibility.SharingResult{IsPublic: true})

	got, ok := cache.Get("t1", "item1")
	if !ok || !got.IsPublic {
		t.Errorf("Get = (%v, %v), want public hit", got, ok)
	}

	// Same item under another tenant is a separate entry.
	if _, ok := cache.Get("t2", "item1"); ok {
		t.Errorf("tenants must not share cache entries")
	}
}

func TestMemorySharingCacheExpiry(t *testing.T) {
	cache := NewMemorySharingCache(10 * time.Millisecond)
	cache.Set("t1", "item1", visibility.SharingResult{IsPublic: true})

	time.Sleep(25 * time.Millisecond)

	if _, ok := cache.Get("t1", "item1"); ok {
		t.Errorf("expected entry to expire")
	}
	if removed := cache.Purge(); removed != 0 {
		// Get already evicted the expired entry lazily.
		t.Errorf("Purge removed %d entries, want 0", removed)
	}
}

func TestMemorySharingCachePurge(t *testing.T) {
	cache := NewMemorySharingCache(10 * time.Millisecond)
	cache.Set("t1", "a", visibility.SharingResult{})
	cache.Set("t1", "b", visibility.SharingResult{})

	time.Sleep(25 * time.Millisecond)

	if removed := cache.Purge(); removed != 2 {
		t.Errorf("Purge removed %d entries, want 2", removed)
	}
}

func TestMemorySharingCacheInvalidateTenant(t *testing.T) {
	cache := NewMemorySharingCache(time.Minute)
	cache.Set("t1", "a", visibility.SharingResult{IsPublic: true})
	cache.Set("t2", "a", visibility.SharingResult{IsPublic: true})

	cache.InvalidateTenant("t1")

	if _, ok := cache.Get("t1", "a"); ok {
		t.Errorf("t1 entries should be gone")
	}
	if _, ok := cache.Get("t2", "a"); !ok {
		t.Errorf("t2 entries should survive")
	}
}
