// Package caching provides the short-TTL sharing-result cache consulted
// by the sharing prober. A single resolution pass always operates on
// the coherent result map it fetched; this cache only spares repeated
// portal traffic across passes within the TTL window.
package caching

import (
	"sync"
	"time"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
)

// SharingCache mirrors the read-through contract the prober consumes.
type SharingCache interface {
	Get(tenantID, itemID string) (visibility.SharingResult, bool)
	Set(tenantID, itemID string, result visibility.SharingResult)
}

type memoryEntry struct {
	result    visibility.SharingResult
	expiresAt time.Time
}

// MemorySharingCache is the default in-process cache.
type MemorySharingCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemorySharingCache creates an in-process sharing cache with the
// given TTL. A non-positive TTL disables expiry.
func NewMemorySharingCache(ttl time.Duration) *MemorySharingCache {
	return &MemorySharingCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func sharingKey(tenantID, itemID string) string {
	return tenantID + ":" + itemID
}

// Get returns the cached sharing result for an item, if present and fresh.
func (c *MemorySharingCache) Get(tenantID, itemID string) (visibility.SharingResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[sharingKey(tenantID, itemID)]
	c.mu.RUnlock()

	if !ok {
		return visibility.SharingResult{}, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, sharingKey(tenantID, itemID))
		c.mu.Unlock()
		return visibility.SharingResult{}, false
	}
	return entry.result, true
}

// Set stores a sharing result for an item.
func (c *MemorySharingCache) Set(tenantID, itemID string, result visibility.SharingResult) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[sharingKey(tenantID, itemID)] = memoryEntry{result: result, expiresAt: expiresAt}
	c.mu.Unlock()
}

// InvalidateTenant drops every cached entry for a tenant. Called when a
// tenant's map configuration document is reloaded.
func (c *MemorySharingCache) InvalidateTenant(tenantID string) {
	prefix := tenantID + ":"

	c.mu.Lock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Purge removes every expired entry. Invoked periodically by the
// background cleanup loop.
func (c *MemorySharingCache) Purge() int {
	now := time.Now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}
