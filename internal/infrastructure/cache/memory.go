package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unpackeat/backend/internal/domain"
)

const cleanupInterval = 10 * time.Minute

// cacheItem represents a single record in the store with expiration
type cacheItem struct {
	Record     domain.ProductRecord
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory product store with TTL support.
// It backs the internal store when no database is configured.
type MemoryCache struct {
	data  map[string]cacheItem
	ttl   time.Duration
	now   func() time.Time
	mutex sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a new in-memory store. A zero ttl keeps records forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]cacheItem),
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}

	go cache.cleanupExpired(cleanupInterval)

	return cache
}

// Get retrieves a record by barcode
func (c *MemoryCache) Get(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[barcode]
	if !exists || c.expired(item) {
		return nil, fmt.Errorf("%w: %w", domain.ErrProductNotFound, domain.ErrCacheMiss)
	}

	record := cloneRecord(item.Record)
	return &record, nil
}

// Upsert inserts or replaces the record stored under its barcode
func (c *MemoryCache) Upsert(ctx context.Context, record *domain.ProductRecord) error {
	if record == nil || record.Barcode == "" {
		return domain.ErrInvalidInput
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Copy the payload so callers can't mutate stored data
	stored := cloneRecord(*record)
	stored.UpdatedAt = c.now()

	item := cacheItem{Record: stored}
	if c.ttl > 0 {
		item.Expiration = stored.UpdatedAt.Add(c.ttl)
	}
	c.data[record.Barcode] = item

	return nil
}

// Delete removes a record
func (c *MemoryCache) Delete(ctx context.Context, barcode string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, barcode)
	return nil
}

func (c *MemoryCache) expired(item cacheItem) bool {
	return !item.Expiration.IsZero() && c.now().After(item.Expiration)
}

// cleanupExpired removes expired entries periodically until Close is called
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, item := range c.data {
		if c.expired(item) {
			delete(c.data, key)
		}
	}
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// Size returns the current number of records in the store (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all records
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}

func cloneRecord(r domain.ProductRecord) domain.ProductRecord {
	payload := make([]byte, len(r.Payload))
	copy(payload, r.Payload)
	r.Payload = payload
	return r
}
