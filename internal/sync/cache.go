package sync

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// batchCacheCap bounds the idempotency cache. Entries are whole encoded
// responses; losing one is safe (the client recovers through the invalid
// key path), so the cache is never persisted.
const batchCacheCap = 1024

// BatchCache holds encoded Sync responses keyed by
// (user, device, collection, pending key) for idempotent resends.
type BatchCache struct {
	cache *ristretto.Cache[string, []byte]
}

// NewBatchCache builds the shared response cache.
func NewBatchCache() (*BatchCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: batchCacheCap * 10,
		MaxCost:     batchCacheCap,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create batch cache: %w", err)
	}
	return &BatchCache{cache: cache}, nil
}

func cacheKey(user, deviceID, collectionID, syncKey string) string {
	return user + "|" + deviceID + "|" + collectionID + "|" + syncKey
}

// Put stores an encoded response. Wait makes the entry visible before the
// response is written, so an immediate resend hits.
func (c *BatchCache) Put(user, deviceID, collectionID, syncKey string, payload []byte) {
	c.cache.Set(cacheKey(user, deviceID, collectionID, syncKey), payload, 1)
	c.cache.Wait()
}

// Get returns the cached response for a pending key, if still resident.
func (c *BatchCache) Get(user, deviceID, collectionID, syncKey string) ([]byte, bool) {
	return c.cache.Get(cacheKey(user, deviceID, collectionID, syncKey))
}

// Close releases the cache's internal goroutines.
func (c *BatchCache) Close() {
	c.cache.Close()
}
