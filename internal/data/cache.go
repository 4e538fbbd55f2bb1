package data

import (
	"fmt"
	"os"
	"sync"
	"time"

	"lookahead-backtest/internal/model"
)

type cacheEntry struct {
	series    model.PriceSeries
	expiresAt time.Time
}

// SeriesCache keeps parsed price files in memory. Entries are keyed by path,
// size and modification time, so an edited file is re-read.
type SeriesCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewSeriesCache(ttl time.Duration) *SeriesCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SeriesCache{
		store: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Load returns the cached series for path or reads it with LoadSeries.
func (c *SeriesCache) Load(path string) (model.PriceSeries, error) {
	if c == nil {
		return LoadSeries(path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return model.PriceSeries{}, err
	}
	key := fmt.Sprintf("%s:%d:%d", path, fi.Size(), fi.ModTime().UnixNano())
	if s, ok := c.Get(key); ok {
		return s, nil
	}
	s, err := LoadSeries(path)
	if err != nil {
		return model.PriceSeries{}, err
	}
	c.Set(key, s)
	return s, nil
}

// Get retrieves a cached series if available and not expired.
func (c *SeriesCache) Get(key string) (model.PriceSeries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return model.PriceSeries{}, false
	}
	return entry.series, true
}

// Set stores a series and drops expired entries.
func (c *SeriesCache) Set(key string, s model.PriceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
	c.store[key] = &cacheEntry{series: s, expiresAt: now.Add(c.ttl)}
}

func (c *SeriesCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache.
func (c *SeriesCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*cacheEntry)
}
