// Package cache holds serialized tool results for a short time so repeated
// identical tool calls do not spend upstream API quota.
package cache

import (
	"encoding/json"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"fitgate/pkg/logging"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a TTL map from Key strings to serialized results.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	ttl           time.Duration
	sweepInterval time.Duration
	clock         clock.PassiveClock

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// New creates a cache. A zero or negative ttl disables caching: Set is a
// no-op and Get always misses.
func New(ttl time.Duration, clk clock.PassiveClock) *Cache {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Cache{
		entries:       make(map[string]entry),
		ttl:           ttl,
		sweepInterval: DefaultSweepInterval,
		clock:         clk,
		stopCleanup:   make(chan struct{}),
	}
}

// Get returns the value for key. An expired entry is evicted and reported
// as absent.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *Cache) Set(key string, value []byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep evicts expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			count++
		}
	}
	if count > 0 {
		logging.Debug("Cache", "Swept %d expired entries", count)
	}
	return count
}

// Start runs the periodic sweep until Stop is called.
func (c *Cache) Start() {
	go func() {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-c.stopCleanup:
				return
			}
		}
	}()
}

// Stop stops the background sweep. It is safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

// Key builds a deterministic cache key from a tool name and its arguments.
// Parameter order does not matter; names are quoted so no argument name can
// reproduce another call's key.
func Key(tool string, params map[string]any) string {
	if len(params) == 0 {
		return tool
	}
	// encoding/json sorts map keys.
	encoded, err := json.Marshal(params)
	if err != nil {
		// Unserializable values cannot come from a JSON-RPC request.
		return tool + "|?"
	}
	return tool + "|" + string(encoded)
}
