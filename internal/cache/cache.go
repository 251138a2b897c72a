// Package cache implements the Warm Cache: an in-memory map keyed
// by "<layer>:<item-id>", holding priority, payload, load time, and
// access counters. It is process-local and non-durable by design —
// there is deliberately no Redis or LRU-eviction tier here (see
// DESIGN.md).
package cache

import (
	"sort"
	"strings"
	"sync"

	"github.com/cagcore/engine/pkg/models"
)

// WarmCache is a single-writer, concurrent-reader store. A single
// mutex guards both reads and writes; reads are cheap enough (map
// lookups over small in-memory data) that RWMutex would only add
// complexity without a measurable win at the sizes this cache is
// meant to hold (capped at MaxItems by default).
type WarmCache struct {
	mu        sync.Mutex
	threshold float64
	maxItems  int // 0 means unbounded
	entries   map[string]models.CacheEntry
}

// New constructs a Warm Cache with the given insertion threshold
// (default 0.3) and an optional item cap (default 100; 0 disables the
// cap).
func New(threshold float64, maxItems int) *WarmCache {
	return &WarmCache{
		threshold: threshold,
		maxItems:  maxItems,
		entries:   make(map[string]models.CacheEntry),
	}
}

// Threshold returns the configured insertion gate.
func (c *WarmCache) Threshold() float64 {
	return c.threshold
}

// Insert gates on priority >= threshold and, when a MaxItems cap is
// configured, refuses the insert once full rather than evicting an
// existing entry. It reports whether the entry was actually stored.
func (c *WarmCache) Insert(layer models.ContextLayer, id string, entry models.CacheEntry) bool {
	if entry.Priority < c.threshold {
		return false
	}
	key := models.CacheKey(layer, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxItems > 0 && len(c.entries) >= c.maxItems {
		return false
	}
	c.entries[key] = entry
	return true
}

// Get returns the entry for (layer, id), if present.
func (c *WarmCache) Get(layer models.ContextLayer, id string) (models.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[models.CacheKey(layer, id)]
	return e, ok
}

// All returns a snapshot of every entry, keyed by "<layer>:<id>".
func (c *WarmCache) All() map[string]models.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]models.CacheEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// ByLayer returns exactly the subset of entries whose key begins with
// "<layer>:".
func (c *WarmCache) ByLayer(layer models.ContextLayer) map[string]models.CacheEntry {
	prefix := string(layer) + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]models.CacheEntry)
	for k, v := range c.entries {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// TopN returns the top-n entries in a layer (or across all layers when
// layer is empty) ordered by descending priority.
func (c *WarmCache) TopN(layer models.ContextLayer, n int) []models.SampleEntry {
	var source map[string]models.CacheEntry
	if layer == "" {
		source = c.All()
	} else {
		source = c.ByLayer(layer)
	}

	samples := make([]models.SampleEntry, 0, len(source))
	for k, v := range source {
		samples = append(samples, models.SampleEntry{Key: k, Entry: v})
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Entry.Priority > samples[j].Entry.Priority
	})
	if n >= 0 && n < len(samples) {
		samples = samples[:n]
	}
	return samples
}

// Size returns the total number of entries.
func (c *WarmCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats computes total items, distinct layers, mean priority, and a
// cheap memory proxy (sum of serialized content length).
func (c *WarmCache) Stats() models.CacheSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := models.CacheSummary{TotalItems: len(c.entries)}
	if len(c.entries) == 0 {
		return summary
	}

	layers := make(map[string]bool)
	var prioritySum float64
	var memory int
	for k, v := range c.entries {
		layer := strings.SplitN(k, ":", 2)[0]
		layers[layer] = true
		prioritySum += v.Priority
		memory += len(v.Content) + len(v.Title) + len(string(v.KnowledgeType))
	}
	summary.Layers = len(layers)
	summary.AveragePriority = prioritySum / float64(len(c.entries))
	summary.MemoryEstimate = memory
	return summary
}
