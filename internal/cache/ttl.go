package cache

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTLCache is an expiring key/value store with named duration bands. A value
// stored under a band is never returned once the band's TTL has elapsed; an
// expired entry is indistinguishable from an absent one.
type TTLCache[V any] struct {
	order []string
	bands map[string]*expirable.LRU[string, V]
}

func New[V any](bands map[string]time.Duration, sizePerBand int) (*TTLCache[V], error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("at least one ttl band is required")
	}
	if sizePerBand <= 0 {
		sizePerBand = 1024
	}
	c := &TTLCache[V]{bands: make(map[string]*expirable.LRU[string, V], len(bands))}
	for name, ttl := range bands {
		if ttl <= 0 {
			return nil, fmt.Errorf("ttl band %q must be positive", name)
		}
		c.bands[name] = expirable.NewLRU[string, V](sizePerBand, nil, ttl)
		c.order = append(c.order, name)
	}
	sort.Strings(c.order)
	return c, nil
}

// Put stores value under the given band, replacing the key in any other band.
func (c *TTLCache[V]) Put(key string, value V, band string) error {
	target, ok := c.bands[band]
	if !ok {
		return fmt.Errorf("unknown ttl band: %s", band)
	}
	for name, lru := range c.bands {
		if name == band {
			continue
		}
		lru.Remove(key)
	}
	target.Add(key, value)
	return nil
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	for _, name := range c.order {
		if value, ok := c.bands[name].Get(key); ok {
			return value, true
		}
	}
	var zero V
	return zero, false
}

func (c *TTLCache[V]) Remove(key string) {
	for _, lru := range c.bands {
		lru.Remove(key)
	}
}

func (c *TTLCache[V]) Bands() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// FromSeconds converts a config band map (seconds) into durations.
func FromSeconds(bands map[string]int) map[string]time.Duration {
	out := make(map[string]time.Duration, len(bands))
	for name, secs := range bands {
		out[name] = time.Duration(secs) * time.Second
	}
	return out
}
