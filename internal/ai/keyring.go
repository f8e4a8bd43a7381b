package ai

import (
	"strings"
	"sync"
)

// KeyRing hands out API credentials round-robin. Reconfiguring replaces the
// pool and resets the cursor so no key is biased after a change.
type KeyRing struct {
	mu     sync.RWMutex
	keys   []string
	cursor uint64
}

func NewKeyRing(raw string) *KeyRing {
	r := &KeyRing{}
	r.Configure(raw)
	return r
}

// Configure parses a comma-delimited key list. Empty tokens are dropped.
func (r *KeyRing) Configure(raw string) {
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		keys = append(keys, p)
	}
	r.mu.Lock()
	r.keys = keys
	r.cursor = 0
	r.mu.Unlock()
}

// Next returns the next key in cyclic order, or "" when the pool is empty.
// Callers must treat the empty string as a configuration error.
func (r *KeyRing) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	key := r.keys[r.cursor%uint64(len(r.keys))]
	r.cursor++
	return key
}

func (r *KeyRing) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

func (r *KeyRing) IsEmpty() bool {
	return r.Size() == 0
}

// Snapshot returns a copy of the pool; mutating it does not affect rotation.
func (r *KeyRing) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}
