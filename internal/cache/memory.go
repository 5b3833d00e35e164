package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// Memory implements Cache with an in-process map. It is the fallback when no
// Redis address is configured, and the backend used by tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// now is swappable for tests.
	now func() time.Time
}

type memoryEntry struct {
	value    []byte
	deadline time.Time // zero = no expiry
}

// Compile-time check.
var _ Cache = (*Memory)(nil)

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the value for key. Expired entries read as misses and are
// removed lazily.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !entry.deadline.IsZero() && m.now().After(entry.deadline) {
		m.mu.Lock()
		// Re-check under the write lock; Set may have raced us.
		if cur, ok := m.entries[key]; ok && cur.deadline.Equal(entry.deadline) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores value under key, replacing any prior entry.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.deadline = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// DeletePattern removes all keys matching a glob-style pattern.
func (m *Memory) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len returns the number of live entries, counting unexpired only.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	now := m.now()
	for _, e := range m.entries {
		if e.deadline.IsZero() || now.Before(e.deadline) {
			n++
		}
	}
	return n
}
