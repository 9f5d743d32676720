package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process TTL cache. A Delete that lands while a load for
// the same key is running bumps the key's generation, and the late result is
// returned to its callers but not stored.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	gens    map[string]uint64
	loading map[string]int
	group   singleflight.Group
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
		loading: make(map[string]int),
		now:     time.Now,
	}
}

// Get returns the cached value or loads it. Loader errors are not cached.
func (m *Memory) Get(ctx context.Context, key string, ttl time.Duration, load Loader) ([]byte, error) {
	if v, ok := m.lookup(key); ok {
		return v, nil
	}

	m.mu.RLock()
	flight := key + "#" + strconv.FormatUint(m.gens[key], 10)
	m.mu.RUnlock()

	v, err, _ := m.group.Do(flight, func() (any, error) {
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		gen := m.beginLoad(key)
		var (
			v    []byte
			err  error
			done bool
		)
		defer func() { m.endLoad(key, gen, v, done && err == nil && ttl > 0, ttl) }()
		v, err = load(ctx)
		done = true
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (m *Memory) beginLoad(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading[key]++
	return m.gens[key]
}

// endLoad stores v when no Delete happened since beginLoad. Generations are
// only kept while a load is running, so the maps stay bounded.
func (m *Memory) endLoad(key string, gen uint64, v []byte, store bool, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if store && m.gens[key] == gen {
		m.entries[key] = entry{value: v, expires: m.now().Add(ttl)}
	}
	if m.loading[key]--; m.loading[key] <= 0 {
		delete(m.loading, key)
		delete(m.gens, key)
	}
}

// Delete removes keys and invalidates loads still running for them
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
		if m.loading[k] > 0 {
			m.gens[k]++
		}
	}
	return nil
}

// Len returns the number of live entries
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	now := m.now()
	for _, e := range m.entries {
		if now.Before(e.expires) {
			n++
		}
	}
	return n
}

func (m *Memory) lookup(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

var _ Cache = (*Memory)(nil)
