package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is a key/value cache with per-entry TTL.
// Faults are never returned: a broken read is a miss, a broken write is a no-op.
// A Set with a non-positive ttl stores nothing.
type Store interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	EvictByPrefix(ctx context.Context, prefix string) int
	EvictAll(ctx context.Context) int
}

// BuildKey appends the filters to prefix as sorted key=value pairs,
// e.g. "records:all:endDate=2024-12-31&startDate=2024-01-01".
func BuildKey(prefix string, filters map[string]any) string {
	keys := make([]string, 0, len(filters))
	for k, v := range filters {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return prefix
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + fmt.Sprint(filters[k])
	}
	return prefix + ":" + strings.Join(pairs, "&")
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local Store on go-cache. Expiry follows the Memory
// clock and is applied lazily on read; there is no janitor and no capacity limit.
type Memory struct {
	items   *gocache.Cache
	now     func() time.Time
	onError func(op string, key string, err error)
}

func NewMemory() *Memory {
	return &Memory{
		items: gocache.New(gocache.NoExpiration, 0),
		now:   time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// OnError registers a callback for encode/decode faults.
func (m *Memory) OnError(fn func(op string, key string, err error)) *Memory {
	m.onError = fn
	return m
}

func (m *Memory) report(op, key string, err error) {
	if m.onError != nil {
		m.onError(op, key, err)
	}
}

func (m *Memory) Get(_ context.Context, key string, dest any) bool {
	v, ok := m.items.Get(key)
	if !ok {
		return false
	}
	e := v.(*entry)
	if !m.now().Before(e.expiresAt) {
		m.evictIfUnchanged(key, e)
		return false
	}
	if err := json.Unmarshal(e.value, dest); err != nil {
		m.report("get", key, err)
		m.evictIfUnchanged(key, e)
		return false
	}
	return true
}

// evictIfUnchanged deletes key unless another writer replaced it meanwhile.
func (m *Memory) evictIfUnchanged(key string, seen *entry) {
	if cur, ok := m.items.Get(key); ok && cur.(*entry) == seen {
		m.items.Delete(key)
	}
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		m.report("set", key, err)
		return
	}
	m.items.Set(key, &entry{value: b, expiresAt: m.now().Add(ttl)}, gocache.NoExpiration)
}

func (m *Memory) EvictByPrefix(_ context.Context, prefix string) int {
	count := 0
	for k := range m.items.Items() {
		if strings.HasPrefix(k, prefix) {
			m.items.Delete(k)
			count++
		}
	}
	return count
}

func (m *Memory) EvictAll(_ context.Context) int {
	count := m.items.ItemCount()
	m.items.Flush()
	return count
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}
