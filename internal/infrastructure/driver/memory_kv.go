package driver

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    string
	expireAt time.Time // zero means no expiration
}

// MemoryKV process local KeyValueDB, used when no redis server is configured
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ KeyValueDB = &MemoryKV{}

// NewMemoryKV create an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetEX implement KeyValueDB, expiration <= 0 keeps the key forever
func (m *MemoryKV) SetEX(ctx context.Context, key string, value string, expiration time.Duration) error {
	entry := memoryEntry{value: value}
	if expiration > 0 {
		entry.expireAt = m.now().Add(expiration)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

// Get implement KeyValueDB, an expired key is evicted
func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrKeyNotFound
	}
	if m.expired(entry) {
		m.mu.Lock()
		// the key may have been set again in between
		if current, ok := m.entries[key]; ok && m.expired(current) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return "", ErrKeyNotFound
	}
	return entry.value, nil
}

// Exists implement KeyValueDB
func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	return err == nil, nil
}

// Delete implement KeyValueDB
func (m *MemoryKV) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

// Ping implement KeyValueDB
func (m *MemoryKV) Ping() error {
	return nil
}

func (m *MemoryKV) expired(entry memoryEntry) bool {
	return !entry.expireAt.IsZero() && !m.now().Before(entry.expireAt)
}
