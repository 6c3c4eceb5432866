package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/warriorguo/dagflow/store"
)

var (
	_ store.Store = &memStore{}
)

/**
 * memStore keeps reports in memory only, they are gone with the process.
 * It is the default store and the one used by tests. Entries are grouped
 * by prefix, so listing a prefix never sees keys of a longer one.
 */
type memStore struct {
	mu      sync.Mutex
	entries map[string]map[string][]byte

	// fault is returned by every operation, after it took effect
	fault func() error
}

func NewMemStore() store.Store {
	return NewMemStoreWithErrHandler(nil)
}

// NewMemStoreWithErrHandler lets tests inject storage failures.
func NewMemStoreWithErrHandler(errHandler func() error) store.Store {
	if errHandler == nil {
		errHandler = func() error { return nil }
	}
	return &memStore{
		entries: make(map[string]map[string][]byte),
		fault:   errHandler,
	}
}

func (m *memStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.entries[prefix][key], m.fault()
}

func (m *memStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, exists := m.entries[prefix]
	if !exists {
		bucket = make(map[string][]byte)
		m.entries[prefix] = bucket
	}
	bucket[key] = value
	return m.fault()
}

func (m *memStore) Remove(ctx context.Context, prefix, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bucket, exists := m.entries[prefix]; exists {
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(m.entries, prefix)
		}
	}
	return m.fault()
}

// List walks the keys of a prefix in sorted order, like the postgres store.
func (m *memStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.entries[prefix]))
	for key := range m.entries[prefix] {
		keys = append(keys, key)
	}
	err := m.fault()
	m.mu.Unlock()

	sort.Strings(keys)
	for _, key := range keys {
		if !iterator(key) {
			break
		}
	}
	return err
}
