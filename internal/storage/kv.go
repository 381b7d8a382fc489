// Package storage persists the ledger as string values under fixed keys,
// mirroring a browser key-value store. Backends are interchangeable.
package storage

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Keys used by the repository.
const (
	KeyTransactions    = "mm_transactions"
	KeyCategories      = "mm_categories"
	KeyUserName        = "mm_username"
	KeyCurrency        = "mm_currency"
	KeySortOrder       = "mm_sortOrder"
	KeyAutoRefresh     = "mm_autoRefresh"
	KeyRefreshInterval = "mm_refreshInterval"
	KeyAutoSave        = "mm_autoSave"
	KeyAutoExport      = "mm_autoExport"
	KeyLastExportDate  = "mm_lastExportDate"
	KeyBackupPrefix    = "mm_backup_"
)

// KV is a flat string key-value store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Keys lists the keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// MemoryKV keeps everything in a map. Nothing survives the process.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return matchingKeys(m.data, prefix), nil
}

func matchingKeys(data map[string]string, prefix string) []string {
	keys := make([]string, 0)
	for k := range data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
