package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use. Documents come back in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]map[string]any),
	}
}

func (m *MemoryStore) Insert(_ context.Context, collection string, doc map[string]any) (string, error) {
	stored, err := withoutID(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	stored[IDField] = id

	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], stored)
	return id, nil
}

func (m *MemoryStore) Find(_ context.Context, collection string, filter map[string]any, limit int) ([]map[string]any, error) {
	want, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := []map[string]any{}
	for _, doc := range m.collections[collection] {
		if limit > 0 && len(result) >= limit {
			break
		}
		if !matches(doc, want) {
			continue
		}
		cp, err := deepCopy(doc)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	return result, nil
}

func (m *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name, docs := range m.collections {
		if len(docs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Close(context.Context) error { return nil }
