package store

import (
	"context"
	"sort"
	"sync"

	"github.com/livetemplate/blockdraft"
)

// Memory keeps templates in process memory. Useful for tests and for
// running the editor without a database; documents are lost on exit.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]blockdraft.Template
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]blockdraft.Template)}
}

func (m *Memory) List(ctx context.Context) ([]blockdraft.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]blockdraft.Template, 0, len(m.docs))
	for _, tpl := range m.docs {
		out = append(out, tpl.Clone())
	}
	// Newest first, id as tie-breaker so the order is stable.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (blockdraft.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tpl, ok := m.docs[id]
	if !ok {
		return blockdraft.Template{}, ErrNotFound
	}
	return tpl.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, tpl blockdraft.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[tpl.ID] = tpl.Clone()
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
