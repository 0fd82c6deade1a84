package store

import (
	"context"
	"sync"
)

type collection struct {
	ids  []string
	data map[string]any
}

// ReadStore is an in-memory read model store
type ReadStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewReadStore() *ReadStore {
	return &ReadStore{
		collections: make(map[string]*collection),
	}
}

// Set stores a read model
func (rs *ReadStore) Set(ctx context.Context, name, id string, data any) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	c := rs.collections[name]
	if c == nil {
		c = &collection{data: make(map[string]any)}
		rs.collections[name] = c
	}
	if _, exists := c.data[id]; !exists {
		c.ids = append(c.ids, id)
	}
	c.data[id] = data
	return nil
}

// Get retrieves a read model by id
func (rs *ReadStore) Get(ctx context.Context, name, id string) (any, bool, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	c := rs.collections[name]
	if c == nil {
		return nil, false, nil
	}
	data, ok := c.data[id]
	return data, ok, nil
}

// GetAll retrieves all items in a collection
func (rs *ReadStore) GetAll(ctx context.Context, name string) ([]any, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	c := rs.collections[name]
	if c == nil {
		return nil, nil
	}

	items := make([]any, 0, len(c.ids))
	for _, id := range c.ids {
		items = append(items, c.data[id])
	}
	return items, nil
}

// Delete removes a read model
func (rs *ReadStore) Delete(ctx context.Context, name, id string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	c := rs.collections[name]
	if c == nil {
		return nil
	}
	if _, ok := c.data[id]; !ok {
		return nil
	}
	delete(c.data, id)
	for i, existing := range c.ids {
		if existing == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return nil
}
