package mocks

import (
	"context"
	"sync"
)

// MockReadStore is a mock implementation of ReadStoreInterface for testing
type MockReadStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any // collection -> id -> data
	ids  map[string][]string

	// For tracking calls in tests
	SetCalls []SetCall
	GetCalls []GetCall

	// Err, when set, is returned by every method
	Err error
}

// SetCall records parameters passed to Set
type SetCall struct {
	Collection string
	ID         string
	Data       any
}

// GetCall records parameters passed to Get
type GetCall struct {
	Collection string
	ID         string
}

// NewMockReadStore creates a new MockReadStore
func NewMockReadStore() *MockReadStore {
	return &MockReadStore{
		data:     make(map[string]map[string]any),
		ids:      make(map[string][]string),
		SetCalls: make([]SetCall, 0),
		GetCalls: make([]GetCall, 0),
	}
}

// Set stores a read model
func (m *MockReadStore) Set(ctx context.Context, collection, id string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Collection: collection, ID: id, Data: data})
	if m.Err != nil {
		return m.Err
	}
	m.setLocked(collection, id, data)
	return nil
}

// Get retrieves a read model by id
func (m *MockReadStore) Get(ctx context.Context, collection, id string) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, GetCall{Collection: collection, ID: id})
	if m.Err != nil {
		return nil, false, m.Err
	}
	data, ok := m.data[collection][id]
	return data, ok, nil
}

// GetAll retrieves all items in a collection
func (m *MockReadStore) GetAll(ctx context.Context, collection string) ([]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	items := make([]any, 0, len(m.ids[collection]))
	for _, id := range m.ids[collection] {
		items = append(items, m.data[collection][id])
	}
	return items, nil
}

// Delete removes a read model
func (m *MockReadStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.data[collection][id]; !ok {
		return nil
	}
	delete(m.data[collection], id)
	ids := m.ids[collection]
	for i, existing := range ids {
		if existing == id {
			m.ids[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// SetData sets data directly for testing
func (m *MockReadStore) SetData(collection, id string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(collection, id, data)
}

// GetData gets data directly for testing (without recording the call)
func (m *MockReadStore) GetData(collection, id string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[collection][id]
	return data, ok
}

func (m *MockReadStore) setLocked(collection, id string, data any) {
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]any)
	}
	if _, exists := m.data[collection][id]; !exists {
		m.ids[collection] = append(m.ids[collection], id)
	}
	m.data[collection][id] = data
}
