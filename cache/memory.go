package cache

import (
	"context"
	"sync"

	"github.com/karlla1220/meetgrid/gateway"
)

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[gateway.Key]gateway.Response
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[gateway.Key]gateway.Response)}
}

// Get implements gateway.Store.
func (m *Memory) Get(_ context.Context, key gateway.Key) (gateway.Response, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp, ok := m.data[key]
	return resp, ok, nil
}

// Put implements gateway.Store.
func (m *Memory) Put(_ context.Context, key gateway.Key, resp gateway.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = resp
	return nil
}

// Len returns the number of stored responses.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
