package storage

import (
	"sync"

	"github.com/gundb/gun-go/internal/graph"
	"github.com/gundb/gun-go/internal/gunerr"
)

// Memory is a non-persistent, process-local store. Grounded on
// original_source/src/storage.rs MemoryStorage.
type Memory struct {
	mu   sync.RWMutex
	data map[string]*graph.Node
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]*graph.Node)}
}

func (m *Memory) Get(soul string) (*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.data[soul]
	if !ok {
		return nil, gunerr.New(gunerr.KindNotFound, "Memory.Get", "soul not found: "+soul)
	}
	return n.Clone(), nil
}

func (m *Memory) Put(soul string, node *graph.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[soul] = node.Clone()
	return nil
}

func (m *Memory) Has(soul string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[soul]
	return ok, nil
}
