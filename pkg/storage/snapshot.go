package storage

import (
	"context"
	"sync"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
)

// Snapshot serves reads from an in-memory entity graph that can be swapped atomically
type Snapshot struct {
	mu        sync.RWMutex
	graph     *entity.Graph
	listeners []func()
}

// NewSnapshot creates a snapshot over graph
func NewSnapshot(graph *entity.Graph) *Snapshot {
	return &Snapshot{graph: graph}
}

// Replace swaps in a new graph
func (s *Snapshot) Replace(graph *entity.Graph) {
	s.mu.Lock()
	s.graph = graph
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnReplace registers fn to run after every Replace
func (s *Snapshot) OnReplace(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Len returns the number of entities in the current graph
func (s *Snapshot) Len() int {
	return s.current().Len()
}

func (s *Snapshot) current() *entity.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// Get implements entity.Source
func (s *Snapshot) Get(ctx context.Context, id int64) (*entity.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.current().Materialize(id)
}

// TreeLevel implements entity.Source
func (s *Snapshot) TreeLevel(ctx context.Context, parent *int64) ([]entity.TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.current().TreeLevel(parent)
}
