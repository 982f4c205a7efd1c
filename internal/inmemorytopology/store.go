package inmemorytopology

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
)

// Store is an in-memory topologystore.Store guarded by a RWMutex. The
// topology is write-once-read-many, so readers share the lock.
type Store struct {
	mu       sync.RWMutex
	tasks    map[string]*task.Task
	outgoing map[string][]topologystore.Edge // Key: source path
	incoming map[string][]topologystore.Edge // Key: target path
}

// New creates an empty topology store.
func New() topologystore.Store {
	return &Store{
		tasks:    make(map[string]*task.Task),
		outgoing: make(map[string][]topologystore.Edge),
		incoming: make(map[string][]topologystore.Edge),
	}
}

// AddTask implements topologystore.Store.
func (s *Store) AddTask(ctx context.Context, t *task.Task) (bool, error) {
	if t == nil || t.Decl == nil {
		return false, fmt.Errorf("cannot add nil task")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := t.ID()
	if _, exists := s.tasks[key]; exists {
		return false, nil
	}
	s.tasks[key] = t
	return true, nil
}

// AddEdge implements topologystore.Store.
func (s *Store) AddEdge(ctx context.Context, e topologystore.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromKey, toKey := e.From.String(), e.To.String()
	if _, exists := s.tasks[fromKey]; !exists {
		return fmt.Errorf("edge source task '%s' not found in topology", fromKey)
	}
	if _, exists := s.tasks[toKey]; !exists {
		return fmt.Errorf("edge target task '%s' not found in topology", toKey)
	}

	if slices.ContainsFunc(s.outgoing[fromKey], sameEdge(e)) {
		return nil
	}
	s.outgoing[fromKey] = append(s.outgoing[fromKey], e)
	s.incoming[toKey] = append(s.incoming[toKey], e)
	return nil
}

// RemoveEdge implements topologystore.Store.
func (s *Store) RemoveEdge(ctx context.Context, e topologystore.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fromKey, toKey := e.From.String(), e.To.String()
	s.outgoing[fromKey] = slices.DeleteFunc(s.outgoing[fromKey], sameEdge(e))
	s.incoming[toKey] = slices.DeleteFunc(s.incoming[toKey], sameEdge(e))
	return nil
}

// GetTask implements topologystore.Store.
func (s *Store) GetTask(ctx context.Context, p taskid.Path) (*task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[p.String()]
	return t, ok
}

// AllTasks implements topologystore.Store.
func (s *Store) AllTasks(ctx context.Context) []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Decl.Order != tasks[j].Decl.Order {
			return tasks[i].Decl.Order < tasks[j].Decl.Order
		}
		return tasks[i].ID() < tasks[j].ID()
	})
	return tasks
}

// EdgesFrom implements topologystore.Store.
func (s *Store) EdgesFrom(ctx context.Context, p taskid.Path, kinds ...topologystore.EdgeKind) ([]topologystore.Edge, error) {
	return s.edges(s.outgoing, p, kinds)
}

// EdgesTo implements topologystore.Store.
func (s *Store) EdgesTo(ctx context.Context, p taskid.Path, kinds ...topologystore.EdgeKind) ([]topologystore.Edge, error) {
	return s.edges(s.incoming, p, kinds)
}

func (s *Store) edges(index map[string][]topologystore.Edge, p taskid.Path, kinds []topologystore.EdgeKind) ([]topologystore.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := p.String()
	if _, exists := s.tasks[key]; !exists {
		return nil, fmt.Errorf("task '%s' not found in topology", key)
	}

	out := make([]topologystore.Edge, 0, len(index[key]))
	for _, e := range index[key] {
		if len(kinds) == 0 || slices.Contains(kinds, e.Kind) {
			out = append(out, e)
		}
	}
	return out, nil
}

func sameEdge(e topologystore.Edge) func(topologystore.Edge) bool {
	return func(o topologystore.Edge) bool {
		return o.Kind == e.Kind && o.From.Equal(e.From) && o.To.Equal(e.To)
	}
}
