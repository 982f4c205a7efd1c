package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/buildgridgo/internal/outcomestore"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
)

// Store is an in-memory implementation of outcomestore.Store.
type Store struct {
	outcomes sync.Map // Key: task path string, Value: task.Outcome
	errors   sync.Map // Key: task path string, Value: error
	timings  sync.Map // Key: task path string, Value: outcomestore.Timing
}

// New creates a new, empty outcome store.
func New() outcomestore.Store {
	return &Store{}
}

// SetOutcome implements outcomestore.Store.
func (s *Store) SetOutcome(ctx context.Context, p taskid.Path, o task.Outcome) error {
	s.outcomes.Store(p.String(), o)
	return nil
}

// GetOutcome implements outcomestore.Store.
func (s *Store) GetOutcome(ctx context.Context, p taskid.Path) (task.Outcome, error) {
	o, ok := s.outcomes.Load(p.String())
	if !ok {
		return task.Pending, nil
	}
	return o.(task.Outcome), nil
}

// SetError implements outcomestore.Store.
func (s *Store) SetError(ctx context.Context, p taskid.Path, taskErr error) error {
	if taskErr == nil {
		return nil
	}
	s.errors.Store(p.String(), taskErr)
	return nil
}

// GetError implements outcomestore.Store.
func (s *Store) GetError(ctx context.Context, p taskid.Path) (error, error) {
	err, ok := s.errors.Load(p.String())
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// SetTiming implements outcomestore.Store.
func (s *Store) SetTiming(ctx context.Context, p taskid.Path, t outcomestore.Timing) error {
	s.timings.Store(p.String(), t)
	return nil
}

// GetTiming implements outcomestore.Store.
func (s *Store) GetTiming(ctx context.Context, p taskid.Path) (outcomestore.Timing, error) {
	t, ok := s.timings.Load(p.String())
	if !ok {
		return outcomestore.Timing{}, nil
	}
	return t.(outcomestore.Timing), nil
}
