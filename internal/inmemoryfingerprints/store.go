// Package inmemoryfingerprints provides a process-local fingerprint.Store.
// Fingerprints do not survive the process, so every new process sees every
// task as out of date. It is used for tests and one-shot builds.
package inmemoryfingerprints

import (
	"context"
	"maps"
	"sync"

	"github.com/specialistvlad/buildgridgo/internal/fingerprint"
)

// Store is a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string]*fingerprint.Fingerprint
}

var _ fingerprint.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]*fingerprint.Fingerprint)}
}

// Load implements fingerprint.Store.
func (s *Store) Load(ctx context.Context, task string) (*fingerprint.Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.data[task]
	if !ok {
		return nil, fingerprint.ErrNotFound
	}
	return clone(fp), nil
}

// Save implements fingerprint.Store.
func (s *Store) Save(ctx context.Context, fp *fingerprint.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[fp.Task] = clone(fp)
	return nil
}

// Delete implements fingerprint.Store.
func (s *Store) Delete(ctx context.Context, task string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, task)
	return nil
}

// Close implements fingerprint.Store.
func (s *Store) Close() error { return nil }

// Len returns the number of stored fingerprints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func clone(fp *fingerprint.Fingerprint) *fingerprint.Fingerprint {
	c := *fp
	c.Inputs = maps.Clone(fp.Inputs)
	c.Outputs = maps.Clone(fp.Outputs)
	return &c
}
