// Package filestore persists fingerprints as one JSON document per task under
// a directory, usually <project>/.buildgrid/fingerprints. Writes go to a
// temporary file that is synced and renamed over the target, so a crash
// leaves either the old or the new record.
package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/buildgridgo/internal/fingerprint"
)

// Store keeps fingerprints on the local file system.
type Store struct {
	dir string
	// mu serializes writers; readers rely on atomic renames.
	mu sync.Mutex
}

var _ fingerprint.Store = (*Store)(nil)

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("fingerprint directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fingerprint directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// path maps a task path to a file name. Task paths contain ':' which is not
// portable in file names, so the name is derived from a hash.
func (s *Store) path(task string) string {
	sum := sha256.Sum256([]byte(task))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:16])+".json")
}

// Load implements fingerprint.Store.
func (s *Store) Load(ctx context.Context, task string) (*fingerprint.Fingerprint, error) {
	data, err := os.ReadFile(s.path(task))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fingerprint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read fingerprint of %s: %w", task, err)
	}

	var fp fingerprint.Fingerprint
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fp); err != nil {
		return nil, fmt.Errorf("decode fingerprint of %s: %w", task, err)
	}
	if fp.Task != task {
		return nil, fmt.Errorf("fingerprint file for %s holds %s", task, fp.Task)
	}
	return &fp, nil
}

// Save implements fingerprint.Store.
func (s *Store) Save(ctx context.Context, fp *fingerprint.Fingerprint) error {
	data, err := json.MarshalIndent(fp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fingerprint of %s: %w", fp.Task, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path(fp.Task), data, 0o644); err != nil {
		return fmt.Errorf("write fingerprint of %s: %w", fp.Task, err)
	}
	return nil
}

// Delete implements fingerprint.Store.
func (s *Store) Delete(ctx context.Context, task string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(task)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete fingerprint of %s: %w", task, err)
	}
	return nil
}

// Close implements fingerprint.Store.
func (s *Store) Close() error { return nil }

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
