package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"
)

// ErrNotFound is returned by Store.Load when no fingerprint is stored for a
// task.
var ErrNotFound = errors.New("fingerprint not found")

// FileSnapshot describes one output file after a successful execution.
type FileSnapshot struct {
	Hash    string      `json:"hash,omitempty"`
	Size    int64       `json:"size"`
	Mode    fs.FileMode `json:"mode"`
	Missing bool        `json:"missing,omitempty"`
}

// Fingerprint is the stored record of a task's last successful execution.
type Fingerprint struct {
	Task string `json:"task"`
	// InputHash summarises Inputs, PropertiesHash and the declared outputs.
	InputHash string `json:"input_hash"`
	// Inputs maps each resolved input file to its content hash.
	Inputs         map[string]string       `json:"inputs"`
	PropertiesHash string                  `json:"properties_hash"`
	Outputs        map[string]FileSnapshot `json:"outputs"`
	BuildID        string                  `json:"build_id"`
	Timestamp      time.Time               `json:"timestamp"`
}

// Equal reports whether f and o describe the same inputs and outputs.
func (f *Fingerprint) Equal(o *Fingerprint) bool {
	return f != nil && o != nil && len(f.Diff(o)) == 0
}

// Diff lists the reasons f differs from o, in a stable order. An empty result
// means the fingerprints are equal.
func (f *Fingerprint) Diff(o *Fingerprint) []string {
	var reasons []string
	if f.InputHash != o.InputHash && len(diffStrings(f.Inputs, o.Inputs)) == 0 && f.PropertiesHash == o.PropertiesHash {
		reasons = append(reasons, "input declaration changed")
	}
	for _, p := range diffStrings(f.Inputs, o.Inputs) {
		reasons = append(reasons, fmt.Sprintf("input file %s changed", p))
	}
	if f.PropertiesHash != o.PropertiesHash {
		reasons = append(reasons, "input properties changed")
	}
	for _, p := range diffSnapshots(f.Outputs, o.Outputs) {
		reasons = append(reasons, fmt.Sprintf("output file %s changed", p))
	}
	return reasons
}

func diffStrings(a, b map[string]string) []string {
	var out []string
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			out = append(out, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func diffSnapshots(a, b map[string]FileSnapshot) []string {
	var out []string
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			out = append(out, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Store persists fingerprints keyed by task path.
//
// # Thread-Safety
//
// Implementations MUST allow concurrent reads and serialize writes. Each task
// only writes its own fingerprint, so writes to different keys never
// conflict logically.
type Store interface {
	// Load returns the stored fingerprint of task, or ErrNotFound.
	Load(ctx context.Context, task string) (*Fingerprint, error)
	// Save stores fp under fp.Task, replacing any previous record.
	Save(ctx context.Context, fp *Fingerprint) error
	// Delete removes the fingerprint of task. Deleting a missing record is
	// not an error.
	Delete(ctx context.Context, task string) error
	// Close releases the store's resources.
	Close() error
}
