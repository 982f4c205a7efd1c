package fingerprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/specialistvlad/buildgridgo/internal/fsutil"
)

// SnapshotInputs hashes every resolved input file. Paths are relative to
// workDir.
func SnapshotInputs(workDir string, files []string) (map[string]string, error) {
	out := make(map[string]string, len(files))
	for _, f := range files {
		h, err := HashFile(filepath.Join(workDir, filepath.FromSlash(f)))
		if err != nil {
			return nil, fmt.Errorf("hashing input %s: %w", f, err)
		}
		out[f] = h
	}
	return out, nil
}

// SnapshotOutputs records the current state of every declared output. A
// missing output is recorded as such, and a directory contributes an entry
// for itself and for every file below it.
func SnapshotOutputs(workDir string, outputs []string) (map[string]FileSnapshot, error) {
	out := make(map[string]FileSnapshot, len(outputs))
	for _, o := range outputs {
		full := o
		if !filepath.IsAbs(full) {
			full = filepath.Join(workDir, o)
		}
		info, err := os.Lstat(full)
		if errors.Is(err, fs.ErrNotExist) {
			out[filepath.ToSlash(o)] = FileSnapshot{Missing: true}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inspecting output %s: %w", o, err)
		}
		if !info.IsDir() {
			snap, err := snapshotFile(full, info)
			if err != nil {
				return nil, err
			}
			out[filepath.ToSlash(o)] = snap
			continue
		}

		err = filepath.WalkDir(full, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			key := fsutil.Rel(workDir, p)
			if d.IsDir() {
				out[key] = FileSnapshot{Mode: info.Mode()}
				return nil
			}
			snap, err := snapshotFile(p, info)
			if err != nil {
				return err
			}
			out[key] = snap
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("inspecting output %s: %w", o, err)
		}
	}
	return out, nil
}

func snapshotFile(path string, info fs.FileInfo) (FileSnapshot, error) {
	h, err := HashFile(path)
	if err != nil {
		return FileSnapshot{}, fmt.Errorf("hashing output %s: %w", path, err)
	}
	return FileSnapshot{Hash: h, Size: info.Size(), Mode: info.Mode()}, nil
}
