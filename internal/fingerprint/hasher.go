package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// fieldWriter writes length-prefixed fields so that adjacent fields can
// never be confused with each other.
type fieldWriter struct {
	h hash.Hash
}

func newFieldWriter() *fieldWriter {
	return &fieldWriter{h: sha256.New()}
}

func (w *fieldWriter) field(data []byte) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(data)))
	w.h.Write(prefix[:])
	w.h.Write(data)
}

func (w *fieldWriter) str(s string) {
	w.field([]byte(s))
}

func (w *fieldWriter) count(n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	w.field(b[:])
}

func (w *fieldWriter) sum() string {
	return hex.EncodeToString(w.h.Sum(nil))
}

// HashFile returns the hex sha256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashProperties returns a canonical hash of scalar input properties. Keys
// are sorted and every value is hashed with its type, so "1" and 1 differ.
func HashProperties(props map[string]cty.Value) (string, error) {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := newFieldWriter()
	w.count(len(keys))
	for _, k := range keys {
		v := props[k]
		if !v.IsWhollyKnown() {
			return "", fmt.Errorf("property %q has an unknown value", k)
		}
		typ, err := ctyjson.MarshalType(v.Type())
		if err != nil {
			return "", fmt.Errorf("property %q: %w", k, err)
		}
		val, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return "", fmt.Errorf("property %q: %w", k, err)
		}
		w.str(k)
		w.field(typ)
		w.field(val)
	}
	return w.sum(), nil
}

// HashInputs combines the resolved input snapshot, the property hash and the
// declared outputs into one deterministic hash.
func HashInputs(inputs map[string]string, propertiesHash string, outputs []string) string {
	paths := make([]string, 0, len(inputs))
	for p := range inputs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	declared := append([]string(nil), outputs...)
	sort.Strings(declared)

	w := newFieldWriter()
	w.count(len(paths))
	for _, p := range paths {
		w.str(p)
		w.str(inputs[p])
	}
	w.str(propertiesHash)
	w.count(len(declared))
	for _, o := range declared {
		w.str(o)
	}
	return w.sum()
}
