// internal/taskid/parser.go
package taskid

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex validates a single project or task name.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$`)

func validSegment(s string) error {
	if s == "" {
		return fmt.Errorf("path contains empty segment")
	}
	if !segmentRegex.MatchString(s) {
		return fmt.Errorf("invalid path segment format: %q", s)
	}
	return nil
}

// Parse creates a Path from its canonical absolute representation. The root
// project prefix is optional, so "compile" and ":compile" are the same path.
func Parse(raw string) (Path, error) {
	if raw == "" || raw == Separator {
		return Path{}, fmt.Errorf("identifier cannot be empty")
	}

	parts := strings.Split(strings.TrimPrefix(raw, Separator), Separator)
	for _, part := range parts {
		if err := validSegment(part); err != nil {
			return Path{}, err
		}
	}

	return New(parts[len(parts)-1], parts[:len(parts)-1]...), nil
}

// MustParse is like Parse but panics on malformed input. Intended for tests
// and static tables.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Resolve interprets ref relative to the project that owns scope. Absolute
// references (leading colon) ignore scope.
func Resolve(scope Path, ref string) (Path, error) {
	if strings.HasPrefix(ref, Separator) {
		return Parse(ref)
	}
	rel, err := Parse(ref)
	if err != nil {
		return Path{}, err
	}
	projects := append(append([]string(nil), scope.Projects...), rel.Projects...)
	return New(rel.Name, projects...), nil
}
