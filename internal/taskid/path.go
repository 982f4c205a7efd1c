// internal/taskid/path.go
package taskid

import (
	"slices"
	"strings"
)

// String serializes the Path into its canonical absolute form.
func (p Path) String() string {
	var sb strings.Builder
	for _, project := range p.Projects {
		sb.WriteString(Separator)
		sb.WriteString(project)
	}
	sb.WriteString(Separator)
	sb.WriteString(p.Name)
	return sb.String()
}

// Project returns the canonical path of the owning project, ":" for root.
func (p Path) Project() string {
	if len(p.Projects) == 0 {
		return Separator
	}
	return Separator + strings.Join(p.Projects, Separator)
}

// IsZero reports whether the path has no task name.
func (p Path) IsZero() bool {
	return p.Name == ""
}

// Equal checks two paths for equality.
func (p Path) Equal(other Path) bool {
	return p.Name == other.Name && slices.Equal(p.Projects, other.Projects)
}
