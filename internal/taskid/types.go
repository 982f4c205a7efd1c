// internal/taskid/types.go
package taskid

// Separator delimits project segments and the task name in a path.
const Separator = ":"

// Path is the structured representation of a unique task identifier.
type Path struct {
	// Projects is the project chain from the root, empty for the root project.
	Projects []string
	// Name is the task name within its project.
	Name string
}

// New creates a path for a task named name inside the given project chain.
func New(name string, projects ...string) Path {
	p := Path{Name: name}
	if len(projects) > 0 {
		p.Projects = append([]string(nil), projects...)
	}
	return p
}
