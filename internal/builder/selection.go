package builder

import (
	"context"
	"strings"

	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
)

// selection is the set of tasks that enter the plan.
type selection struct {
	tasks         map[string]*task.Task
	requested     map[string]bool
	onlyFinalizer map[string]bool
}

// selectTasks resolves invocation names. A name with a leading colon is an
// exact path; a bare name selects the task of that name in every project; a
// name with an inner colon is a path from the root project. No names selects
// every task.
func (b *Builder) selectTasks(ctx context.Context, names []string) ([]*task.Task, error) {
	all := b.graph.AllTasks(ctx)
	if len(names) == 0 {
		return all, nil
	}

	seen := make(map[string]bool)
	var out []*task.Task
	add := func(t *task.Task) {
		if !seen[t.ID()] {
			seen[t.ID()] = true
			out = append(out, t)
		}
	}

	for _, name := range names {
		if strings.Contains(name, taskid.Separator) {
			p, err := taskid.Parse(name)
			if err != nil {
				return nil, invalidf("requested task %q: %v", name, err)
			}
			t, ok := b.graph.Task(ctx, p)
			if !ok {
				return nil, unknownf("requested task %q not found", name)
			}
			add(t)
			continue
		}

		matched := false
		for _, t := range all {
			if t.Decl.Path.Name == name {
				add(t)
				matched = true
			}
		}
		if !matched {
			return nil, unknownf("requested task %q not found in any project", name)
		}
	}
	return out, nil
}

// closure selects roots, the transitive closure of their dependsOn relations
// and, repeatedly, the finalizers of anything selected. Excluded tasks are
// never selected.
func (b *Builder) closure(ctx context.Context, roots []*task.Task, excluded []*task.Task) (*selection, error) {
	skip := make(map[string]bool, len(excluded))
	for _, t := range excluded {
		skip[t.ID()] = true
	}

	sel := &selection{
		tasks:         make(map[string]*task.Task),
		requested:     make(map[string]bool),
		onlyFinalizer: make(map[string]bool),
	}

	var queue []*task.Task
	include := func(t *task.Task) {
		if skip[t.ID()] {
			return
		}
		if _, ok := sel.tasks[t.ID()]; ok {
			return
		}
		sel.tasks[t.ID()] = t
		queue = append(queue, t)
	}
	drain := func() error {
		for len(queue) > 0 {
			t := queue[0]
			queue = queue[1:]
			deps, err := b.graph.Related(ctx, t.Path(), topologystore.DependsOn)
			if err != nil {
				return err
			}
			for _, d := range deps {
				include(d)
			}
		}
		return nil
	}

	for _, r := range roots {
		if !skip[r.ID()] {
			sel.requested[r.ID()] = true
		}
		include(r)
	}
	if err := drain(); err != nil {
		return nil, err
	}
	required := make(map[string]bool, len(sel.tasks))
	for id := range sel.tasks {
		required[id] = true
	}

	// Finalizers may bring in further tasks with finalizers of their own.
	for {
		before := len(sel.tasks)
		for _, t := range b.graph.AllTasks(ctx) {
			if _, ok := sel.tasks[t.ID()]; !ok {
				continue
			}
			finalizers, err := b.graph.Related(ctx, t.Path(), topologystore.FinalizedBy)
			if err != nil {
				return nil, err
			}
			for _, f := range finalizers {
				if _, ok := sel.tasks[f.ID()]; !ok && !skip[f.ID()] && !required[f.ID()] {
					sel.onlyFinalizer[f.ID()] = true
				}
				include(f)
			}
		}
		if err := drain(); err != nil {
			return nil, err
		}
		if len(sel.tasks) == before {
			break
		}
	}
	return sel, nil
}
