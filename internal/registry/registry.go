package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// Factory builds a task action from the body of an `action` block.
type Factory func(body hcl.Body, ctx *hcl.EvalContext) (task.Action, hcl.Diagnostics)

// Module is the interface that all action modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered action factories for a single application
// instance.
type Registry struct {
	factories map[string]Factory
}

// New creates an empty registry and registers the given modules into it.
func New(modules ...Module) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterAction registers the factory for an action type. Registering the
// same type twice is a programmer error and panics.
func (r *Registry) RegisterAction(name string, f Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("action with name '%s' already registered", name))
	}
	slog.Debug("Registering action.", "name", name)
	r.factories[name] = f
}

// Action builds the action for a block of the given type.
func (r *Registry) Action(typ string, body hcl.Body, ctx *hcl.EvalContext) (task.Action, hcl.Diagnostics) {
	f, ok := r.factories[typ]
	if !ok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unknown action type",
			Detail:   fmt.Sprintf("No action of type %q is registered. Available types: %v.", typ, r.Types()),
			Subject:  body.MissingItemRange().Ptr(),
		}}
	}
	return f(body, ctx)
}

// Types returns the registered action type names, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
