package builder

// Option customizes a single Build call.
type Option func(*options)

type options struct {
	excluded  []string
	resources map[string]int
}

// WithExcluded removes the named tasks from the plan, together with the
// dependencies only they required.
func WithExcluded(names ...string) Option {
	return func(o *options) {
		o.excluded = append(o.excluded, names...)
	}
}

// WithResources sets the capacity of named exclusive resources.
func WithResources(capacities map[string]int) Option {
	return func(o *options) {
		o.resources = capacities
	}
}
