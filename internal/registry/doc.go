// Package registry provides the central "glue" for the action system.
//
// The Registry maps the action type names used in `action "<type>"` blocks to
// the compiled Go factories that build task actions from those blocks.
// Modules add their factories at startup through the Module interface; the
// HCL front end then resolves every declared action against the registry, so
// an unknown action type is reported at load time rather than mid-build.
package registry
