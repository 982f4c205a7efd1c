// Package builder implements the Task Graph Builder: it turns task
// declarations and the names requested on an invocation into a validated,
// immutable plan.Plan.
//
// # How It Works
//
//  1. Register every declaration in the topology store and resolve each
//     declared relation to a task path. A relation naming a task that does
//     not exist fails with ErrUnknownTaskReference.
//  2. Select the requested tasks, the transitive closure of their dependsOn
//     relations and the finalizers of every selected task. mustRunAfter and
//     shouldRunAfter never pull a task into the plan.
//  3. Run a three-color depth-first search over the hard "waits for" graph
//     (dependsOn, mustRunAfter, finalizedBy). A back edge fails the build
//     with ErrCircularDependency and the full cycle.
//  4. Add shouldRunAfter edges one by one in declaration order. An edge that
//     would close a cycle made only of dependsOn, finalizedBy and other
//     shouldRunAfter edges is dropped with a diagnostic; if the cycle also
//     contains a mustRunAfter edge the build fails.
//  5. Linearize with Kahn's algorithm, breaking ties by declaration order so
//     an unchanged graph always yields the same order.
//
// The builder executes nothing.
package builder
