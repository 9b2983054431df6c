// Package dag holds the dependency graph between declared fields. Every
// leaf field is a node; every context parameter is an edge from the field
// that supplies the value (the parent) to the field that consumes it (the
// child).
//
// The graph is plain data. Validation runs Kahn's algorithm over a deep
// copy, so the graph later handed to the scheduler is never touched by it.
package dag
