// Package engine turns a declaration into generated records. It parses and
// validates the declaration, builds the field dependency graph, resolves a
// column function for every field, checks the graph for cycles and only
// then schedules the field tasks. Results are reshaped into nested records
// once every task has finished.
package engine
