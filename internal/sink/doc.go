// Package sink writes generated records out: JSON and YAML documents, a
// text table of flattened columns, or rows of a SQLite table.
package sink
