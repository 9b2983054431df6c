// Package config loads record declarations from files into the
// format-agnostic schema.Declaration tree.
//
// A Loader handles one file format. The Dispatcher resolves paths to files,
// picks a Loader by file extension and merges every file into a single
// declaration. The YAML loader lives here; the HCL loader is provided by
// the hcl package.
package config
