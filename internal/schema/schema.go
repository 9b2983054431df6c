// Package schema defines the validated, format-agnostic model of a record
// declaration. Loaders produce a raw Declaration tree; Parse normalizes it
// into a flat list of leaf Fields addressed by dotted ids.
package schema

import (
	"fmt"
	"strings"
)

// PathSeparator joins the names of nested fields into a field id.
const PathSeparator = "."

// ConstantType is the capability that backs `constant` declarations.
const ConstantType = "constant"

// ChoiceType is the capability forced by the `choices` shorthand.
const ChoiceType = "choice"

// Declaration is the raw declaration tree: field name to field declaration.
// Field specs are map[string]any with the keys type, fields, constant,
// options, context, multiple, sparsity, unique and choices.
type Declaration map[string]any

// Field is a single generated leaf of a record.
type Field struct {
	// ID is the dotted path of the field within the record.
	ID string
	// Type names the generation capability.
	Type string
	// Options are passed to the capability on every call.
	Options map[string]any
	// Context maps a capability parameter to the id of the field feeding it.
	Context map[string]string
	// Multiple is non-nil when every value is an array of values.
	Multiple *Shape
	// Sparsity is the percent chance that a slot is null.
	Sparsity int
	// Unique requests pairwise-distinct values across the batch.
	Unique bool
}

// Shape describes the array produced per slot by a multiple field.
type Shape struct {
	Min        int
	Max        int
	Mean       float64
	Variance   float64
	Duplicates bool
}

// ValidationError reports a declaration that cannot be generated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func invalid(id, format string, args ...any) *ValidationError {
	return &ValidationError{Field: id, Reason: fmt.Sprintf(format, args...)}
}

// Join builds a field id from its path segments.
func Join(parts ...string) string {
	return strings.Join(parts, PathSeparator)
}
