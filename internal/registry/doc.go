// Package registry provides the central "glue" for the module system.
//
// The Registry maps the capability names used in declarations (for example
// "first_name") to the compiled Go functions that produce values. A
// capability has a single-value form and may add a batch form, used to
// produce many independent values in one call, and a distinct-values form,
// used when a field asks for unique values.
//
// During application startup every module registers into the registry,
// which is then validated so that a declaration can never reach a
// half-registered capability.
package registry
