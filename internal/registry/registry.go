package registry

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
)

// Module is the interface that all provider modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// SingleFunc produces one value.
type SingleFunc func(r *rand.Rand, args Args) (any, error)

// BatchFunc produces n independent values in one call. It never sees
// context values.
type BatchFunc func(r *rand.Rand, n int, options map[string]any) ([]any, error)

// UniqueFunc produces n pairwise-distinct values in one call. It returns an
// error when the capability cannot produce that many distinct values.
type UniqueFunc func(r *rand.Rand, n int, args Args) ([]any, error)

// Capability is a named value generator.
type Capability struct {
	Name        string
	Description string
	Single      SingleFunc
	Batch       BatchFunc
	Unique      UniqueFunc
}

// Registry holds all the registered capabilities for a single application
// instance.
type Registry struct {
	capabilities map[string]*Capability
}

// New creates a Registry and registers every given module into it.
func New(modules ...Module) *Registry {
	r := &Registry{capabilities: make(map[string]*Capability)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

func (r *Registry) entry(name string) *Capability {
	c, ok := r.capabilities[name]
	if !ok {
		c = &Capability{Name: name}
		r.capabilities[name] = c
	}
	return c
}

// Register registers the single-value form of a capability.
func (r *Registry) Register(name, description string, fn SingleFunc) {
	c := r.entry(name)
	if c.Single != nil {
		panic(fmt.Sprintf("capability with name '%s' already registered", name))
	}
	slog.Debug("Registering capability.", "name", name)
	c.Description = description
	c.Single = fn
}

// RegisterBatch registers the batch form of a capability.
func (r *Registry) RegisterBatch(name string, fn BatchFunc) {
	c := r.entry(name)
	if c.Batch != nil {
		panic(fmt.Sprintf("batch form of capability '%s' already registered", name))
	}
	slog.Debug("Registering batch form.", "name", name)
	c.Batch = fn
}

// RegisterUnique registers the distinct-values form of a capability.
func (r *Registry) RegisterUnique(name string, fn UniqueFunc) {
	c := r.entry(name)
	if c.Unique != nil {
		panic(fmt.Sprintf("distinct-values form of capability '%s' already registered", name))
	}
	slog.Debug("Registering distinct-values form.", "name", name)
	c.Unique = fn
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (*Capability, error) {
	c, ok := r.capabilities[name]
	if !ok || c.Single == nil {
		return nil, &NameNotFoundError{Name: name}
	}
	return c, nil
}

// LookupUnique returns the distinct-values form registered under name.
func (r *Registry) LookupUnique(name string) (UniqueFunc, error) {
	c, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if c.Unique == nil {
		return nil, &NoUniqueFormError{Name: name}
	}
	return c.Unique, nil
}

// Names returns the sorted names of every complete capability.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.capabilities))
	for name, c := range r.capabilities {
		if c.Single != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Capabilities returns every complete capability sorted by name.
func (r *Registry) Capabilities() []*Capability {
	names := r.Names()
	out := make([]*Capability, len(names))
	for i, name := range names {
		out[i] = r.capabilities[name]
	}
	return out
}

// NameNotFoundError is returned when a declaration names a capability that
// is not registered.
type NameNotFoundError struct {
	Name string
}

func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("unknown capability %q", e.Name)
}

// NoUniqueFormError is returned when unique values are requested from a
// capability that has no distinct-values form.
type NoUniqueFormError struct {
	Name string
}

func (e *NoUniqueFormError) Error() string {
	return fmt.Sprintf("capability %q cannot produce unique values", e.Name)
}
