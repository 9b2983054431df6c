// Package env_vars provides the env_var capability, which copies a value from
// the process environment into every record.
package env_vars

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/vk/fakegridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// EnvVar returns the value of the environment variable options.name, or
// options.default when it is unset.
func EnvVar(_ *rand.Rand, args registry.Args) (any, error) {
	name, err := args.String("name", "")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("argument %q is required", "name")
	}
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	def, _ := args.Get("default")
	return def, nil
}

// EnvVarBatch reads the variable once for all n records.
func EnvVarBatch(r *rand.Rand, n int, options map[string]any) ([]any, error) {
	v, err := EnvVar(r, registry.OptionsOnly(options))
	if err != nil {
		return nil, err
	}
	out := make([]any, n)
	for i := range out {
		out[i] = v
	}
	return out, nil
}

// Register registers the capabilities with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("env_var", "value of environment variable options.name, else options.default", EnvVar)
	r.RegisterBatch("env_var", EnvVarBatch)
}
