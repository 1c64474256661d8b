package jsongraph

import (
	"reflect"

	"github.com/reoring/jsongraph/internal/typeinfo"
)

// Registry maps wire type names to Go types. It is safe for concurrent use.
type Registry = typeinfo.Registry

// Converter overrides how values of the types it accepts are read and
// written. See the codec package for ready-made converters.
type Converter = typeinfo.Converter

// NewRegistry returns an empty registry that knows the predeclared types.
func NewRegistry() *Registry { return typeinfo.NewRegistry() }

// DefaultRegistry returns the process-wide registry used when an option set
// carries none.
func DefaultRegistry() *Registry { return typeinfo.Default }

// Register binds name to T in the default registry. The writer emits name
// for T and the reader resolves name to T. Unregistered named types are
// written under their package-qualified name ("example.com/pkg.T") and become
// readable once a value of that type has been written.
func Register[T any](name string) error {
	return typeinfo.Default.Register(name, reflect.TypeFor[T]())
}

// RegisterType binds name to t in the default registry.
func RegisterType(name string, t reflect.Type) error {
	return typeinfo.Default.Register(name, t)
}

// TypeName reports the wire name the writer uses for t under reg (nil means
// the default registry) and aliases.
func TypeName(reg *Registry, t reflect.Type, aliases map[string]string) string {
	reg = registryOf(reg)
	reg.Learn(t)
	return typeinfo.NewNamer(reg, aliases).Name(t)
}

// LookupType resolves a wire type name under reg (nil means the default
// registry) and aliases.
func LookupType(reg *Registry, name string, aliases map[string]string) (reflect.Type, bool) {
	return typeinfo.NewNamer(registryOf(reg), aliases).Lookup(name)
}

func registryOf(r *Registry) *Registry {
	if r == nil {
		return typeinfo.Default
	}
	return r
}
