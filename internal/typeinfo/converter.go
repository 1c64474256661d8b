package typeinfo

import (
	"reflect"
)

// Converter is a pluggable per-type override consulted before the default
// coercion and structural rules. Read receives a wire scalar (string,
// wire.Number, bool, nil) or a *wire.Node and returns a value assignable to
// t; Write returns a wire scalar or *wire.Node for v.
type Converter interface {
	Accepts(t reflect.Type) bool
	Read(raw any, t reflect.Type) (reflect.Value, error)
	Write(v reflect.Value) (any, error)
}

// Converters is an ordered converter list; earlier entries win.
type Converters []Converter

// Find returns the first converter accepting t.
func (cs Converters) Find(t reflect.Type) Converter {
	for _, c := range cs {
		if c.Accepts(t) {
			return c
		}
	}
	return nil
}

// Policy decides which types are logical primitives: always written inline,
// never tracked for identity.
type Policy struct {
	Converters Converters
	Extra      map[reflect.Type]bool
}

// IsScalarKind reports the predeclared scalar kinds.
func IsScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	}
	return false
}

// IsNonReferenceable reports whether t is a logical primitive. Pointers to
// logical primitives are logical primitives too.
func (p Policy) IsNonReferenceable(t reflect.Type) bool {
	if p.Extra[t] {
		return true
	}
	if p.Converters.Find(t) != nil {
		return true
	}
	if IsScalarKind(t.Kind()) {
		return true
	}
	if t.Kind() == reflect.Pointer {
		return p.IsNonReferenceable(t.Elem())
	}
	return false
}

// IsLeaf reports whether t is written as a single scalar: a scalar kind, a
// type with a converter, or a pointer to either. Extra record types are
// non-referenceable but still written field by field.
func (p Policy) IsLeaf(t reflect.Type) bool {
	if p.Converters.Find(t) != nil || IsScalarKind(t.Kind()) {
		return true
	}
	if t.Kind() == reflect.Pointer {
		return p.IsLeaf(t.Elem())
	}
	return false
}
