package typeinfo

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// Registry maps type names to Go types. Composite types (pointers, slices,
// arrays, maps) never need registering: their names are spelled the Go way
// ("[]int", "map[string]*pkg/path.T", "[3]float64") and parsed on lookup.
// Named types must be registered, either explicitly or by Learn.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

var builtins = []any{
	false, int(0), int8(0), int16(0), int32(0), int64(0),
	uint(0), uint8(0), uint16(0), uint32(0), uint64(0), uintptr(0),
	float32(0), float64(0), complex64(0), complex128(0), "",
}

// AnyType is the empty interface type.
var AnyType = reflect.TypeOf((*any)(nil)).Elem()

// NewRegistry returns a registry that knows the predeclared types.
func NewRegistry() *Registry {
	r := &Registry{byName: map[string]reflect.Type{}, byType: map[reflect.Type]string{}}
	for _, b := range builtins {
		t := reflect.TypeOf(b)
		r.byName[t.Name()] = t
	}
	r.byName["byte"] = reflect.TypeOf(uint8(0))
	r.byName["rune"] = reflect.TypeOf(int32(0))
	r.byName["any"] = AnyType
	r.byName["interface {}"] = AnyType
	r.byName["error"] = reflect.TypeOf((*error)(nil)).Elem()
	return r
}

// Default is the process-wide registry used when options do not carry one.
var Default = NewRegistry()

// Register binds name to t. The name becomes the spelling the writer emits
// for t. Binding a name already bound to a different type is an error.
func (r *Registry) Register(name string, t reflect.Type) error {
	if name == "" || t == nil {
		return fmt.Errorf("jsongraph: register: empty name or nil type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byName[name]; ok && prev != t {
		return fmt.Errorf("jsongraph: register: %q already bound to %s", name, prev)
	}
	r.byName[name] = t
	r.byType[t] = name
	return nil
}

// Learn registers every named type t is built from under its canonical name,
// unless it already has one.
func (r *Registry) Learn(t reflect.Type) {
	for t != nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			if t.Name() == "" {
				t = t.Elem()
				continue
			}
		case reflect.Map:
			if t.Name() == "" {
				r.Learn(t.Key())
				t = t.Elem()
				continue
			}
		}
		if t.Name() == "" || t.PkgPath() == "" {
			return
		}
		r.mu.RLock()
		_, known := r.byType[t]
		r.mu.RUnlock()
		if known {
			return
		}
		name := canonical(t)
		r.mu.Lock()
		if _, taken := r.byName[name]; !taken {
			r.byName[name] = t
		}
		if _, ok := r.byType[t]; !ok {
			r.byType[t] = name
		}
		r.mu.Unlock()
		return
	}
}

func canonical(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

func (r *Registry) registeredName(t reflect.Type) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byType[t]
	return n, ok
}

func (r *Registry) exact(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Namer renders and parses type names against a registry plus a per-call
// alias table. Aliases apply to every component of a composite name.
type Namer struct {
	Reg *Registry
	// toAlias maps canonical names to the alias written on the wire.
	toAlias map[string]string
	// fromAlias maps aliases read from the wire back to canonical names.
	fromAlias map[string]string
}

// NewNamer builds a namer. aliases maps canonical name -> alias.
func NewNamer(reg *Registry, aliases map[string]string) *Namer {
	if reg == nil {
		reg = Default
	}
	n := &Namer{Reg: reg, toAlias: map[string]string{}, fromAlias: map[string]string{}}
	for canon, alias := range aliases {
		n.toAlias[canon] = alias
		n.fromAlias[alias] = canon
	}
	return n
}

// Name renders the wire name of t.
func (n *Namer) Name(t reflect.Type) string {
	if t.Name() != "" {
		name, ok := n.Reg.registeredName(t)
		if !ok {
			name = canonical(t)
		}
		if a, ok := n.toAlias[name]; ok {
			return a
		}
		return name
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + n.Name(t.Elem())
	case reflect.Slice:
		return "[]" + n.Name(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + n.Name(t.Elem())
	case reflect.Map:
		return "map[" + n.Name(t.Key()) + "]" + n.Name(t.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any"
		}
	}
	return t.String()
}

// Lookup resolves a wire name to a Go type.
func (n *Namer) Lookup(name string) (reflect.Type, bool) {
	if canon, ok := n.fromAlias[name]; ok {
		name = canon
	}
	if t, ok := n.Reg.exact(name); ok {
		return t, true
	}
	switch {
	case strings.HasPrefix(name, "*"):
		if e, ok := n.Lookup(name[1:]); ok {
			return reflect.PointerTo(e), true
		}
	case strings.HasPrefix(name, "[]"):
		if e, ok := n.Lookup(name[2:]); ok {
			return reflect.SliceOf(e), true
		}
	case strings.HasPrefix(name, "["):
		end := strings.IndexByte(name, ']')
		if end < 0 {
			return nil, false
		}
		size, err := strconv.Atoi(name[1:end])
		if err != nil || size < 0 {
			return nil, false
		}
		if e, ok := n.Lookup(name[end+1:]); ok {
			return reflect.ArrayOf(size, e), true
		}
	case strings.HasPrefix(name, "map["):
		end := matchBracket(name, 3)
		if end < 0 {
			return nil, false
		}
		k, ok := n.Lookup(name[4:end])
		if !ok || !k.Comparable() {
			return nil, false
		}
		if v, ok := n.Lookup(name[end+1:]); ok {
			return reflect.MapOf(k, v), true
		}
	}
	return nil, false
}

// matchBracket returns the index of the ']' closing the '[' at open.
func matchBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
