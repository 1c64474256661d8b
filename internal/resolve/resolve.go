// Package resolve rebuilds a Go object graph from a wire document.
//
// Resolution runs in two passes. The first indexes every identified node and
// allocates shells for the ones whose type is fixed by a tag, so forward
// references always have a target. The second populates values depth-first
// against their declared slot types; references from untyped slots to nodes
// that have no shell yet are deferred and patched once population ends.
package resolve

import (
	"reflect"

	"github.com/charmbracelet/log"

	"github.com/reoring/jsongraph/internal/coerce"
	"github.com/reoring/jsongraph/internal/issue"
	"github.com/reoring/jsongraph/internal/tracker"
	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// DefaultMaxDepth bounds nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 1000

// UnknownTypePolicy selects what happens to a type tag with no registered type.
type UnknownTypePolicy int

const (
	UnknownTypeError   UnknownTypePolicy = iota
	UnknownTypeGeneric                   // read the node as if it were untagged
)

// UnknownFieldPolicy selects what happens to object members with no struct field.
type UnknownFieldPolicy int

const (
	UnknownStrip UnknownFieldPolicy = iota
	UnknownStrict
)

// Options configure one resolution.
type Options struct {
	Namer         *typeinfo.Namer
	Coerce        coerce.Options
	UnknownType   UnknownTypePolicy
	UnknownFields UnknownFieldPolicy
	// Fallback is used for tags no type is registered under. It takes
	// precedence over UnknownType.
	Fallback reflect.Type
	// MissingField, when set, receives members with no struct field instead
	// of UnknownFields. It runs after every reference is resolved; record is
	// a pointer to the struct being populated when it is addressable.
	MissingField func(record any, field string, value any)
	MaxDepth     int
	Logger       *log.Logger
}

// Phase is the resolver's progress through one document.
type Phase int

const (
	PhaseParsed Phase = iota
	PhaseShellsAllocated
	PhaseFieldsPopulated
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseShellsAllocated:
		return "shells-allocated"
	case PhaseFieldsPopulated:
		return "fields-populated"
	case PhaseFinished:
		return "finished"
	default:
		return "parsed"
	}
}

// Resolver is single-use: it owns the reference table of one document.
type Resolver struct {
	opt   Options
	reads *tracker.Reads
	phase Phase
}

func New(opt Options) *Resolver {
	if opt.Namer == nil {
		opt.Namer = typeinfo.NewNamer(nil, nil)
	}
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = DefaultMaxDepth
	}
	return &Resolver{opt: opt, reads: tracker.NewReads()}
}

// Phase reports how far resolution got.
func (r *Resolver) Phase() Phase { return r.phase }

func (r *Resolver) advance(p Phase) {
	r.phase = p
	if r.opt.Logger != nil {
		r.opt.Logger.Debug("resolve", "phase", p, "pending", r.reads.Pending())
	}
}

// Resolve populates dst (settable) from the document root.
func (r *Resolver) Resolve(root any, dst reflect.Value) error {
	if err := r.allocate(root, issue.Path{}); err != nil {
		return err
	}
	r.advance(PhaseShellsAllocated)
	if err := r.decode(root, dst, issue.Path{}, 0); err != nil {
		return err
	}
	if err := r.orphans(); err != nil {
		return err
	}
	r.advance(PhaseFieldsPopulated)
	if err := r.reads.Finish(); err != nil {
		return err
	}
	r.advance(PhaseFinished)
	return nil
}

// allocate is pass 1.
func (r *Resolver) allocate(v any, p issue.Path) error {
	n, ok := v.(*wire.Node)
	if !ok || n == nil {
		return nil
	}
	n.Target, n.Finished = reflect.Value{}, false
	if n.HasID {
		r.reads.Index(n.ID, n)
		if n.Type != "" {
			t, err := r.tagType(n, p)
			if err != nil {
				return err
			}
			if t == nil || t.Kind() == reflect.Interface {
				t = genericType(n)
			}
			n.Target = allocShell(n, t)
			r.reads.RegisterShell(n.ID, n.Target)
		}
	}
	for i, k := range n.Keys {
		if err := r.allocate(k, p.Field("@keys").Index(i)); err != nil {
			return err
		}
	}
	for i, it := range n.Items {
		if err := r.allocate(it, itemPath(n, p, i)); err != nil {
			return err
		}
	}
	for _, f := range n.Fields {
		if err := r.allocate(f.Value, p.Field(f.Name)); err != nil {
			return err
		}
	}
	return nil
}

func itemPath(n *wire.Node, p issue.Path, i int) issue.Path {
	if n.Array {
		return p.Index(i)
	}
	return p.Field("@items").Index(i)
}

func (r *Resolver) tagType(n *wire.Node, p issue.Path) (reflect.Type, error) {
	if t, ok := r.opt.Namer.Lookup(n.Type); ok {
		return t, nil
	}
	if r.opt.Fallback != nil {
		if r.opt.Logger != nil {
			r.opt.Logger.Debug("unknown type tag, using fallback", "type", n.Type, "fallback", r.opt.Fallback, "path", p.Pointer())
		}
		return r.opt.Fallback, nil
	}
	if r.opt.UnknownType == UnknownTypeGeneric {
		if r.opt.Logger != nil {
			r.opt.Logger.Debug("unknown type tag, reading generically", "type", n.Type, "path", p.Pointer())
		}
		return nil, nil
	}
	return nil, issue.UnknownType(p.Pointer(), n.Type)
}

var (
	sliceAny     = reflect.TypeOf([]any(nil))
	mapStringAny = reflect.TypeOf(map[string]any(nil))
	mapAnyAny    = reflect.TypeOf(map[any]any(nil))
)

// genericType picks the natural container for an untyped node.
func genericType(n *wire.Node) reflect.Type {
	switch {
	case n.Keys != nil:
		return mapAnyAny
	case n.Array || n.Items != nil:
		return sliceAny
	default:
		return mapStringAny
	}
}

func allocShell(n *wire.Node, t reflect.Type) reflect.Value {
	switch t.Kind() {
	case reflect.Pointer:
		return reflect.New(t.Elem())
	case reflect.Map:
		return reflect.MakeMap(t)
	case reflect.Slice:
		if n.TypeOnly() {
			return reflect.Zero(t)
		}
		return reflect.MakeSlice(t, len(n.Items), len(n.Items))
	}
	return reflect.New(t).Elem()
}

// isValueKind reports types whose values are copied on assignment, so a
// shell of such a type cannot stand in for a value still being populated.
func isValueKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return false
	}
	return true
}

// transparent reports pointers whose identity lives on the pointee: pointers
// to pointers and pointers to interfaces.
func transparent(t reflect.Type) bool {
	if t.Kind() != reflect.Pointer {
		return false
	}
	ek := t.Elem().Kind()
	return ek == reflect.Pointer || ek == reflect.Interface
}

func assign(dst, v reflect.Value, p issue.Path) error {
	t := dst.Type()
	if !v.IsValid() {
		dst.Set(reflect.Zero(t))
		return nil
	}
	if v.Type().AssignableTo(t) {
		dst.Set(v)
		return nil
	}
	if v.Kind() == t.Kind() && v.Type().ConvertibleTo(t) {
		dst.Set(v.Convert(t))
		return nil
	}
	return issue.New(issue.KindMalformedWire, p.Pointer(), "%s cannot be stored in %s", v.Type(), t)
}

// decode is pass 2 for one value: raw is stored into the settable dst.
func (r *Resolver) decode(raw any, dst reflect.Value, p issue.Path, depth int) error {
	if depth > r.opt.MaxDepth {
		return issue.DepthExceeded(p.Pointer(), r.opt.MaxDepth)
	}
	n, ok := raw.(*wire.Node)
	if !ok || n == nil {
		if ok {
			raw = nil
		}
		return r.scalar(raw, dst, p)
	}
	if n.HasRef {
		return r.ref(n.Ref, dst, p)
	}
	if n.Type != "" {
		tt, err := r.tagType(n, p)
		if err != nil {
			return err
		}
		// A tag-only array marks a nil slice; an interface slot holds it as null.
		if tt != nil && tt.Kind() == reflect.Slice && n.TypeOnly() && dst.Kind() == reflect.Interface {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		if tt != nil && tt != dst.Type() && tt.Kind() != reflect.Interface {
			return r.viaTemp(dst, tt, p, func(v reflect.Value) error {
				return r.node(n, v, p, depth)
			})
		}
	}
	return r.node(n, dst, p, depth)
}

// viaTemp builds a value of type t and stores it into dst. When the value is
// copied on assignment and parts of it are still waiting on fixups, the store
// itself is queued behind them.
func (r *Resolver) viaTemp(dst reflect.Value, t reflect.Type, p issue.Path, fill func(reflect.Value) error) error {
	before := r.reads.Pending()
	v := reflect.New(t).Elem()
	if err := fill(v); err != nil {
		return err
	}
	if r.reads.Pending() > before && isValueKind(t) {
		r.reads.After(p.Pointer(), func() error { return assign(dst, v, p) })
		return nil
	}
	return assign(dst, v, p)
}

func (r *Resolver) scalar(raw any, dst reflect.Value, p issue.Path) error {
	v, err := coerce.Coerce(raw, dst.Type(), r.opt.Coerce)
	if err != nil {
		return issue.WithPath(err, p.Pointer())
	}
	return assign(dst, v, p)
}

// wrapped returns the payload of a tagged primitive {"@type":T,"value":v}.
func wrapped(n *wire.Node) (any, bool) {
	if n.Type == "" || n.Array || n.Items != nil || n.Keys != nil || len(n.Fields) != 1 || n.Fields[0].Name != "value" {
		return nil, false
	}
	return n.Fields[0].Value, true
}

// ref stores the shell of id into dst, or defers the store until it exists.
func (r *Resolver) ref(id int64, dst reflect.Value, p issue.Path) error {
	t := dst.Type()
	if transparent(t) {
		pv := reflect.New(t.Elem())
		if err := r.ref(id, pv.Elem(), p); err != nil {
			return err
		}
		dst.Set(pv)
		return nil
	}
	shell, ok := r.reads.Resolve(id)
	if ok && !isValueKind(shell.Type()) {
		return assign(dst, shell, p)
	}
	n, known := r.reads.Node(id)
	if !known {
		return issue.Unresolved(p.Pointer(), id)
	}
	if !ok && !isValueKind(t) && t.Kind() != reflect.Interface {
		n.Target = allocShell(n, t)
		r.reads.RegisterShell(id, n.Target)
		return assign(dst, n.Target, p)
	}
	if r.opt.Logger != nil {
		r.opt.Logger.Debug("deferring reference", "ref", id, "path", p.Pointer())
	}
	r.reads.Defer(id, p.Pointer(), func(v reflect.Value) error { return assign(dst, v, p) })
	return nil
}

// identity returns the shell for an identified node, allocating it on first
// sight, and whether the caller still has to populate it.
func (r *Resolver) identity(n *wire.Node, t reflect.Type) (reflect.Value, bool) {
	if !n.HasID {
		return allocShell(n, t), true
	}
	if !n.Target.IsValid() {
		n.Target = allocShell(n, t)
		r.reads.RegisterShell(n.ID, n.Target)
	}
	populate := !n.Finished
	n.Finished = true
	return n.Target, populate
}

// node decodes a non-reference node whose tag (if any) has been applied.
func (r *Resolver) node(n *wire.Node, dst reflect.Value, p issue.Path, depth int) error {
	t := dst.Type()
	if r.opt.Coerce.Converters.Find(t) != nil {
		var raw any = n
		if inner, ok := wrapped(n); ok {
			raw = inner
		}
		return r.scalar(raw, dst, p)
	}
	switch t.Kind() {
	case reflect.Interface:
		gt := genericType(n)
		if n.Target.IsValid() {
			gt = n.Target.Type()
		}
		if !gt.AssignableTo(t) {
			return issue.New(issue.KindMalformedWire, p.Pointer(), "untyped %s cannot be stored in %s", gt, t)
		}
		return r.viaTemp(dst, gt, p, func(v reflect.Value) error { return r.node(n, v, p, depth) })
	case reflect.Pointer:
		if transparent(t) {
			pv := reflect.New(t.Elem())
			if err := r.node(n, pv.Elem(), p, depth); err != nil {
				return err
			}
			dst.Set(pv)
			return nil
		}
		if r.policy().IsLeaf(t) {
			return r.primitive(n, dst, p)
		}
		shell, populate := r.identity(n, t)
		if err := assign(dst, shell, p); err != nil {
			return err
		}
		if populate {
			return r.content(n, shell.Elem(), p, depth)
		}
		return nil
	case reflect.Map, reflect.Slice:
		shell, populate := r.identity(n, t)
		if err := assign(dst, shell, p); err != nil {
			return err
		}
		if populate {
			return r.content(n, shell, p, depth)
		}
		return nil
	case reflect.Struct, reflect.Array:
		if !n.HasID {
			return r.content(n, dst, p, depth)
		}
		before := r.reads.Pending()
		shell, populate := r.identity(n, t)
		if populate {
			if err := r.content(n, shell, p, depth); err != nil {
				return err
			}
		}
		if r.reads.Pending() > before {
			r.reads.After(p.Pointer(), func() error { return assign(dst, shell, p) })
			return nil
		}
		return assign(dst, shell, p)
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return issue.New(issue.KindUnsupported, p.Pointer(), "cannot decode into %s", t)
	}
	return r.primitive(n, dst, p)
}

func (r *Resolver) policy() typeinfo.Policy {
	return typeinfo.Policy{Converters: r.opt.Coerce.Converters}
}

func (r *Resolver) primitive(n *wire.Node, dst reflect.Value, p issue.Path) error {
	if inner, ok := wrapped(n); ok {
		return r.scalar(inner, dst, p)
	}
	return issue.New(issue.KindMalformedWire, p.Pointer(), "structured value cannot be read into %s", dst.Type())
}

// content populates an allocated struct, array, slice or map from n.
func (r *Resolver) content(n *wire.Node, v reflect.Value, p issue.Path, depth int) error {
	switch v.Kind() {
	case reflect.Struct:
		if n.Array || n.Items != nil || n.Keys != nil {
			return issue.New(issue.KindMalformedWire, p.Pointer(), "items on record type %s", v.Type())
		}
		info := typeinfo.Struct(v.Type())
		for _, f := range n.Fields {
			fi, ok := info.Lookup(f.Name)
			if !ok {
				if r.opt.MissingField != nil {
					if err := r.missing(v, f, p.Field(f.Name), depth); err != nil {
						return err
					}
					continue
				}
				if r.opt.UnknownFields == UnknownStrict {
					return issue.New(issue.KindMalformedWire, p.Field(f.Name).Pointer(), "unknown field %q for %s", f.Name, v.Type())
				}
				continue
			}
			if err := r.decode(f.Value, v.FieldByIndex(fi.Index), p.Field(f.Name), depth+1); err != nil {
				return err
			}
		}
		return nil
	case reflect.Array, reflect.Slice:
		if n.Keys != nil || (n.Items == nil && len(n.Fields) > 0) {
			return issue.New(issue.KindMalformedWire, p.Pointer(), "record content for array type %s", v.Type())
		}
		if len(n.Items) > v.Len() {
			return issue.New(issue.KindMalformedWire, p.Pointer(), "%d items exceed length %d of %s", len(n.Items), v.Len(), v.Type())
		}
		for i, it := range n.Items {
			if err := r.decode(it, v.Index(i), itemPath(n, p, i), depth+1); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		return r.mapContent(n, v, p, depth)
	}
	return issue.New(issue.KindMalformedWire, p.Pointer(), "no structured form for %s", v.Type())
}

// missing decodes an unmatched member generically and hands it to the
// MissingField callback once fixups have run.
func (r *Resolver) missing(record reflect.Value, f wire.Field, p issue.Path, depth int) error {
	holder := reflect.New(typeinfo.AnyType).Elem()
	if err := r.decode(f.Value, holder, p, depth+1); err != nil {
		return err
	}
	owner := record.Interface
	if record.CanAddr() {
		owner = record.Addr().Interface
	}
	r.reads.After(p.Pointer(), func() error {
		r.opt.MissingField(owner(), f.Name, holder.Interface())
		return nil
	})
	return nil
}

func (r *Resolver) mapContent(n *wire.Node, m reflect.Value, p issue.Path, depth int) error {
	if n.Keys != nil {
		for i := range n.Keys {
			if err := r.entry(m, n.Keys[i], n.Items[i], p.Field("@keys").Index(i), p.Field("@items").Index(i), depth); err != nil {
				return err
			}
		}
		return nil
	}
	if len(n.Items) > 0 {
		return issue.New(issue.KindMalformedWire, p.Pointer(), "items without keys for map type %s", m.Type())
	}
	for _, f := range n.Fields {
		if err := r.entry(m, f.Name, f.Value, p.Field(f.Name), p.Field(f.Name), depth); err != nil {
			return err
		}
	}
	return nil
}

// entry stores one map entry. When the key or value is waiting on a fixup the
// store is queued behind it.
func (r *Resolver) entry(m reflect.Value, kraw, vraw any, kp, vp issue.Path, depth int) error {
	before := r.reads.Pending()
	k := reflect.New(m.Type().Key()).Elem()
	if err := r.decode(kraw, k, kp, depth+1); err != nil {
		return err
	}
	v := reflect.New(m.Type().Elem()).Elem()
	if err := r.decode(vraw, v, vp, depth+1); err != nil {
		return err
	}
	commit := func() error {
		if !k.Comparable() {
			return issue.New(issue.KindMalformedWire, kp.Pointer(), "map key of type %s is not comparable", k.Type())
		}
		m.SetMapIndex(k, v)
		return nil
	}
	if r.reads.Pending() > before {
		r.reads.After(vp.Pointer(), commit)
		return nil
	}
	return commit()
}

// orphans populates identified nodes that pass 2 never reached, such as ids
// inside stripped fields that are referenced from elsewhere.
func (r *Resolver) orphans() error {
	for _, id := range r.reads.IDs() {
		n, _ := r.reads.Node(id)
		if n.Finished {
			continue
		}
		t := genericType(n)
		if n.Target.IsValid() {
			t = n.Target.Type()
		}
		holder := reflect.New(t).Elem()
		if err := r.node(n, holder, issue.Path{}, 0); err != nil {
			return err
		}
	}
	return nil
}
