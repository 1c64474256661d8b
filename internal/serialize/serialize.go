// Package serialize turns a Go object graph into a wire document.
//
// Writing happens in two walks over the same traversal order. The trace walk
// counts how often each referenceable value is reached; the emit walk then
// writes shared values once with an id and every later occurrence as a ref.
package serialize

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/reoring/jsongraph/internal/issue"
	"github.com/reoring/jsongraph/internal/tracker"
	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// DefaultMaxDepth bounds nesting when Options.MaxDepth is unset.
const DefaultMaxDepth = 1000

// TypePolicy selects when type tags are written.
type TypePolicy int

const (
	TypeMinimal TypePolicy = iota // only where the slot's declared type cannot tell
	TypeAlways
	TypeNever
)

// Options configure one write.
type Options struct {
	Types          TypePolicy
	Namer          *typeinfo.Namer
	Policy         typeinfo.Policy
	Filter         typeinfo.FieldFilter
	MaxDepth       int
	MaxObjects     int
	ForceKeysItems bool
	AllowNaN       bool
	SkipNullFields bool
	// Int64AsString writes 64-bit integers as decimal text.
	Int64AsString bool
	Logger        *log.Logger
}

type writer struct {
	opt    Options
	writes *tracker.Writes
}

// Serialize writes root, declared as the given slot type (nil means any).
func Serialize(root reflect.Value, declared reflect.Type, opt Options) (any, error) {
	if opt.Namer == nil {
		opt.Namer = typeinfo.NewNamer(nil, nil)
	}
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = DefaultMaxDepth
	}
	if declared == nil {
		declared = typeinfo.AnyType
	}
	w := &writer{opt: opt, writes: tracker.NewWrites()}
	if err := w.trace(root, issue.Path{}, 0); err != nil {
		return nil, err
	}
	if opt.Logger != nil {
		opt.Logger.Debug("serialize traced", "objects", w.writes.Traced())
	}
	return w.emit(root, declared, issue.Path{}, 0)
}

func derefInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func (w *writer) trace(v reflect.Value, p issue.Path, depth int) error {
	v = derefInterface(v)
	if !v.IsValid() || w.opt.Policy.IsLeaf(v.Type()) {
		return nil
	}
	if depth > w.opt.MaxDepth {
		return issue.DepthExceeded(p.Pointer(), w.opt.MaxDepth)
	}
	if k, ok := tracker.KeyOf(v, w.opt.Policy); ok {
		if !w.writes.Trace(k) {
			return nil
		}
		if w.opt.MaxObjects > 0 && w.writes.Traced() > w.opt.MaxObjects {
			return issue.New(issue.KindUnsupported, p.Pointer(), "graph has more than %d objects", w.opt.MaxObjects)
		}
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		if ek := v.Type().Elem().Kind(); ek == reflect.Pointer || ek == reflect.Interface {
			return w.trace(v.Elem(), p, depth+1)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		for _, f := range w.fields(v) {
			if err := w.trace(f.val, p.Field(f.Name), depth+1); err != nil {
				return err
			}
		}
	case reflect.Array, reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err := w.trace(v.Index(i), p.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := w.trace(iter.Key(), p, depth+1); err != nil {
				return err
			}
			if err := w.trace(iter.Value(), p, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

type fieldValue struct {
	typeinfo.FieldInfo
	val reflect.Value
}

func (w *writer) fields(v reflect.Value) []fieldValue {
	info := typeinfo.Struct(v.Type())
	typeName := w.opt.Namer.Name(v.Type())
	out := make([]fieldValue, 0, len(info.Fields))
	for _, fi := range info.Fields {
		if !w.opt.Filter.Allowed(typeName, fi.Name) {
			continue
		}
		fv := v.FieldByIndex(fi.Index)
		if fi.OmitEmpty && isEmptyValue(fv) {
			continue
		}
		out = append(out, fieldValue{FieldInfo: fi, val: fv})
	}
	return out
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

func (w *writer) emit(v reflect.Value, declared reflect.Type, p issue.Path, depth int) (any, error) {
	if depth > w.opt.MaxDepth {
		return nil, issue.DepthExceeded(p.Pointer(), w.opt.MaxDepth)
	}
	v = derefInterface(v)
	if !v.IsValid() {
		return nil, nil
	}
	rt := v.Type()
	if w.opt.Policy.IsLeaf(rt) {
		return w.primitive(v, declared, p)
	}
	switch rt.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		if ek := rt.Elem().Kind(); ek == reflect.Pointer || ek == reflect.Interface {
			inner := typeinfo.AnyType
			if declared.Kind() == reflect.Pointer {
				inner = declared.Elem()
			}
			return w.emit(v.Elem(), inner, p, depth+1)
		}
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
	case reflect.Array, reflect.Struct:
	default:
		return nil, issue.New(issue.KindUnsupported, p.Pointer(), "cannot encode %s", rt)
	}

	var id int64
	if k, ok := tracker.KeyOf(v, w.opt.Policy); ok && w.writes.Shared(k) {
		nid, isNew := w.writes.AssignOrLookup(k)
		if !isNew {
			return wire.NewRef(nid), nil
		}
		id = nid
	}
	content := v
	if rt.Kind() == reflect.Pointer {
		content = v.Elem()
	}
	n, err := w.body(content, p, depth)
	if err != nil {
		return nil, err
	}
	if id != 0 {
		n.ID, n.HasID = id, true
	}
	if w.needTag(rt, declared) || w.ambiguousMap(n, rt, declared) {
		n.Type = w.name(rt)
	}
	if n.HasID || n.Type != "" {
		n.Array = false
	}
	return n, nil
}

func (w *writer) body(v reflect.Value, p issue.Path, depth int) (*wire.Node, error) {
	switch v.Kind() {
	case reflect.Struct:
		n := &wire.Node{}
		for _, f := range w.fields(v) {
			out, err := w.emit(f.val, f.Type, p.Field(f.Name), depth+1)
			if err != nil {
				return nil, err
			}
			if out == nil && w.opt.SkipNullFields {
				continue
			}
			n.AddField(f.Name, out)
		}
		return n, nil
	case reflect.Array, reflect.Slice:
		elem := v.Type().Elem()
		items := make([]any, v.Len())
		for i := range items {
			out, err := w.emit(v.Index(i), elem, p.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			items[i] = out
		}
		return wire.NewArray(items), nil
	case reflect.Map:
		return w.mapBody(v, p, depth)
	}
	return nil, issue.New(issue.KindUnsupported, p.Pointer(), "cannot encode %s", v.Type())
}

func (w *writer) mapBody(m reflect.Value, p issue.Path, depth int) (*wire.Node, error) {
	kt, vt := m.Type().Key(), m.Type().Elem()
	keys := m.MapKeys()
	sortKeys(keys)

	var names []string
	if !w.opt.ForceKeysItems && simpleKeyKind(kt.Kind()) && w.opt.Policy.Converters.Find(kt) == nil {
		names = make([]string, len(keys))
		seen := make(map[string]struct{}, len(keys))
		for i, k := range keys {
			names[i] = keyText(k)
			_, dup := seen[names[i]]
			if dup || wire.IsMetaKey(names[i]) {
				names = nil
				break
			}
			seen[names[i]] = struct{}{}
		}
	}
	if names != nil {
		n := &wire.Node{}
		for i, k := range keys {
			out, err := w.emit(m.MapIndex(k), vt, p.Field(names[i]), depth+1)
			if err != nil {
				return nil, err
			}
			n.AddField(names[i], out)
		}
		return n, nil
	}

	n := &wire.Node{Keys: make([]any, 0, len(keys)), Items: make([]any, 0, len(keys))}
	for i, k := range keys {
		kout, err := w.emit(k, kt, p.Field("@keys").Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		vout, err := w.emit(m.MapIndex(k), vt, p.Field("@items").Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		n.Keys = append(n.Keys, kout)
		n.Items = append(n.Items, vout)
	}
	return n, nil
}

func simpleKeyKind(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Bool || typeinfo.IsScalarKind(k) && k != reflect.Complex64 && k != reflect.Complex128
}

func keyText(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Bool:
		return strconv.FormatBool(k.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(k.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(k.Float(), 'g', -1, 64)
	}
	return canonicalKey(k, 0)
}

var mapStringAny = reflect.TypeOf(map[string]any(nil))

// natural reports types an untyped slot reads back without a tag.
func natural(t reflect.Type) bool {
	switch t {
	case reflect.TypeOf(""), reflect.TypeOf(false), reflect.TypeOf(int64(0)), reflect.TypeOf(float64(0)),
		reflect.TypeOf([]any(nil)), mapStringAny:
		return true
	}
	return false
}

func (w *writer) needTag(rt, declared reflect.Type) bool {
	switch w.opt.Types {
	case TypeNever:
		return false
	case TypeAlways:
		return true
	}
	if rt == declared {
		return false
	}
	if declared.Kind() == reflect.Interface {
		if c := w.opt.Policy.Converters.Find(rt); c != nil && c.Accepts(declared) {
			return false
		}
		return !natural(rt)
	}
	return true
}

// ambiguousMap catches a string-keyed generic map that had to use the paired
// keys/items form; untagged it would read back as map[any]any.
func (w *writer) ambiguousMap(n *wire.Node, rt, declared reflect.Type) bool {
	return w.opt.Types == TypeMinimal && rt == mapStringAny && n.Keys != nil && declared.Kind() == reflect.Interface
}

func (w *writer) name(t reflect.Type) string {
	w.opt.Namer.Reg.Learn(t)
	return w.opt.Namer.Name(t)
}

// primitive writes a logical primitive inline, wrapped as
// {"@type":T,"value":v} when its type has to be spelled out.
func (w *writer) primitive(v reflect.Value, declared reflect.Type, p issue.Path) (any, error) {
	rt := v.Type()
	raw, err := w.leaf(v, p)
	if err != nil {
		return nil, err
	}
	tag := w.needTag(rt, declared)
	if num, ok := raw.(wire.Number); ok && w.opt.Int64AsString && is64Bit(rt) {
		raw = string(num)
		// Text in an untyped slot would read back as a string.
		if w.opt.Types != TypeNever && declared.Kind() == reflect.Interface {
			tag = true
		}
	}
	if !tag && w.opt.Types != TypeNever && declared.Kind() == reflect.Interface {
		// NaN and infinities only survive as text; keep them floats.
		if num, ok := raw.(wire.Number); ok && !num.IsInteger() && strings.ContainsAny(string(num), "nN") {
			tag = true
		}
	}
	if !tag || raw == nil {
		return raw, nil
	}
	name := w.name(rt)
	if n, ok := raw.(*wire.Node); ok {
		if n.Type == "" {
			n.Type = name
		}
		return n, nil
	}
	n := &wire.Node{Type: name}
	n.AddField("value", raw)
	return n, nil
}

func is64Bit(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		return true
	}
	return false
}

// leaf renders a logical primitive without any tag.
func (w *writer) leaf(v reflect.Value, p issue.Path) (any, error) {
	rt := v.Type()
	if rt.Kind() == reflect.Pointer && v.IsNil() {
		return nil, nil
	}
	if c := w.opt.Policy.Converters.Find(rt); c != nil {
		out, err := c.Write(v)
		if err != nil {
			e := issue.New(issue.KindCoercion, p.Pointer(), "converter failed")
			e.TypeName = rt.String()
			e.Cause = err
			return nil, e
		}
		return out, nil
	}
	switch rt.Kind() {
	case reflect.Pointer:
		return w.leaf(v.Elem(), p)
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return wire.Number(strconv.FormatInt(v.Int(), 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return wire.Number(strconv.FormatUint(v.Uint(), 10)), nil
	case reflect.Float32:
		return w.float(v.Float(), 32), nil
	case reflect.Float64:
		return w.float(v.Float(), 64), nil
	case reflect.Complex64:
		return strconv.FormatComplex(v.Complex(), 'g', -1, 64), nil
	case reflect.Complex128:
		return strconv.FormatComplex(v.Complex(), 'g', -1, 128), nil
	}
	return nil, issue.New(issue.KindUnsupported, p.Pointer(), "cannot encode %s", rt)
}

// float always leaves a '.' or exponent so the literal re-reads as floating.
func (w *writer) float(f float64, bits int) any {
	switch {
	case math.IsNaN(f):
		if w.opt.AllowNaN {
			return wire.Number("NaN")
		}
		return nil
	case math.IsInf(f, 1):
		if w.opt.AllowNaN {
			return wire.Number("Infinity")
		}
		return nil
	case math.IsInf(f, -1):
		if w.opt.AllowNaN {
			return wire.Number("-Infinity")
		}
		return nil
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) || bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return wire.Number(s)
}
