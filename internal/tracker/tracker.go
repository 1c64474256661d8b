// Package tracker owns identity bookkeeping for one read or one write.
//
// The write side counts how often each referenceable value is reached in a
// pre-pass, then hands out ids in emission order to values reached more than
// once. The read side maps ids to shells and collects assignments that must
// wait until the whole document has been populated.
package tracker

import (
	"reflect"
	"sort"

	"github.com/reoring/jsongraph/internal/issue"
	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// Key identifies one referenceable Go value. Slices sharing a backing array
// but differing in length are distinct values.
type Key struct {
	Type reflect.Type
	Ptr  uintptr
	Len  int
}

// KeyOf returns the identity key of v, or false when v is not referenceable:
// structs, arrays, scalars, nil values, zero-length slices and pointers to
// logical primitives are always written inline. Pointers to pointers are
// transparent: identity lives on the innermost pointer.
func KeyOf(v reflect.Value, policy typeinfo.Policy) (Key, bool) {
	if !v.IsValid() || policy.IsNonReferenceable(v.Type()) {
		return Key{}, false
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() || v.Type().Elem().Kind() == reflect.Pointer {
			return Key{}, false
		}
		return Key{Type: v.Type(), Ptr: v.Pointer()}, true
	case reflect.Map:
		if v.IsNil() {
			return Key{}, false
		}
		return Key{Type: v.Type(), Ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 {
			return Key{}, false
		}
		return Key{Type: v.Type(), Ptr: v.Pointer(), Len: v.Len()}, true
	}
	return Key{}, false
}

// Writes is the write-side table.
type Writes struct {
	counts map[Key]int
	ids    map[Key]int64
	next   int64
}

func NewWrites() *Writes {
	return &Writes{counts: map[Key]int{}, ids: map[Key]int64{}}
}

// Trace records one visit of k and reports whether it was the first.
func (w *Writes) Trace(k Key) bool {
	w.counts[k]++
	return w.counts[k] == 1
}

// Shared reports whether k was traced more than once.
func (w *Writes) Shared(k Key) bool { return w.counts[k] > 1 }

// Traced is the number of distinct keys seen by the pre-pass.
func (w *Writes) Traced() int { return len(w.counts) }

// AssignOrLookup returns the id of k, allocating the next one on first sight.
func (w *Writes) AssignOrLookup(k Key) (id int64, isNew bool) {
	if id, ok := w.ids[k]; ok {
		return id, false
	}
	w.next++
	w.ids[k] = w.next
	return w.next, true
}

// Reads is the read-side table.
type Reads struct {
	nodes  map[int64]*wire.Node
	shells map[int64]reflect.Value
	fixups []fixup
}

type fixup struct {
	id     int64
	path   string
	apply  func(reflect.Value) error
	action func() error
}

func NewReads() *Reads {
	return &Reads{nodes: map[int64]*wire.Node{}, shells: map[int64]reflect.Value{}}
}

// Index records the node carrying id.
func (r *Reads) Index(id int64, n *wire.Node) { r.nodes[id] = n }

// Node returns the node carrying id.
func (r *Reads) Node(id int64) (*wire.Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// RegisterShell binds id to its (possibly still empty) instance.
func (r *Reads) RegisterShell(id int64, v reflect.Value) { r.shells[id] = v }

// Resolve returns the shell registered for id.
func (r *Reads) Resolve(id int64) (reflect.Value, bool) {
	v, ok := r.shells[id]
	return v, ok
}

// Defer queues apply to run with the shell of id once population finishes.
func (r *Reads) Defer(id int64, path string, apply func(reflect.Value) error) {
	r.fixups = append(r.fixups, fixup{id: id, path: path, apply: apply})
}

// After queues fn behind every fixup deferred so far.
func (r *Reads) After(path string, fn func() error) {
	r.fixups = append(r.fixups, fixup{path: path, action: fn})
}

// IDs returns the indexed ids in ascending order.
func (r *Reads) IDs() []int64 {
	ids := make([]int64, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Pending is the number of queued fixups.
func (r *Reads) Pending() int { return len(r.fixups) }

// Finish runs the queued fixups and actions in the order they were queued. A ref whose
// id never received a shell is an unresolved reference.
func (r *Reads) Finish() error {
	for _, f := range r.fixups {
		if f.action != nil {
			if err := f.action(); err != nil {
				return issue.WithPath(err, f.path)
			}
			continue
		}
		v, ok := r.shells[f.id]
		if !ok {
			return issue.Unresolved(f.path, f.id)
		}
		if err := f.apply(v); err != nil {
			return issue.WithPath(err, f.path)
		}
	}
	r.fixups = nil
	return nil
}
