// Package wire is the generic intermediate representation shared by the
// graph writer and the graph resolver. A document is a tree of values where
// every value is either a scalar (string, Number, bool, nil) or a *Node.
//
// Meta keys carry graph structure on top of plain JSON objects:
//
//	@type / @t   concrete runtime type to construct
//	@id   / @i   identity of a shared node
//	@ref  / @r   pointer to a node carrying the same id (forward or backward)
//	@items / @e  array, collection or map-value body
//	@keys / @k   map keys, paired positionally with @items
//
// The relaxed syntax spells the same keys with a '$' prefix. Every spelling
// is accepted on read.
package wire

import (
	"reflect"
	"strconv"
	"strings"
)

// Field is one named member of a record-shaped node.
type Field struct {
	Name  string
	Value any
}

// Node is one JSON object or array of a document.
type Node struct {
	Type   string
	ID     int64
	HasID  bool
	Ref    int64
	HasRef bool

	// Fields holds the non-meta members of an object, in document order.
	Fields []Field
	// Items is nil when no items key (and no array literal) is present; an
	// explicit empty items sequence is a non-nil empty slice.
	Items []any
	// Keys pairs positionally with Items for maps with composite keys.
	Keys []any
	// Array marks a bare [...] literal rather than an object.
	Array bool

	// Target is the live value built for this node; Finished guards reprocessing.
	Target   reflect.Value
	Finished bool
}

// NewRef returns a reference node.
func NewRef(id int64) *Node { return &Node{Ref: id, HasRef: true} }

// NewArray returns a bare array node over items (never nil).
func NewArray(items []any) *Node {
	if items == nil {
		items = []any{}
	}
	return &Node{Items: items, Array: true}
}

// IsRef reports whether the node only points at another node.
func (n *Node) IsRef() bool { return n.HasRef }

// HasItems reports whether an items body (or array literal) is present.
func (n *Node) HasItems() bool { return n.Items != nil }

// TypeOnly reports a node whose only content is its type tag (and maybe id).
// For array targets this is the empty marker that reads back as nil.
func (n *Node) TypeOnly() bool {
	return n.Type != "" && !n.Array && n.Items == nil && n.Keys == nil && len(n.Fields) == 0
}

// Field returns the named field value.
func (n *Node) Field(name string) (any, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// AddField appends a field.
func (n *Node) AddField(name string, v any) { n.Fields = append(n.Fields, Field{Name: name, Value: v}) }

// Walk visits v and every node below it depth-first in document order. Walk
// stops at the first non-nil error returned by fn.
func Walk(v any, fn func(n *Node) error) error {
	n, ok := v.(*Node)
	if !ok || n == nil {
		return nil
	}
	if err := fn(n); err != nil {
		return err
	}
	for _, k := range n.Keys {
		if err := Walk(k, fn); err != nil {
			return err
		}
	}
	for _, it := range n.Items {
		if err := Walk(it, fn); err != nil {
			return err
		}
	}
	for _, f := range n.Fields {
		if err := Walk(f.Value, fn); err != nil {
			return err
		}
	}
	return nil
}

// Number is a numeric literal kept as text so integer and floating literals
// stay distinguishable until a declared type decides how to read them.
type Number string

// IsInteger reports whether the literal has no fraction or exponent.
func (n Number) IsInteger() bool {
	s := string(n)
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, ".eEnNiI")
}

func (n Number) Int64() (int64, error)     { return strconv.ParseInt(string(n), 10, 64) }
func (n Number) Uint64() (uint64, error)   { return strconv.ParseUint(string(n), 10, 64) }
func (n Number) Float64() (float64, error) { return strconv.ParseFloat(string(n), 64) }
func (n Number) String() string            { return string(n) }
