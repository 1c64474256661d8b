package jsongraph

import (
	"bytes"
	"io"
	"reflect"

	"github.com/reoring/jsongraph/internal/issue"
	"github.com/reoring/jsongraph/internal/serialize"
	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// Marshal writes v as a graph document. v is declared as any, so a named
// root value carries its type tag and reads back into an untyped slot.
func Marshal(v any, opts ...WriteOpt) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, v, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalTyped writes v declared as T. Under TypeInfoMinimal the root tag
// is omitted when T fixes the concrete type.
func MarshalTyped[T any](v T, opts ...WriteOpt) ([]byte, error) {
	var buf bytes.Buffer
	opt := lastWriteOpt(opts)
	root, err := toNodes(reflect.ValueOf(&v).Elem(), reflect.TypeFor[T](), opt)
	if err != nil {
		return nil, err
	}
	if err := encode(&buf, root, opt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write writes v as a graph document to w.
func Write(w io.Writer, v any, opts ...WriteOpt) error {
	opt := lastWriteOpt(opts)
	root, err := toNodes(reflect.ValueOf(v), nil, opt)
	if err != nil {
		return err
	}
	return encode(w, root, opt)
}

// ToNodes turns v into its wire tree without rendering text.
func ToNodes(v any, opts ...WriteOpt) (any, error) {
	return toNodes(reflect.ValueOf(v), nil, lastWriteOpt(opts))
}

// Clone deep-copies v through the wire model, preserving sharing and
// cycles. Converters, registry and aliases carry over to the read side.
func Clone[T any](v T, opts ...WriteOpt) (T, error) {
	var out T
	opt := lastWriteOpt(opts)
	root, err := toNodes(reflect.ValueOf(&v).Elem(), reflect.TypeFor[T](), opt)
	if err != nil {
		return out, err
	}
	err = resolveInto(root, reflect.ValueOf(&out).Elem(), ReadOpt{
		Aliases:    opt.Aliases,
		Converters: opt.Converters,
		MaxDepth:   opt.MaxDepth,
		Registry:   opt.Registry,
		Logger:     opt.Logger,
	})
	return out, err
}

// Format re-renders a document in another syntax or meta spelling without
// resolving it. Ids, refs and tags are carried over untouched.
func Format(data []byte, in ReadOpt, out WriteOpt) ([]byte, error) {
	root, err := parseBytes(data, in)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encode(&buf, root, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Check parses data and reports structural problems: the first malformed
// construct, or the first reference no node defines.
func Check(data []byte, opts ...ReadOpt) error {
	root, err := parseBytes(data, lastReadOpt(opts))
	if err != nil {
		return err
	}
	if d := wire.Dangling(root); len(d) > 0 {
		return issue.Unresolved("/", d[0])
	}
	return nil
}

func toNodes(v reflect.Value, declared reflect.Type, opt WriteOpt) (any, error) {
	reg := registryOf(opt.Registry)
	extra := make(map[reflect.Type]bool, len(opt.NonReferenceable))
	for _, t := range opt.NonReferenceable {
		extra[t] = true
	}
	cs := converters(opt.Converters, reg)
	root, err := serialize.Serialize(v, declared, serialize.Options{
		Types:          serialize.TypePolicy(opt.TypeInfo),
		Namer:          typeinfo.NewNamer(reg, opt.Aliases),
		Policy:         typeinfo.Policy{Converters: cs, Extra: extra},
		Filter:         typeinfo.FieldFilter{Include: opt.Include, Exclude: opt.Exclude},
		MaxDepth:       opt.MaxDepth,
		MaxObjects:     opt.MaxObjects,
		ForceKeysItems: opt.ForceKeysItems,
		AllowNaN:       opt.AllowNaN,
		SkipNullFields: opt.SkipNullFields,
		Int64AsString:  opt.Int64AsString,
		Logger:         opt.Logger,
	})
	if err != nil {
		return nil, toError(err)
	}
	return root, nil
}

func encode(w io.Writer, root any, opt WriteOpt) error {
	eo := wire.EmitOptions{Syntax: wire.SyntaxJSON, Spelling: wire.SpellLong, Indent: opt.Indent}
	switch opt.Syntax {
	case SyntaxRelaxed:
		eo.Syntax = wire.SyntaxRelaxed
	case SyntaxYAML:
		eo.Syntax = wire.SyntaxYAML
	}
	if opt.MetaStyle == MetaShort {
		eo.Spelling = wire.SpellShort
	}
	if err := wire.Encode(w, root, eo); err != nil {
		return toError(err)
	}
	return nil
}
