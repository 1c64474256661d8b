package wire

import (
	"errors"
	"io"
	"slices"
	"strconv"

	eng "github.com/reoring/jsongraph/internal/engine"
	"github.com/reoring/jsongraph/internal/issue"
)

// Build consumes one complete value from src and returns the document root.
// Meta keys are lifted into Node fields; the result has been validated.
func Build(src eng.TokenSource) (any, error) {
	tok, err := src.NextToken()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, issue.New(issue.KindParse, "/", "empty document")
		}
		return nil, err
	}
	b := &builder{src: src}
	root, err := b.value(tok, issue.Path{})
	if err != nil {
		return nil, err
	}
	if extra, err := src.NextToken(); err == nil {
		e := issue.New(issue.KindParse, "/", "unexpected %s after document end", extra.Kind)
		e.Offset = extra.Offset
		return nil, e
	} else if !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := Validate(root); err != nil {
		return nil, err
	}
	return root, nil
}

type builder struct {
	src eng.TokenSource
}

func (b *builder) next() (eng.Token, error) {
	tok, err := b.src.NextToken()
	if errors.Is(err, io.EOF) {
		return eng.Token{}, issue.New(issue.KindParse, "", "unexpected end of input")
	}
	return tok, err
}

func (b *builder) value(tok eng.Token, p issue.Path) (any, error) {
	switch tok.Kind {
	case eng.KindBeginObject:
		return b.object(p)
	case eng.KindBeginArray:
		items, err := b.array(p)
		if err != nil {
			return nil, err
		}
		return NewArray(items), nil
	case eng.KindString:
		return tok.String, nil
	case eng.KindNumber:
		return Number(tok.Number), nil
	case eng.KindBool:
		return tok.Bool, nil
	case eng.KindNull:
		return nil, nil
	}
	e := issue.New(issue.KindParse, p.Pointer(), "unexpected %s", tok.Kind)
	e.Offset = tok.Offset
	return nil, e
}

func (b *builder) array(p issue.Path) ([]any, error) {
	items := []any{}
	for i := 0; ; i++ {
		tok, err := b.next()
		if err != nil {
			return nil, issue.WithPath(err, p.Pointer())
		}
		if tok.Kind == eng.KindEndArray {
			return items, nil
		}
		v, err := b.value(tok, p.Index(i))
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
}

func (b *builder) object(p issue.Path) (*Node, error) {
	n := &Node{}
	for {
		tok, err := b.next()
		if err != nil {
			return nil, issue.WithPath(err, p.Pointer())
		}
		if tok.Kind == eng.KindEndObject {
			return n, nil
		}
		if tok.Kind != eng.KindKey {
			return nil, issue.New(issue.KindParse, p.Pointer(), "expected key, got %s", tok.Kind)
		}
		key := tok.String
		fp := p.Field(key)
		vt, err := b.next()
		if err != nil {
			return nil, issue.WithPath(err, fp.Pointer())
		}
		switch ParseMeta(key) {
		case MetaType:
			if vt.Kind != eng.KindString {
				return nil, issue.New(issue.KindMalformedWire, fp.Pointer(), "type tag must be a string")
			}
			n.Type = vt.String
		case MetaID:
			id, err := metaInt(vt, fp)
			if err != nil {
				return nil, err
			}
			n.ID, n.HasID = id, true
		case MetaRef:
			id, err := metaInt(vt, fp)
			if err != nil {
				return nil, err
			}
			n.Ref, n.HasRef = id, true
		case MetaItems, MetaKeys:
			var seq []any
			switch vt.Kind {
			case eng.KindNull:
			case eng.KindBeginArray:
				if seq, err = b.array(fp); err != nil {
					return nil, err
				}
			default:
				return nil, issue.New(issue.KindMalformedWire, fp.Pointer(), "%s must be an array", key)
			}
			if ParseMeta(key) == MetaItems {
				n.Items = seq
			} else {
				n.Keys = seq
			}
		default:
			v, err := b.value(vt, fp)
			if err != nil {
				return nil, err
			}
			n.AddField(key, v)
		}
	}
}

func metaInt(tok eng.Token, p issue.Path) (int64, error) {
	var text string
	switch tok.Kind {
	case eng.KindNumber:
		text = tok.Number
	case eng.KindString:
		text = tok.String
	default:
		return 0, issue.New(issue.KindMalformedWire, p.Pointer(), "id must be an integer")
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, issue.New(issue.KindMalformedWire, p.Pointer(), "id %q is not an integer", text)
	}
	return id, nil
}

// Validate checks the structural invariants of a document: a ref node carries
// nothing else, keys pair with items of equal length, and ids are unique.
func Validate(root any) error {
	seen := make(map[int64]struct{})
	return validate(root, issue.Path{}, seen)
}

func validate(v any, p issue.Path, seen map[int64]struct{}) error {
	n, ok := v.(*Node)
	if !ok || n == nil {
		return nil
	}
	if n.HasRef && (n.HasID || n.Type != "" || n.Items != nil || n.Keys != nil || len(n.Fields) > 0) {
		return issue.New(issue.KindMalformedWire, p.Pointer(), "ref node must not carry other content")
	}
	if n.Keys != nil {
		if n.Items == nil {
			return issue.New(issue.KindMalformedWire, p.Pointer(), "keys present without items")
		}
		if len(n.Keys) != len(n.Items) {
			return issue.New(issue.KindMalformedWire, p.Pointer(), "keys and items must be the same length (%d != %d)", len(n.Keys), len(n.Items))
		}
	}
	if n.HasID {
		if _, dup := seen[n.ID]; dup {
			return issue.New(issue.KindMalformedWire, p.Pointer(), "duplicate id %d", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for i, k := range n.Keys {
		if err := validate(k, p.Field("@keys").Index(i), seen); err != nil {
			return err
		}
	}
	for i, it := range n.Items {
		ip := p.Index(i)
		if !n.Array {
			ip = p.Field("@items").Index(i)
		}
		if err := validate(it, ip, seen); err != nil {
			return err
		}
	}
	for _, f := range n.Fields {
		if err := validate(f.Value, p.Field(f.Name), seen); err != nil {
			return err
		}
	}
	return nil
}

// Dangling returns the ref ids in root that no node defines, ascending.
func Dangling(root any) []int64 {
	ids := make(map[int64]struct{})
	refs := make(map[int64]struct{})
	_ = Walk(root, func(n *Node) error {
		if n.HasID {
			ids[n.ID] = struct{}{}
		}
		if n.HasRef {
			refs[n.Ref] = struct{}{}
		}
		return nil
	})
	var out []int64
	for r := range refs {
		if _, ok := ids[r]; !ok {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}
