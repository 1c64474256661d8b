package issue

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_String(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"root", New(KindParse, "", "unexpected end"), "parse_error at /: unexpected end"},
		{"unresolved", Unresolved("/a/0", 4), "unresolved_reference at /a/0: no node with id 4"},
		{"coercion", Coercion("/n", "300", "integer", "uint8", nil), `coercion at /n: cannot convert value (integer "300" -> uint8)`},
		{"cause", &Error{Kind: KindUnsupported, Path: "/x", Message: "no", Cause: errors.New("boom")}, "unsupported at /x: no: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_IsSentinels(t *testing.T) {
	kinds := map[Kind]error{
		KindParse:               ErrParse,
		KindMalformedWire:       ErrMalformedWire,
		KindUnknownType:         ErrUnknownType,
		KindUnresolvedReference: ErrUnresolvedReference,
		KindCoercion:            ErrCoercion,
		KindDepthExceeded:       ErrDepthExceeded,
		KindUnsupported:         ErrUnsupported,
	}
	for k, sentinel := range kinds {
		err := fmt.Errorf("wrapped: %w", New(k, "/", "x"))
		if !errors.Is(err, sentinel) {
			t.Errorf("%s: errors.Is failed", k.Code())
		}
		if k != KindParse && errors.Is(err, ErrParse) {
			t.Errorf("%s: matched the parse sentinel", k.Code())
		}
	}
}

func TestWithPath(t *testing.T) {
	e := New(KindCoercion, "", "bad")
	if got := WithPath(e, "/a"); got.(*Error).Path != "/a" {
		t.Fatalf("path not filled: %v", got)
	}
	if got := WithPath(e, "/b"); got.(*Error).Path != "/a" {
		t.Fatalf("existing path overwritten: %v", got)
	}
	plain := errors.New("plain")
	if got := WithPath(plain, "/c"); got != plain {
		t.Fatalf("non-issue error changed: %v", got)
	}
}

func TestAs(t *testing.T) {
	if _, ok := As(errors.New("x")); ok {
		t.Fatal("As matched a plain error")
	}
	e, ok := As(fmt.Errorf("ctx: %w", DepthExceeded("/a", 3)))
	if !ok || e.Kind != KindDepthExceeded || e.Message != "max depth 3 exceeded" {
		t.Fatalf("As = %+v, %v", e, ok)
	}
}

func TestPath(t *testing.T) {
	var root Path
	if root.Pointer() != "/" || root.Depth() != 0 {
		t.Fatalf("root = %q depth %d", root.Pointer(), root.Depth())
	}
	p := root.Field("a/b").Index(2).Field("c~d")
	if got := p.String(); got != "/a~1b/2/c~0d" {
		t.Fatalf("Pointer = %q", got)
	}
	if p.Depth() != 3 {
		t.Fatalf("Depth = %d", p.Depth())
	}
	// siblings must not share backing storage
	base := root.Field("x")
	l, r := base.Field("l"), base.Field("r")
	if l.Pointer() != "/x/l" || r.Pointer() != "/x/r" {
		t.Fatalf("siblings = %s %s", l, r)
	}
}
