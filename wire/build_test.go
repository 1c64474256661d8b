package wire_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/reoring/jsongraph/internal/issue"
	jsonsrc "github.com/reoring/jsongraph/source/json"
	"github.com/reoring/jsongraph/wire"
)

var ignoreTarget = cmpopts.IgnoreFields(wire.Node{}, "Target")

func build(t *testing.T, doc string) (any, error) {
	t.Helper()
	return wire.Build(jsonsrc.NewBytes([]byte(doc)))
}

func TestBuild_LiftsMetaKeys(t *testing.T) {
	got, err := build(t, `{"@i":1,"$type":"T","x":1,"self":{"@r":"1"},"l":[true,null,"s"]}`)
	if err != nil {
		t.Fatal(err)
	}
	want := &wire.Node{
		Type: "T", ID: 1, HasID: true,
		Fields: []wire.Field{
			{Name: "x", Value: wire.Number("1")},
			{Name: "self", Value: wire.NewRef(1)},
			{Name: "l", Value: wire.NewArray([]any{true, nil, "s"})},
		},
	}
	if diff := cmp.Diff(want, got, ignoreTarget); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_KeysAndItems(t *testing.T) {
	got, err := build(t, `{"@keys":[{"X":1}],"@items":["a"]}`)
	if err != nil {
		t.Fatal(err)
	}
	n := got.(*wire.Node)
	if len(n.Keys) != 1 || len(n.Items) != 1 || n.Array {
		t.Fatalf("unexpected node %+v", n)
	}
	empty, err := build(t, `{"@type":"[]int","@items":[]}`)
	if err != nil {
		t.Fatal(err)
	}
	if e := empty.(*wire.Node); e.Items == nil || !e.HasItems() {
		t.Fatal("explicit empty items must stay non-nil")
	}
}

func TestBuild_Scalars(t *testing.T) {
	for doc, want := range map[string]any{
		`"s"`:   "s",
		`2.50`:  wire.Number("2.50"),
		`false`: false,
		`null`:  nil,
	} {
		got, err := build(t, doc)
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		if got != want {
			t.Fatalf("%s: got %#v, want %#v", doc, got, want)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind issue.Kind
		path string
	}{
		{"ref with content", `{"a":{"@ref":1,"x":1}}`, issue.KindMalformedWire, "/a"},
		{"keys without items", `{"@keys":[1]}`, issue.KindMalformedWire, "/"},
		{"length mismatch", `{"@keys":[1,2],"@items":[1]}`, issue.KindMalformedWire, "/"},
		{"id not integer", `{"@id":"x"}`, issue.KindMalformedWire, "/@id"},
		{"id fraction", `{"@id":1.5}`, issue.KindMalformedWire, "/@id"},
		{"tag not string", `{"@type":1}`, issue.KindMalformedWire, "/@type"},
		{"items not array", `{"@items":3}`, issue.KindMalformedWire, "/@items"},
		{"duplicate id", `[{"@id":1},{"@id":1}]`, issue.KindMalformedWire, "/1"},
		{"empty", ``, issue.KindParse, "/"},
		{"truncated", `{"a":[1,`, issue.KindParse, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, tt.doc)
			e, ok := issue.As(err)
			if !ok {
				t.Fatalf("expected *issue.Error, got %v", err)
			}
			if e.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s (%v)", e.Kind.Code(), tt.kind.Code(), err)
			}
			if tt.path != "" && e.Path != tt.path {
				t.Fatalf("path = %q, want %q", e.Path, tt.path)
			}
		})
	}
}

func TestValidate_ItemsPaths(t *testing.T) {
	root := &wire.Node{Type: "[]T", Items: []any{
		&wire.Node{HasID: true, ID: 3},
		&wire.Node{HasID: true, ID: 3},
	}}
	e, ok := issue.As(wire.Validate(root))
	if !ok || e.Path != "/@items/1" {
		t.Fatalf("unexpected %v", e)
	}
}

func TestDangling(t *testing.T) {
	got, err := build(t, `[{"@ref":9},{"@id":1,"n":{"@ref":1}},{"@ref":2},{"@ref":9}]`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{2, 9}, wire.Dangling(got)); diff != "" {
		t.Fatalf("Dangling mismatch (-want +got):\n%s", diff)
	}
	if d := wire.Dangling("scalar"); len(d) != 0 {
		t.Fatalf("scalar root: %v", d)
	}
}

func TestWalk_Order(t *testing.T) {
	got, err := build(t, `{"@keys":[{"k":1}],"@items":[{"i":1}],"f":{"x":1}}`)
	if err != nil {
		t.Fatal(err)
	}
	var seen []string
	_ = wire.Walk(got, func(n *wire.Node) error {
		if len(n.Fields) > 0 {
			seen = append(seen, n.Fields[0].Name)
		} else {
			seen = append(seen, "-")
		}
		return nil
	})
	if diff := cmp.Diff([]string{"f", "k", "i", "x"}, seen); diff != "" {
		t.Fatalf("walk order (-want +got):\n%s", diff)
	}
}

func TestParseMeta(t *testing.T) {
	tests := map[string]wire.Meta{
		"@type": wire.MetaType, "$t": wire.MetaType,
		"@id": wire.MetaID, "$i": wire.MetaID,
		"@ref": wire.MetaRef, "$r": wire.MetaRef,
		"@items": wire.MetaItems, "@e": wire.MetaItems,
		"$keys": wire.MetaKeys, "@k": wire.MetaKeys,
		"type": wire.MetaNone, "@": wire.MetaNone, "@other": wire.MetaNone, "#id": wire.MetaNone,
	}
	for key, want := range tests {
		if got := wire.ParseMeta(key); got != want {
			t.Errorf("ParseMeta(%q) = %d, want %d", key, got, want)
		}
	}
	if wire.MetaItems.Key(wire.SpellShort, '$') != "$e" || wire.MetaKeys.Key(wire.SpellLong, '@') != "@keys" {
		t.Fatal("Key spelling mismatch")
	}
}

func TestNumber(t *testing.T) {
	for n, want := range map[wire.Number]bool{"1": true, "-20": true, "1.0": false, "1e3": false, "NaN": false, "-Infinity": false, "": false} {
		if got := n.IsInteger(); got != want {
			t.Errorf("%q.IsInteger() = %v", n, got)
		}
	}
}
