package serialize

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/reoring/jsongraph/internal/issue"
	"github.com/reoring/jsongraph/wire"
)

type node struct {
	Name string
	Next *node
}

type pair struct {
	A, B []int
}

type withChan struct {
	C chan int
}

func render(t *testing.T, v any, declared reflect.Type, opt Options) string {
	t.Helper()
	root, err := Serialize(reflect.ValueOf(v), declared, opt)
	if err != nil {
		t.Fatal(err)
	}
	out, err := wire.Marshal(root, wire.EmitOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestSerialize(t *testing.T) {
	cyc := &node{Name: "a"}
	cyc.Next = cyc
	shared := []int{1, 2}

	tests := []struct {
		name     string
		v        any
		declared reflect.Type
		opt      Options
		want     string
	}{
		{
			name:     "self reference",
			v:        cyc,
			declared: reflect.TypeFor[*node](),
			want:     `{"@id":1,"Name":"a","Next":{"@ref":1}}`,
		},
		{
			name:     "shared slice",
			v:        pair{A: shared, B: shared},
			declared: reflect.TypeFor[pair](),
			want:     `{"A":{"@id":1,"@items":[1,2]},"B":{"@ref":1}}`,
		},
		{
			name:     "sub-slices are separate values",
			v:        pair{A: shared, B: shared[:1]},
			declared: reflect.TypeFor[pair](),
			want:     `{"A":[1,2],"B":[1]}`,
		},
		{
			name:     "map keys sort numerically",
			v:        map[int]string{10: "a", 2: "b"},
			declared: reflect.TypeFor[map[int]string](),
			want:     `{"2":"b","10":"a"}`,
		},
		{
			name:     "forced keys and items",
			v:        map[string]int{"a": 1},
			declared: reflect.TypeFor[map[string]int](),
			opt:      Options{ForceKeysItems: true},
			want:     `{"@keys":["a"],"@items":[1]}`,
		},
		{
			name: "generic map in keys form keeps its tag",
			v:    map[string]any{"@id": int64(1)},
			want: `{"@type":"map[string]any","@keys":["@id"],"@items":[1]}`,
		},
		{
			name:     "untyped slots tag non-natural primitives",
			v:        []any{int(1), int64(2), 1.5, "s", float32(2)},
			declared: reflect.TypeFor[[]any](),
			want:     `[{"@type":"int","value":1},2,1.5,"s",{"@type":"float32","value":2.0}]`,
		},
		{
			name:     "non-finite float keeps its tag in untyped slots",
			v:        []any{math.NaN()},
			declared: reflect.TypeFor[[]any](),
			opt:      Options{AllowNaN: true},
			want:     `[{"@type":"float64","value":"NaN"}]`,
		},
		{
			name:     "skip null fields",
			v:        &node{Name: "x"},
			declared: reflect.TypeFor[*node](),
			opt:      Options{SkipNullFields: true},
			want:     `{"Name":"x"}`,
		},
		{
			name:     "never tag",
			v:        []any{int8(1)},
			declared: reflect.TypeFor[any](),
			opt:      Options{Types: TypeNever},
			want:     `[1]`,
		},
		{
			name:     "always tag",
			v:        []string{"x"},
			declared: reflect.TypeFor[[]string](),
			opt:      Options{Types: TypeAlways},
			want:     `{"@type":"[]string","@items":[{"@type":"string","value":"x"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.v, tt.declared, tt.opt); got != tt.want {
				t.Fatalf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestSerialize_Limits(t *testing.T) {
	list := &node{Name: "0", Next: &node{Name: "1", Next: &node{Name: "2", Next: &node{Name: "3"}}}}
	_, err := Serialize(reflect.ValueOf(list), nil, Options{MaxDepth: 2})
	if !errors.Is(err, issue.ErrDepthExceeded) {
		t.Fatalf("expected depth error, got %v", err)
	}

	many := []*node{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	_, err = Serialize(reflect.ValueOf(many), nil, Options{MaxObjects: 2})
	if !errors.Is(err, issue.ErrUnsupported) {
		t.Fatalf("expected object limit error, got %v", err)
	}

	_, err = Serialize(reflect.ValueOf(withChan{C: make(chan int)}), nil, Options{})
	e, ok := issue.As(err)
	if !ok || e.Kind != issue.KindUnsupported || e.Path != "/C" {
		t.Fatalf("expected unsupported at /C, got %v", err)
	}
}

func TestFloat(t *testing.T) {
	w := &writer{}
	tests := []struct {
		f    float64
		bits int
		want any
	}{
		{1, 64, wire.Number("1.0")},
		{0, 64, wire.Number("0.0")},
		{1.5, 64, wire.Number("1.5")},
		{123456789, 64, wire.Number("123456789.0")},
		{1e21, 64, wire.Number("1e+21")},
		{1e-7, 64, wire.Number("1e-7")},
		{float64(float32(0.1)), 32, wire.Number("0.1")},
		{math.NaN(), 64, nil},
		{math.Inf(1), 64, nil},
	}
	for _, tt := range tests {
		if got := w.float(tt.f, tt.bits); got != tt.want {
			t.Errorf("float(%v) = %#v, want %#v", tt.f, got, tt.want)
		}
	}
	w.opt.AllowNaN = true
	for f, want := range map[float64]wire.Number{math.Inf(1): "Infinity", math.Inf(-1): "-Infinity"} {
		if got := w.float(f, 64); got != want {
			t.Errorf("float(%v) = %#v", f, got)
		}
	}
}

func TestSortKeys(t *testing.T) {
	type pt struct{ X, Y int }
	keys := []reflect.Value{
		reflect.ValueOf(pt{2, 0}),
		reflect.ValueOf(pt{1, 5}),
		reflect.ValueOf(pt{1, 2}),
	}
	sortKeys(keys)
	var got []pt
	for _, k := range keys {
		got = append(got, k.Interface().(pt))
	}
	want := []pt{{1, 2}, {1, 5}, {2, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	mixed := []reflect.Value{reflect.ValueOf("b"), reflect.ValueOf(3), reflect.ValueOf("a")}
	sortKeys(mixed)
	if mixed[0].Interface() != 3 || mixed[1].Interface() != "a" || mixed[2].Interface() != "b" {
		t.Fatalf("mixed keys sorted as %v", mixed)
	}
}
