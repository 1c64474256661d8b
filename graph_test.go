package jsongraph_test

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/reoring/jsongraph"
	"github.com/reoring/jsongraph/codec"
	"github.com/reoring/jsongraph/wire"
)

type Person struct {
	Name    string
	Friends []*Person
}

type Pair struct {
	Left, Right *Person
}

type Point struct {
	X, Y int
}

type Event struct {
	Title string    `json:"title"`
	At    time.Time `json:"at"`
	Note  string    `json:"note,omitempty"`
}

type Color struct{ R, G, B uint8 }

func personRegistry(t *testing.T) *jsongraph.Registry {
	t.Helper()
	reg := jsongraph.NewRegistry()
	require.NoError(t, reg.Register("Person", reflect.TypeFor[Person]()))
	require.NoError(t, reg.Register("Pair", reflect.TypeFor[Pair]()))
	return reg
}

func TestMarshal_CycleRoundTrip(t *testing.T) {
	reg := personRegistry(t)
	a := &Person{Name: "a"}
	b := &Person{Name: "b", Friends: []*Person{a}}
	a.Friends = []*Person{b}

	data, err := jsongraph.Marshal(a, jsongraph.WriteOpt{Registry: reg})
	require.NoError(t, err)
	require.Equal(t, `{"@id":1,"@type":"*Person","Name":"a","Friends":[{"Name":"b","Friends":[{"@ref":1}]}]}`, string(data))

	got, err := jsongraph.Read[*Person](data, jsongraph.ReadOpt{Registry: reg})
	require.NoError(t, err)
	require.Equal(t, "b", got.Friends[0].Name)
	require.Same(t, got, got.Friends[0].Friends[0])

	// The root tag lets an untyped slot recover the concrete type.
	anyv, err := jsongraph.Read[any](data, jsongraph.ReadOpt{Registry: reg})
	require.NoError(t, err)
	p, ok := anyv.(*Person)
	require.True(t, ok, "got %T", anyv)
	require.Same(t, p, p.Friends[0].Friends[0])
}

func TestMarshal_SharedPointer(t *testing.T) {
	reg := personRegistry(t)
	shared := &Person{Name: "s"}

	data, err := jsongraph.MarshalTyped(Pair{Left: shared, Right: shared}, jsongraph.WriteOpt{Registry: reg})
	require.NoError(t, err)
	require.Equal(t, `{"Left":{"@id":1,"Name":"s","Friends":null},"Right":{"@ref":1}}`, string(data))

	got, err := jsongraph.Read[Pair](data, jsongraph.ReadOpt{Registry: reg})
	require.NoError(t, err)
	require.Same(t, got.Left, got.Right)
	require.Equal(t, "s", got.Left.Name)
}

func TestRead_ForwardReference(t *testing.T) {
	got, err := jsongraph.Read[Pair]([]byte(`{"Left":{"@ref":4},"Right":{"@id":4,"Name":"x"}}`))
	require.NoError(t, err)
	require.Same(t, got.Left, got.Right)
	require.Equal(t, "x", got.Right.Name)
}

func TestMarshal_TypePolicies(t *testing.T) {
	tests := []struct {
		name string
		opt  jsongraph.WriteOpt
		want string
	}{
		{"never", jsongraph.WriteOpt{TypeInfo: jsongraph.TypeInfoNever}, `[1,2,3]`},
		{"minimal", jsongraph.WriteOpt{}, `{"@type":"[]int","@items":[1,2,3]}`},
		{"always", jsongraph.WriteOpt{TypeInfo: jsongraph.TypeInfoAlways},
			`{"@type":"[]int","@items":[{"@type":"int","value":1},{"@type":"int","value":2},{"@type":"int","value":3}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := jsongraph.Marshal([]int{1, 2, 3}, tt.opt)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(data))

			got, err := jsongraph.Read[[]int](data)
			require.NoError(t, err)
			require.Equal(t, []int{1, 2, 3}, got)
		})
	}
}

func TestRead_EqualTextFolded(t *testing.T) {
	got, err := jsongraph.Read[[]string]([]byte(`["abc","abc"]`))
	require.NoError(t, err)
	require.Equal(t, []string{"abc", "abc"}, got)
	require.Equal(t, unsafe.StringData(got[0]), unsafe.StringData(got[1]))

	got, err = jsongraph.Read[[]string]([]byte(`["abc","abc"]`), jsongraph.ReadOpt{DisableFolding: true})
	require.NoError(t, err)
	require.Equal(t, got[0], got[1])
}

func TestRead_SharedFoldCache(t *testing.T) {
	cache, err := jsongraph.NewFoldCache(16)
	require.NoError(t, err)
	opt := jsongraph.ReadOpt{FoldCache: cache}
	first, err := jsongraph.Read[string]([]byte(`"shared"`), opt)
	require.NoError(t, err)
	second, err := jsongraph.Read[map[string]any]([]byte(`{"k":"shared"}`), opt)
	require.NoError(t, err)
	require.Equal(t, unsafe.StringData(first), unsafe.StringData(second["k"].(string)))
}

func TestMarshal_EmptyArraysStayDistinct(t *testing.T) {
	data, err := jsongraph.MarshalTyped([][]int{{}, {}})
	require.NoError(t, err)
	require.Equal(t, `[[],[]]`, string(data))

	got, err := jsongraph.Read[[][]int](data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0])
	require.NotNil(t, got[1])
	require.Empty(t, got[0])
	require.Empty(t, got[1])
}

func TestMarshal_UntypedValues(t *testing.T) {
	in := map[string]any{"n": int64(3), "s": "x", "f": 1.5, "l": []any{true, nil}}
	data, err := jsongraph.Marshal(in)
	require.NoError(t, err)
	require.Equal(t, `{"f":1.5,"l":[true,null],"n":3,"s":"x"}`, string(data))

	got, err := jsongraph.Read[any](data)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestMarshal_DimensionalFidelity(t *testing.T) {
	in := map[string]any{"i": 1, "u8": uint8(2), "f32": float32(0.5), "whole": 2.0}
	data, err := jsongraph.Marshal(in)
	require.NoError(t, err)
	require.Equal(t,
		`{"f32":{"@type":"float32","value":0.5},"i":{"@type":"int","value":1},"u8":{"@type":"uint8","value":2},"whole":2.0}`,
		string(data))

	got, err := jsongraph.Read[map[string]any](data)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestMarshal_StructKeys(t *testing.T) {
	in := map[Point]string{{X: 1, Y: 2}: "a", {X: 0, Y: 5}: "b"}
	data, err := jsongraph.MarshalTyped(in)
	require.NoError(t, err)
	require.Equal(t, `{"@keys":[{"X":0,"Y":5},{"X":1,"Y":2}],"@items":["b","a"]}`, string(data))

	got, err := jsongraph.Read[map[Point]string](data)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestMarshal_MetaKeyCollisionUsesPairedForm(t *testing.T) {
	in := map[string]int{"@id": 1, "plain": 2}
	data, err := jsongraph.MarshalTyped(in)
	require.NoError(t, err)
	require.Equal(t, `{"@keys":["@id","plain"],"@items":[1,2]}`, string(data))

	got, err := jsongraph.Read[map[string]int](data)
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestMarshal_Idempotent(t *testing.T) {
	reg := personRegistry(t)
	a := &Person{Name: "a"}
	a.Friends = []*Person{a, {Name: "b", Friends: []*Person{a}}}
	opt := jsongraph.WriteOpt{Registry: reg}

	first, err := jsongraph.Marshal(a, opt)
	require.NoError(t, err)
	back, err := jsongraph.Read[*Person](first, jsongraph.ReadOpt{Registry: reg})
	require.NoError(t, err)
	second, err := jsongraph.Marshal(back, opt)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestMarshal_Converters(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := jsongraph.MarshalTyped(Event{Title: "launch", At: at})
	require.NoError(t, err)
	require.Equal(t, `{"title":"launch","at":"2024-01-02T03:04:05Z"}`, string(data))

	got, err := jsongraph.Read[Event](data)
	require.NoError(t, err)
	require.True(t, at.Equal(got.At))

	hex := codec.Text(
		func(c Color) (string, error) { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil },
		func(s string) (Color, error) {
			var c Color
			_, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
			return c, err
		},
		nil,
	)
	wopt := jsongraph.WriteOpt{Converters: []jsongraph.Converter{hex}}
	data, err = jsongraph.MarshalTyped([]Color{{R: 255}, {B: 16}}, wopt)
	require.NoError(t, err)
	require.Equal(t, `["#ff0000","#000010"]`, string(data))

	colors, err := jsongraph.Read[[]Color](data, jsongraph.ReadOpt{Converters: wopt.Converters})
	require.NoError(t, err)
	require.Equal(t, []Color{{R: 255}, {B: 16}}, colors)
}

func TestMarshal_Aliases(t *testing.T) {
	reg := personRegistry(t)
	aliases := map[string]string{"Person": "P"}
	data, err := jsongraph.Marshal([]*Person{{Name: "x"}}, jsongraph.WriteOpt{Registry: reg, Aliases: aliases})
	require.NoError(t, err)
	require.Equal(t, `{"@type":"[]*P","@items":[{"Name":"x","Friends":null}]}`, string(data))

	got, err := jsongraph.Read[any](data, jsongraph.ReadOpt{Registry: reg, Aliases: aliases})
	require.NoError(t, err)
	require.IsType(t, []*Person{}, got)

	_, err = jsongraph.Read[any](data, jsongraph.ReadOpt{Registry: reg})
	require.ErrorIs(t, err, jsongraph.ErrUnknownType)
}

func TestMarshal_FieldFilters(t *testing.T) {
	reg := personRegistry(t)
	p := &Person{Name: "x", Friends: []*Person{{Name: "y"}}}
	data, err := jsongraph.MarshalTyped(p, jsongraph.WriteOpt{
		Registry: reg,
		Exclude:  map[string][]string{"Person": {"Friends"}},
	})
	require.NoError(t, err)
	require.Equal(t, `{"Name":"x"}`, string(data))
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		into func([]byte) error
		want error
	}{
		{"unknown type", `{"@type":"nope.T"}`, readInto[any], jsongraph.ErrUnknownType},
		{"dangling ref", `[{"@ref":7}]`, readInto[[]*Person], jsongraph.ErrUnresolvedReference},
		{"ref with content", `[{"@ref":1,"Name":"x"}]`, readInto[[]*Person], jsongraph.ErrMalformedWire},
		{"duplicate id", `[{"@id":1},{"@id":1}]`, readInto[[]*Person], jsongraph.ErrMalformedWire},
		{"keys without items", `{"@keys":[1]}`, readInto[map[int]int], jsongraph.ErrMalformedWire},
		{"overflow", `[300]`, readInto[[]uint8], jsongraph.ErrCoercion},
		{"bad text", `{"Name":["x"]}`, readInto[Person], jsongraph.ErrMalformedWire},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.into([]byte(tt.data))
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
			_, ok := jsongraph.AsError(err)
			require.True(t, ok)
		})
	}
}

func readInto[T any](data []byte) error {
	_, err := jsongraph.Read[T](data)
	return err
}

func TestRead_CoercionDetails(t *testing.T) {
	_, err := jsongraph.Read[[]uint8]([]byte(`[1,300]`))
	e, ok := jsongraph.AsError(err)
	require.True(t, ok)
	require.Equal(t, jsongraph.KindCoercion, e.Kind)
	require.Equal(t, "/1", e.Path)
	require.Equal(t, "300", e.Value)
	require.Equal(t, "uint8", e.TypeName)

	sat, err := jsongraph.Read[[]uint8]([]byte(`[1,300]`), jsongraph.ReadOpt{Overflow: jsongraph.OverflowSaturate})
	require.NoError(t, err)
	require.Equal(t, []uint8{1, 255}, sat)
}

func TestRead_UnknownTypeGeneric(t *testing.T) {
	got, err := jsongraph.Read[any]([]byte(`{"@type":"nope.T","a":"b"}`), jsongraph.ReadOpt{UnknownType: jsongraph.UnknownTypeGeneric})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": "b"}, got)
}

func TestRead_UnknownFieldsStrict(t *testing.T) {
	_, err := jsongraph.Read[Point]([]byte(`{"X":1,"Z":2}`))
	require.NoError(t, err)
	_, err = jsongraph.Read[Point]([]byte(`{"X":1,"Z":2}`), jsongraph.ReadOpt{Unknown: jsongraph.UnknownStrict})
	require.Error(t, err)
}

func TestRead_Syntaxes(t *testing.T) {
	want := map[string]int{"a": 1, "b": 2}
	inputs := map[string]string{
		"json":    `{"a":1,"b":2}`,
		"relaxed": "{a: 1, // comment\n b: 2,}",
		"yaml":    "a: 1\nb: 2\n",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := jsongraph.Read[map[string]int]([]byte(in))
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestFormat_Respelling(t *testing.T) {
	in := []byte(`{"@id":1,"next":{"@ref":1}}`)
	relaxed, err := jsongraph.Format(in, jsongraph.ReadOpt{}, jsongraph.WriteOpt{Syntax: jsongraph.SyntaxRelaxed, MetaStyle: jsongraph.MetaShort})
	require.NoError(t, err)
	require.Equal(t, `{$i:1,next:{$r:1}}`, string(relaxed))

	back, err := jsongraph.Format(relaxed, jsongraph.ReadOpt{Syntax: jsongraph.SyntaxRelaxed}, jsongraph.WriteOpt{})
	require.NoError(t, err)
	require.Equal(t, string(in), string(back))
}

func TestCheck(t *testing.T) {
	require.NoError(t, jsongraph.Check([]byte(`[{"@id":1},{"@ref":1}]`)))
	require.ErrorIs(t, jsongraph.Check([]byte(`[{"@ref":3}]`)), jsongraph.ErrUnresolvedReference)
	require.ErrorIs(t, jsongraph.Check([]byte(`[{"@id":1},{"@id":1}]`)), jsongraph.ErrMalformedWire)
}

func TestClone(t *testing.T) {
	a := &Person{Name: "a"}
	a.Friends = []*Person{a}
	c, err := jsongraph.Clone(a)
	require.NoError(t, err)
	require.NotSame(t, a, c)
	require.Same(t, c, c.Friends[0])
	require.Equal(t, "a", c.Name)
}

func TestReadNodes_ReturnNodes(t *testing.T) {
	var v any
	err := jsongraph.Unmarshal([]byte(`{"@id":2,"x":1}`), &v, jsongraph.ReadOpt{ReturnNodes: true})
	require.NoError(t, err)
	n, ok := v.(*wire.Node)
	require.True(t, ok)
	require.True(t, n.HasID)
	require.EqualValues(t, 2, n.ID)

	root, err := jsongraph.ReadNodes([]byte(`{"@id":2,"x":1}`))
	require.NoError(t, err)
	var m map[string]int
	require.NoError(t, jsongraph.Resolve(root, &m))
	require.Equal(t, map[string]int{"x": 1}, m)
}

func TestMarshal_NaN(t *testing.T) {
	in := []float64{1, nanValue()}
	data, err := jsongraph.MarshalTyped(in)
	require.NoError(t, err)
	require.Equal(t, `[1.0,null]`, string(data))

	data, err = jsongraph.MarshalTyped(in, jsongraph.WriteOpt{AllowNaN: true})
	require.NoError(t, err)
	require.Equal(t, `[1.0,"NaN"]`, string(data))
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

type Label struct {
	Text string
}

func TestMarshal_NonReferenceableRecords(t *testing.T) {
	shared := &Label{Text: "x"}
	opt := jsongraph.WriteOpt{NonReferenceable: []reflect.Type{reflect.TypeFor[*Label](), reflect.TypeFor[Point]()}}

	data, err := jsongraph.MarshalTyped([]*Label{shared, shared}, opt)
	require.NoError(t, err)
	require.Equal(t, `[{"Text":"x"},{"Text":"x"}]`, string(data))

	got, err := jsongraph.Read[[]*Label](data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotSame(t, got[0], got[1])
	require.Equal(t, *got[0], *got[1])

	data, err = jsongraph.MarshalTyped(Point{X: 1, Y: 2}, opt)
	require.NoError(t, err)
	require.Equal(t, `{"X":1,"Y":2}`, string(data))
}

func TestRead_UnknownTypeFallback(t *testing.T) {
	data := []byte(`[{"@type":"example.com/gone.Person","Name":"a","Extra":1}]`)
	_, err := jsongraph.Read[[]any](data)
	require.ErrorIs(t, err, jsongraph.ErrUnknownType)

	got, err := jsongraph.Read[[]any](data, jsongraph.ReadOpt{UnknownTypeFallback: reflect.TypeFor[Person]()})
	require.NoError(t, err)
	require.Equal(t, []any{Person{Name: "a"}}, got)
}

func TestRead_MissingField(t *testing.T) {
	data := []byte(`{"Name":"a","Nick":"b","Buddy":{"@ref":1},"Friends":[{"@id":1,"Name":"c"}]}`)
	extra := map[string]any{}
	var owner any
	var p Person
	err := jsongraph.Unmarshal(data, &p, jsongraph.ReadOpt{
		Unknown: jsongraph.UnknownStrict,
		MissingField: func(record any, field string, value any) {
			owner = record
			extra[field] = value
		},
	})
	require.NoError(t, err)
	require.Same(t, &p, owner.(*Person))
	require.Equal(t, "b", extra["Nick"])
	buddy, ok := extra["Buddy"].(*Person)
	require.True(t, ok, "Buddy: %#v", extra["Buddy"])
	require.Same(t, p.Friends[0], buddy)
}

func TestRead_BigIntegers(t *testing.T) {
	data := []byte(`[1,123456789012345678901234567890]`)
	got, err := jsongraph.Read[[]any](data)
	require.NoError(t, err)
	require.IsType(t, float64(0), got[1])

	got, err = jsongraph.Read[[]any](data, jsongraph.ReadOpt{BigIntegers: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), got[0])
	n, ok := got[1].(*big.Int)
	require.True(t, ok, "got %T", got[1])
	require.Equal(t, "123456789012345678901234567890", n.String())
}

type Counter struct {
	ID int64
	N  int32
}

func TestMarshal_Int64AsString(t *testing.T) {
	opt := jsongraph.WriteOpt{Int64AsString: true}
	data, err := jsongraph.MarshalTyped(Counter{ID: 1 << 60, N: 3}, opt)
	require.NoError(t, err)
	require.Equal(t, `{"ID":"1152921504606846976","N":3}`, string(data))

	back, err := jsongraph.Read[Counter](data)
	require.NoError(t, err)
	require.Equal(t, Counter{ID: 1 << 60, N: 3}, back)

	data, err = jsongraph.MarshalTyped([]any{int64(5)}, opt)
	require.NoError(t, err)
	require.Equal(t, `[{"@type":"int64","value":"5"}]`, string(data))

	untyped, err := jsongraph.Read[[]any](data)
	require.NoError(t, err)
	require.Equal(t, []any{int64(5)}, untyped)
}
