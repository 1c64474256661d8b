// Package codec provides converters for well-known value types. Every type a
// converter accepts is a logical primitive: written inline as text, never
// given an id, folded on read when immutable.
package codec

import (
	"fmt"
	"reflect"

	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// Text returns a Converter for T that travels as a string. fromNumber, when
// non-nil, also accepts numeric literals.
func Text[T any](format func(T) (string, error), parse func(string) (T, error), fromNumber func(wire.Number) (T, error)) typeinfo.Converter {
	return &textConverter[T]{
		typ:        reflect.TypeOf((*T)(nil)).Elem(),
		format:     format,
		parse:      parse,
		fromNumber: fromNumber,
	}
}

type textConverter[T any] struct {
	typ        reflect.Type
	format     func(T) (string, error)
	parse      func(string) (T, error)
	fromNumber func(wire.Number) (T, error)
}

func (c *textConverter[T]) Accepts(t reflect.Type) bool { return t == c.typ }

func (c *textConverter[T]) Read(raw any, t reflect.Type) (reflect.Value, error) {
	var zero T
	switch v := raw.(type) {
	case nil:
		return reflect.Zero(t), nil
	case string:
		out, err := c.parse(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return valueOf(out, t), nil
	case wire.Number:
		if c.fromNumber != nil {
			out, err := c.fromNumber(v)
			if err != nil {
				return reflect.Value{}, err
			}
			return valueOf(out, t), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%T cannot be read as %T", raw, zero)
}

func (c *textConverter[T]) Write(v reflect.Value) (any, error) {
	s, err := c.format(v.Interface().(T))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// valueOf keeps interface-typed results (reflect.Type) from collapsing to an
// invalid Value when nil.
func valueOf[T any](v T, t reflect.Type) reflect.Value {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Zero(t)
	}
	return rv
}

// Defaults is the converter set used when options do not replace it.
func Defaults() typeinfo.Converters {
	return typeinfo.Converters{
		TimeRFC3339(),
		Duration(),
		BigInt(),
		BigFloat(),
		BigRat(),
		UUID(),
		Regexp(),
		URL(),
	}
}
