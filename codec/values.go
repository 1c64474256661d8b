package codec

import (
	"fmt"
	"math/big"
	"net/url"
	"reflect"
	"regexp"

	"github.com/google/uuid"

	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// BigInt converts *big.Int to decimal text; integer literals are accepted too.
func BigInt() typeinfo.Converter {
	parse := func(s string) (*big.Int, error) {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return n, nil
	}
	return Text(
		func(n *big.Int) (string, error) { return n.String(), nil },
		parse,
		func(n wire.Number) (*big.Int, error) { return parse(string(n)) },
	)
}

// BigFloat converts *big.Float to its shortest decimal text. Precision grows
// with the number of digits read, never below 64 bits.
func BigFloat() typeinfo.Converter {
	parse := func(s string) (*big.Float, error) {
		prec := uint(64)
		if need := uint(len(s))*4 + 8; need > prec {
			prec = need
		}
		f, _, err := big.ParseFloat(s, 10, prec, big.ToNearestEven)
		return f, err
	}
	return Text(
		func(f *big.Float) (string, error) { return f.Text('g', -1), nil },
		parse,
		func(n wire.Number) (*big.Float, error) { return parse(string(n)) },
	)
}

// BigRat converts *big.Rat to "a/b" text (or "a" for integers).
func BigRat() typeinfo.Converter {
	parse := func(s string) (*big.Rat, error) {
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return nil, fmt.Errorf("invalid rational %q", s)
		}
		return r, nil
	}
	return Text(
		func(r *big.Rat) (string, error) { return r.RatString(), nil },
		parse,
		func(n wire.Number) (*big.Rat, error) { return parse(string(n)) },
	)
}

// UUID converts uuid.UUID to its canonical hyphenated text.
func UUID() typeinfo.Converter {
	return Text(
		func(u uuid.UUID) (string, error) { return u.String(), nil },
		uuid.Parse,
		nil,
	)
}

// Regexp converts *regexp.Regexp to its source pattern.
func Regexp() typeinfo.Converter {
	return Text(
		func(re *regexp.Regexp) (string, error) { return re.String(), nil },
		regexp.Compile,
		nil,
	)
}

// URL converts *url.URL to its string form.
func URL() typeinfo.Converter {
	return Text(
		func(u *url.URL) (string, error) { return u.String(), nil },
		url.Parse,
		nil,
	)
}

var typeInterface = reflect.TypeOf((*reflect.Type)(nil)).Elem()

// TypeDescriptor converts reflect.Type values to type names resolved
// against reg (nil means the default registry). A type with no name of its
// own is written in composite spelling, such as "[]int" or "map[string]any".
func TypeDescriptor(reg *typeinfo.Registry) typeinfo.Converter {
	return &typeConverter{namer: typeinfo.NewNamer(reg, nil)}
}

type typeConverter struct {
	namer *typeinfo.Namer
}

func (c *typeConverter) Accepts(t reflect.Type) bool {
	return t == typeInterface || t.Implements(typeInterface) && t.Kind() == reflect.Pointer
}

func (c *typeConverter) Read(raw any, t reflect.Type) (reflect.Value, error) {
	switch v := raw.(type) {
	case nil:
		return reflect.Zero(t), nil
	case string:
		rt, ok := c.namer.Lookup(v)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown type %q", v)
		}
		return reflect.ValueOf(rt), nil
	}
	return reflect.Value{}, fmt.Errorf("%T cannot be read as a type", raw)
}

func (c *typeConverter) Write(v reflect.Value) (any, error) {
	rt, ok := v.Interface().(reflect.Type)
	if !ok || rt == nil {
		return nil, nil
	}
	c.namer.Reg.Learn(rt)
	return c.namer.Name(rt), nil
}
