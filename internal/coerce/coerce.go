// Package coerce converts loosely typed wire scalars into declared Go types.
package coerce

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/reoring/jsongraph/internal/intern"
	"github.com/reoring/jsongraph/internal/issue"
	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// RawKind is the textual kind of a wire scalar.
type RawKind int

const (
	KindText RawKind = iota
	KindInteger
	KindFloating
	KindBool
	KindNull
)

func (k RawKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloating:
		return "floating"
	case KindBool:
		return "boolean"
	case KindNull:
		return "null"
	default:
		return "text"
	}
}

// KindOf classifies a wire scalar.
func KindOf(raw any) RawKind {
	switch t := raw.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case wire.Number:
		if t.IsInteger() {
			return KindInteger
		}
		return KindFloating
	}
	return KindText
}

// Text renders a wire scalar as it appeared in the document.
func Text(raw any) string {
	switch t := raw.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case wire.Number:
		return string(t)
	case string:
		return t
	}
	return ""
}

// Overflow selects how out-of-range numbers are handled.
type Overflow int

const (
	OverflowReject Overflow = iota
	OverflowSaturate
)

// NullPolicy selects how null is read into non-nullable slots.
type NullPolicy int

const (
	NullZero NullPolicy = iota
	NullReject
)

// Options configure one coercion.
type Options struct {
	Overflow   Overflow
	Null       NullPolicy
	Converters typeinfo.Converters
	Fold       *intern.Cache
	// Wide, when set, receives integers too large for int64 in untyped
	// slots. It is read through its converter instead of falling back to
	// float64.
	Wide reflect.Type
}

var errRange = errors.New("value out of range")

func fail(raw any, target reflect.Type, cause error) error {
	return issue.Coercion("", Text(raw), KindOf(raw).String(), target.String(), cause)
}

// Coerce converts raw (string, wire.Number, bool or nil) to target.
// Converters registered for target take priority over the built-in rules.
func Coerce(raw any, target reflect.Type, opt Options) (reflect.Value, error) {
	if c := opt.Converters.Find(target); c != nil {
		return convert(c, raw, target, opt)
	}
	kind := KindOf(raw)
	if kind == KindNull {
		return null(raw, target, opt)
	}
	switch target.Kind() {
	case reflect.Interface:
		v, err := Promote(raw, opt)
		if err != nil {
			return v, err
		}
		if !v.Type().AssignableTo(target) {
			return reflect.Value{}, fail(raw, target, errors.New("not assignable"))
		}
		return v, nil
	case reflect.Pointer:
		elem, err := Coerce(raw, target.Elem(), opt)
		if err != nil {
			return elem, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(elem)
		return p, nil
	case reflect.String:
		s := Text(raw)
		if kind == KindText {
			s = opt.Fold.String(s)
		}
		return reflect.ValueOf(s).Convert(target), nil
	case reflect.Bool:
		b, err := toBool(raw, kind)
		if err != nil {
			return reflect.Value{}, fail(raw, target, err)
		}
		return reflect.ValueOf(b).Convert(target), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out := reflect.New(target).Elem()
		n, err := toInt(raw, kind, target, opt.Overflow)
		if err != nil {
			return reflect.Value{}, fail(raw, target, err)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		out := reflect.New(target).Elem()
		n, err := toUint(raw, kind, target, opt.Overflow)
		if err != nil {
			return reflect.Value{}, fail(raw, target, err)
		}
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		out := reflect.New(target).Elem()
		f, err := toFloat(raw, kind)
		if err != nil {
			return reflect.Value{}, fail(raw, target, err)
		}
		if out.OverflowFloat(f) {
			if opt.Overflow != OverflowSaturate {
				return reflect.Value{}, fail(raw, target, errRange)
			}
			f = math.Copysign(math.MaxFloat32, f)
		}
		out.SetFloat(f)
		return out, nil
	case reflect.Complex64, reflect.Complex128:
		out := reflect.New(target).Elem()
		c, err := toComplex(raw, kind)
		if err != nil {
			return reflect.Value{}, fail(raw, target, err)
		}
		out.SetComplex(c)
		return out, nil
	}
	return reflect.Value{}, fail(raw, target, errors.New("no scalar form for "+target.Kind().String()))
}

func null(raw any, target reflect.Type, opt Options) (reflect.Value, error) {
	switch target.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return reflect.Zero(target), nil
	}
	if opt.Null == NullReject {
		return reflect.Value{}, fail(raw, target, errors.New("null into non-nullable slot"))
	}
	return reflect.Zero(target), nil
}

func convert(c typeinfo.Converter, raw any, target reflect.Type, opt Options) (reflect.Value, error) {
	build := func() (reflect.Value, error) {
		v, err := c.Read(raw, target)
		if err != nil {
			if _, ok := issue.As(err); ok {
				return v, err
			}
			return v, fail(raw, target, err)
		}
		if !v.IsValid() {
			return reflect.Zero(target), nil
		}
		if v.Type() != target && v.Type().ConvertibleTo(target) {
			v = v.Convert(target)
		}
		return v, nil
	}
	if s, ok := raw.(string); ok {
		return opt.Fold.Fold(target, s, build)
	}
	return build()
}

// Promote converts a scalar read into an untyped slot to its natural type:
// integers become int64 (opt.Wide or float64 when out of range), fractions
// float64, text a folded string.
func Promote(raw any, opt Options) (reflect.Value, error) {
	switch t := raw.(type) {
	case nil:
		return reflect.Zero(typeinfo.AnyType), nil
	case bool:
		return reflect.ValueOf(t), nil
	case string:
		return reflect.ValueOf(opt.Fold.String(t)), nil
	case wire.Number:
		if t.IsInteger() {
			if n, err := t.Int64(); err == nil {
				return reflect.ValueOf(n), nil
			}
			if opt.Wide != nil {
				if c := opt.Converters.Find(opt.Wide); c != nil {
					return convert(c, raw, opt.Wide, opt)
				}
			}
		}
		f, err := parseFloat(string(t))
		if err != nil {
			return reflect.Value{}, fail(raw, reflect.TypeOf(float64(0)), err)
		}
		return reflect.ValueOf(f), nil
	}
	return reflect.Value{}, issue.New(issue.KindCoercion, "", "unsupported scalar %T", raw)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return f, nil
	}
	var ne *strconv.NumError
	if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
		// ParseFloat already returns ±Inf or 0 for out-of-range input.
		return f, nil
	}
	return 0, err
}

func toBool(raw any, kind RawKind) (bool, error) {
	switch kind {
	case KindBool:
		return raw.(bool), nil
	case KindInteger, KindFloating:
		f, err := parseFloat(string(raw.(wire.Number)))
		if err != nil {
			return false, err
		}
		return f != 0, nil
	}
	s := strings.TrimSpace(raw.(string))
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// numeric reads raw as either an exact integer text or a float.
func numeric(raw any, kind RawKind) (text string, f float64, isInt bool, err error) {
	switch kind {
	case KindBool:
		if raw.(bool) {
			return "1", 1, true, nil
		}
		return "0", 0, true, nil
	case KindInteger:
		return string(raw.(wire.Number)), 0, true, nil
	case KindFloating:
		f, err = parseFloat(string(raw.(wire.Number)))
		return "", f, false, err
	}
	s := strings.TrimSpace(raw.(string))
	if s == "" {
		return "0", 0, true, nil
	}
	if wire.Number(s).IsInteger() {
		if _, perr := strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64); perr == nil || isRange(perr) {
			return strings.TrimPrefix(s, "+"), 0, true, nil
		}
	}
	f, err = parseFloat(s)
	return "", f, false, err
}

func isRange(err error) bool {
	var ne *strconv.NumError
	return errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange)
}

func toInt(raw any, kind RawKind, target reflect.Type, ov Overflow) (int64, error) {
	bits := target.Bits()
	lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
	clamp := func(neg bool) (int64, error) {
		if ov != OverflowSaturate {
			return 0, errRange
		}
		if neg {
			return lo, nil
		}
		return hi, nil
	}
	text, f, isInt, err := numeric(raw, kind)
	if err != nil {
		return 0, err
	}
	var n int64
	if isInt {
		n, err = strconv.ParseInt(text, 10, 64)
		if err != nil {
			if isRange(err) {
				return clamp(strings.HasPrefix(text, "-"))
			}
			return 0, err
		}
	} else {
		if math.IsNaN(f) {
			return 0, errors.New("NaN has no integer form")
		}
		f = math.Trunc(f)
		if f < float64(lo) || f >= -float64(lo) {
			return clamp(f < 0)
		}
		n = int64(f)
	}
	if n < lo || n > hi {
		return clamp(n < 0)
	}
	return n, nil
}

func toUint(raw any, kind RawKind, target reflect.Type, ov Overflow) (uint64, error) {
	bits := target.Bits()
	hi := uint64(math.MaxUint64)
	if bits < 64 {
		hi = uint64(1)<<bits - 1
	}
	clamp := func(neg bool) (uint64, error) {
		if ov != OverflowSaturate {
			return 0, errRange
		}
		if neg {
			return 0, nil
		}
		return hi, nil
	}
	text, f, isInt, err := numeric(raw, kind)
	if err != nil {
		return 0, err
	}
	var n uint64
	if isInt {
		if strings.HasPrefix(text, "-") {
			if strings.Trim(text, "-0") == "" {
				return 0, nil
			}
			return clamp(true)
		}
		n, err = strconv.ParseUint(text, 10, 64)
		if err != nil {
			if isRange(err) {
				return clamp(false)
			}
			return 0, err
		}
	} else {
		if math.IsNaN(f) {
			return 0, errors.New("NaN has no integer form")
		}
		f = math.Trunc(f)
		if f < 0 {
			return clamp(true)
		}
		if f >= math.Exp2(64) {
			return clamp(false)
		}
		n = uint64(f)
	}
	if n > hi {
		return clamp(false)
	}
	return n, nil
}

func toFloat(raw any, kind RawKind) (float64, error) {
	switch kind {
	case KindBool:
		if raw.(bool) {
			return 1, nil
		}
		return 0, nil
	case KindInteger, KindFloating:
		return parseFloat(string(raw.(wire.Number)))
	}
	s := strings.TrimSpace(raw.(string))
	if s == "" {
		return 0, nil
	}
	return parseFloat(s)
}

func toComplex(raw any, kind RawKind) (complex128, error) {
	if kind == KindText {
		s := strings.TrimSpace(raw.(string))
		if s == "" {
			return 0, nil
		}
		return strconv.ParseComplex(s, 128)
	}
	f, err := toFloat(raw, kind)
	return complex(f, 0), err
}
