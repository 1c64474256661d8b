package jsongraph

import (
	"io"
	"math/big"
	"reflect"

	"github.com/reoring/jsongraph/codec"
	"github.com/reoring/jsongraph/internal/coerce"
	"github.com/reoring/jsongraph/internal/intern"
	"github.com/reoring/jsongraph/internal/issue"
	"github.com/reoring/jsongraph/internal/resolve"
	"github.com/reoring/jsongraph/internal/typeinfo"
	"github.com/reoring/jsongraph/wire"
)

// Unmarshal reads data into the value pointed to by v. Shared and cyclic
// references in the document are restored as shared pointers.
func Unmarshal(data []byte, v any, opts ...ReadOpt) error {
	opt := lastReadOpt(opts)
	dst, err := target(v)
	if err != nil {
		return err
	}
	root, err := parseBytes(data, opt)
	if err != nil {
		return err
	}
	return resolveInto(root, dst, opt)
}

// Read decodes data as a T.
func Read[T any](data []byte, opts ...ReadOpt) (T, error) {
	var out T
	err := Unmarshal(data, &out, opts...)
	return out, err
}

// ReadFrom decodes one document from src as a T. Enforcement options apply
// to src; the syntax option is ignored.
func ReadFrom[T any](src Source, opts ...ReadOpt) (T, error) {
	var out T
	opt := lastReadOpt(opts)
	root, err := wire.Build(EnforceSource(src, withReadDefaults(opt)))
	if err != nil {
		return out, toError(err)
	}
	err = resolveInto(root, reflect.ValueOf(&out).Elem(), opt)
	return out, err
}

// Decode reads everything from r and decodes it into v.
func Decode(r io.Reader, v any, opts ...ReadOpt) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return toError(err)
	}
	return Unmarshal(data, v, opts...)
}

// ReadNodes parses data into its wire tree without resolving it. The result
// is a *wire.Node or a scalar (string, wire.Number, bool, nil).
func ReadNodes(data []byte, opts ...ReadOpt) (any, error) {
	return parseBytes(data, lastReadOpt(opts))
}

// Resolve populates v from a wire tree obtained from ReadNodes or ToNodes.
func Resolve(root any, v any, opts ...ReadOpt) error {
	dst, err := target(v)
	if err != nil {
		return err
	}
	if err := wire.Validate(root); err != nil {
		return toError(err)
	}
	return resolveInto(root, dst, lastReadOpt(opts))
}

func target(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, issue.New(issue.KindUnsupported, "/", "target must be a non-nil pointer, got %T", v)
	}
	return rv.Elem(), nil
}

func withReadDefaults(opt ReadOpt) ReadOpt {
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = resolve.DefaultMaxDepth
	}
	return opt
}

func parseBytes(data []byte, opt ReadOpt) (any, error) {
	opt = withReadDefaults(opt)
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		e := issue.New(issue.KindParse, "/", "max bytes %d exceeded", opt.MaxBytes)
		e.Offset = opt.MaxBytes
		return nil, e
	}
	if opt.Syntax == SyntaxAuto && DetectSyntax(data) == SyntaxYAML {
		opt.Syntax = SyntaxYAML
	}
	root, err := wire.Build(EnforceSource(sourceFor(data, opt.Syntax), opt))
	if err != nil && opt.Syntax == SyntaxAuto {
		if e, ok := issue.As(err); !ok || e.Kind == issue.KindParse {
			if opt.Logger != nil {
				opt.Logger.Debug("strict parse failed, retrying relaxed", "err", err)
			}
			root, err = wire.Build(EnforceSource(sourceFor(data, SyntaxRelaxed), opt))
		}
	}
	if err != nil {
		return nil, toError(err)
	}
	return root, nil
}

func resolveInto(root any, dst reflect.Value, opt ReadOpt) error {
	if opt.ReturnNodes {
		if dst.Type() != typeinfo.AnyType {
			return issue.New(issue.KindUnsupported, "/", "returning nodes needs an *any target, got *%s", dst.Type())
		}
		if root != nil {
			dst.Set(reflect.ValueOf(root))
		}
		return nil
	}
	ropt, err := resolveOptions(opt)
	if err != nil {
		return err
	}
	r := resolve.New(ropt)
	if err := r.Resolve(root, dst); err != nil {
		if opt.Logger != nil {
			opt.Logger.Debug("resolve failed", "phase", r.Phase(), "err", err)
		}
		return toError(err)
	}
	return nil
}

// FoldCache shares folded strings and converter results across reads.
type FoldCache = intern.Cache

// NewFoldCache returns a cache holding at most size values. A non-positive
// size picks the per-call default.
func NewFoldCache(size int) (*FoldCache, error) {
	c, err := intern.New(size)
	if err != nil {
		return nil, toError(err)
	}
	return c, nil
}

func resolveOptions(opt ReadOpt) (resolve.Options, error) {
	reg := registryOf(opt.Registry)
	var fold *intern.Cache
	if !opt.DisableFolding {
		fold = opt.FoldCache
		if fold == nil {
			c, err := NewFoldCache(intern.DefaultSize)
			if err != nil {
				return resolve.Options{}, err
			}
			fold = c
		}
	}
	var wide reflect.Type
	if opt.BigIntegers {
		wide = reflect.TypeFor[*big.Int]()
	}
	return resolve.Options{
		Namer: typeinfo.NewNamer(reg, opt.Aliases),
		Coerce: coerce.Options{
			Overflow:   coerce.Overflow(opt.Overflow),
			Null:       coerce.NullPolicy(opt.Null),
			Converters: converters(opt.Converters, reg),
			Fold:       fold,
			Wide:       wide,
		},
		UnknownType:   resolve.UnknownTypePolicy(opt.UnknownType),
		UnknownFields: resolve.UnknownFieldPolicy(opt.Unknown),
		Fallback:      opt.UnknownTypeFallback,
		MissingField:  opt.MissingField,
		MaxDepth:      opt.MaxDepth,
		Logger:        opt.Logger,
	}, nil
}

// converters puts user converters ahead of the built-in ones.
func converters(user []Converter, reg *Registry) typeinfo.Converters {
	out := make(typeinfo.Converters, 0, len(user)+10)
	out = append(out, user...)
	out = append(out, codec.Defaults()...)
	return append(out, codec.TypeDescriptor(reg))
}
