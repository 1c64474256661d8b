package jsongraph

import (
	"reflect"

	"github.com/charmbracelet/log"
)

// TypeInfo controls when the writer emits type tags.
type TypeInfo int

const (
	TypeInfoMinimal TypeInfo = iota // Only where the declared slot type cannot tell.
	TypeInfoAlways                  // On every value, including primitives.
	TypeInfoNever                   // Never; untyped slots read back as generic values.
)

// Syntax selects the surface syntax.
type Syntax int

const (
	SyntaxAuto    Syntax = iota // Read: strict JSON, falling back to relaxed. Write: strict JSON.
	SyntaxJSON                  // Strict JSON with '@' meta keys.
	SyntaxRelaxed               // Unquoted identifier keys, '$' meta keys, comments.
	SyntaxYAML                  // Indentation-significant YAML.
)

// MetaStyle selects the spelling of meta keys on write. Both are accepted on read.
type MetaStyle int

const (
	MetaLong  MetaStyle = iota // @type @id @ref @items @keys
	MetaShort                  // @t @i @r @e @k
)

// Severity expresses the severity level for findings such as duplicate keys.
type Severity int

const (
	SeverityIgnore Severity = iota
	SeverityWarn
	SeverityError
)

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity
}

// UnknownPolicy controls how object members with no matching struct field are handled.
type UnknownPolicy int

const (
	UnknownStrip  UnknownPolicy = iota // Drop unknown members.
	UnknownStrict                      // Reject unknown members with an error.
)

// UnknownTypePolicy controls what happens to type tags with no registered type.
type UnknownTypePolicy int

const (
	UnknownTypeError   UnknownTypePolicy = iota // Fail with ErrUnknownType.
	UnknownTypeGeneric                          // Read the node as untagged (generic map/slice in untyped slots).
)

// Overflow selects how out-of-range numbers are read into narrower slots.
type Overflow int

const (
	OverflowReject   Overflow = iota // Fail with ErrCoercion.
	OverflowSaturate                 // Clamp to the slot's range.
)

// NullPolicy selects how null is read into non-nullable slots.
type NullPolicy int

const (
	NullZero   NullPolicy = iota // Store the zero value.
	NullReject                   // Fail with ErrCoercion.
)

// WriteOpt bundles writer options. Options are read-only during a call.
type WriteOpt struct {
	TypeInfo  TypeInfo
	Syntax    Syntax
	MetaStyle MetaStyle
	// Indent enables pretty output ("" is compact). YAML always indents.
	Indent string
	// Aliases maps canonical type names to the names written on the wire.
	Aliases map[string]string
	// Include and Exclude list wire field names per wire type name.
	Include map[string][]string
	Exclude map[string][]string
	// NonReferenceable adds types that are always written inline.
	NonReferenceable []reflect.Type
	// Converters are consulted before the built-in codec converters.
	Converters     []Converter
	MaxDepth       int
	MaxObjects     int
	ForceKeysItems bool // Always write maps in the @keys/@items form.
	AllowNaN       bool // Write NaN and infinities as text instead of null.
	SkipNullFields bool
	Int64AsString  bool // Write int, int64, uint and uint64 values as decimal text.
	Registry       *Registry
	Logger         *log.Logger
}

// ReadOpt bundles reader options. Options are read-only during a call.
type ReadOpt struct {
	Syntax Syntax
	// Aliases maps canonical type names to the names found on the wire.
	Aliases     map[string]string
	UnknownType UnknownTypePolicy
	Unknown     UnknownPolicy
	// UnknownTypeFallback is the type read for tags with no registered type.
	// When set it takes precedence over UnknownType.
	UnknownTypeFallback reflect.Type
	// MissingField receives object members with no matching struct field,
	// read generically, instead of applying Unknown. It runs once every
	// reference is resolved.
	MissingField func(record any, field string, value any)
	// BigIntegers reads integers beyond int64 in untyped slots as *big.Int
	// instead of float64.
	BigIntegers bool
	// Converters are consulted before the built-in codec converters.
	Converters []Converter
	MaxDepth   int
	MaxBytes   int64
	Overflow   Overflow
	Null       NullPolicy
	Strictness Strictness
	// FoldCache shares folded instances across calls; nil means one cache per call.
	FoldCache      *FoldCache
	DisableFolding bool
	// ReturnNodes stores the raw wire tree instead of a typed graph (the target must be *any).
	ReturnNodes bool
	Registry    *Registry
	Logger      *log.Logger
}

func lastWriteOpt(opts []WriteOpt) WriteOpt {
	if len(opts) > 0 {
		return opts[len(opts)-1]
	}
	return WriteOpt{}
}

func lastReadOpt(opts []ReadOpt) ReadOpt {
	if len(opts) > 0 {
		return opts[len(opts)-1]
	}
	return ReadOpt{}
}
