package issue

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure. Every failed read or write surfaces exactly one
// *Error carrying one of these kinds.
type Kind int

const (
	KindParse Kind = iota
	KindMalformedWire
	KindUnknownType
	KindUnresolvedReference
	KindCoercion
	KindDepthExceeded
	KindUnsupported
)

// Codes mirror Kind as stable strings for logs and CLI output.
const (
	CodeParseError          = "parse_error"
	CodeMalformedWire       = "malformed_wire"
	CodeUnknownType         = "unknown_type"
	CodeUnresolvedReference = "unresolved_reference"
	CodeCoercion            = "coercion"
	CodeDepthExceeded       = "depth_exceeded"
	CodeUnsupported         = "unsupported"
)

func (k Kind) Code() string {
	switch k {
	case KindMalformedWire:
		return CodeMalformedWire
	case KindUnknownType:
		return CodeUnknownType
	case KindUnresolvedReference:
		return CodeUnresolvedReference
	case KindCoercion:
		return CodeCoercion
	case KindDepthExceeded:
		return CodeDepthExceeded
	case KindUnsupported:
		return CodeUnsupported
	default:
		return CodeParseError
	}
}

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrParse               = errors.New("jsongraph: parse error")
	ErrMalformedWire       = errors.New("jsongraph: malformed wire structure")
	ErrUnknownType         = errors.New("jsongraph: unknown type")
	ErrUnresolvedReference = errors.New("jsongraph: unresolved reference")
	ErrCoercion            = errors.New("jsongraph: coercion failed")
	ErrDepthExceeded       = errors.New("jsongraph: depth exceeded")
	ErrUnsupported         = errors.New("jsongraph: unsupported value")
)

func (k Kind) sentinel() error {
	switch k {
	case KindMalformedWire:
		return ErrMalformedWire
	case KindUnknownType:
		return ErrUnknownType
	case KindUnresolvedReference:
		return ErrUnresolvedReference
	case KindCoercion:
		return ErrCoercion
	case KindDepthExceeded:
		return ErrDepthExceeded
	case KindUnsupported:
		return ErrUnsupported
	default:
		return ErrParse
	}
}

// Error is the single failure type returned by read and write operations.
type Error struct {
	Kind    Kind
	Path    string // JSON Pointer of the offending node ("/" for the root).
	Message string
	// TypeName is the type involved: the unknown tag, or the coercion target.
	TypeName string
	// Value is the offending raw text, when there is one.
	Value string
	// SourceKind names the textual kind of Value (text, integer, floating, boolean, null).
	SourceKind string
	// Ref is the dangling reference id for KindUnresolvedReference.
	Ref    int64
	Offset int64 // byte offset in the input (-1 when unknown)
	Cause  error
}

func (e *Error) Error() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s at %s", e.Kind.Code(), normalizePath(e.Path))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Kind == KindCoercion {
		fmt.Fprintf(b, " (%s %q -> %s)", e.SourceKind, e.Value, e.TypeName)
	}
	if e.Cause != nil {
		fmt.Fprintf(b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool { return target == e.Kind.sentinel() }

// New builds an *Error of the given kind.
func New(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...), Offset: -1}
}

// Coercion builds a coercion failure with source and target context.
func Coercion(path, value, sourceKind, target string, cause error) *Error {
	return &Error{
		Kind:       KindCoercion,
		Path:       path,
		Message:    "cannot convert value",
		TypeName:   target,
		Value:      value,
		SourceKind: sourceKind,
		Offset:     -1,
		Cause:      cause,
	}
}

// UnknownType reports a type tag that has no registered Go type.
func UnknownType(path, name string) *Error {
	return &Error{Kind: KindUnknownType, Path: path, Message: "no type registered for " + name, TypeName: name, Offset: -1}
}

// Unresolved reports a ref with no matching id in the document.
func Unresolved(path string, ref int64) *Error {
	return &Error{Kind: KindUnresolvedReference, Path: path, Message: fmt.Sprintf("no node with id %d", ref), Ref: ref, Offset: -1}
}

// DepthExceeded reports that the recursion guard tripped.
func DepthExceeded(path string, limit int) *Error {
	return &Error{Kind: KindDepthExceeded, Path: path, Message: fmt.Sprintf("max depth %d exceeded", limit), Offset: -1}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WithPath fills in the path when the error does not carry one yet.
func WithPath(err error, path string) error {
	if e, ok := As(err); ok {
		if e.Path == "" {
			e.Path = path
		}
		return e
	}
	return err
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
