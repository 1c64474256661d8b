package jsongraph

import (
	"github.com/reoring/jsongraph/internal/issue"
)

// Error is the single error type returned by a failed read or write. It
// carries the JSON Pointer of the offending node, the type involved and,
// for coercion failures, the offending text and its textual kind.
type Error = issue.Error

// ErrorKind classifies an Error.
type ErrorKind = issue.Kind

const (
	KindParse               = issue.KindParse
	KindMalformedWire       = issue.KindMalformedWire
	KindUnknownType         = issue.KindUnknownType
	KindUnresolvedReference = issue.KindUnresolvedReference
	KindCoercion            = issue.KindCoercion
	KindDepthExceeded       = issue.KindDepthExceeded
	KindUnsupported         = issue.KindUnsupported
)

// Error codes (stable strings for logs and CLI output).
const (
	CodeParseError          = issue.CodeParseError
	CodeMalformedWire       = issue.CodeMalformedWire
	CodeUnknownType         = issue.CodeUnknownType
	CodeUnresolvedReference = issue.CodeUnresolvedReference
	CodeCoercion            = issue.CodeCoercion
	CodeDepthExceeded       = issue.CodeDepthExceeded
	CodeUnsupported         = issue.CodeUnsupported
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrParse               = issue.ErrParse
	ErrMalformedWire       = issue.ErrMalformedWire
	ErrUnknownType         = issue.ErrUnknownType
	ErrUnresolvedReference = issue.ErrUnresolvedReference
	ErrCoercion            = issue.ErrCoercion
	ErrDepthExceeded       = issue.ErrDepthExceeded
	ErrUnsupported         = issue.ErrUnsupported
)

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) { return issue.As(err) }

// toError maps any failure into an *Error so callers see one error type.
func toError(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := issue.As(err); ok {
		if e.Path == "" {
			e.Path = "/"
		}
		return e
	}
	return &Error{Kind: issue.KindParse, Path: "/", Message: err.Error(), Offset: -1, Cause: err}
}
