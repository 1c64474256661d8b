package jsongraph

import (
	"bytes"
	"io"
	"sync"

	eng "github.com/reoring/jsongraph/internal/engine"
	"github.com/reoring/jsongraph/internal/issue"
	gojsonsrc "github.com/reoring/jsongraph/source/gojson"
	jsonsrc "github.com/reoring/jsongraph/source/json"
	relaxedsrc "github.com/reoring/jsongraph/source/relaxed"
	yamlsrc "github.com/reoring/jsongraph/source/yaml"
)

// Token is one token of a surface syntax. Offset records the byte position
// when known (-1 otherwise).
type Token = eng.Token

// TokenKind enumerates token kinds.
type TokenKind = eng.Kind

const (
	TokenBeginObject = eng.KindBeginObject
	TokenEndObject   = eng.KindEndObject
	TokenBeginArray  = eng.KindBeginArray
	TokenEndArray    = eng.KindEndArray
	TokenKey         = eng.KindKey
	TokenString      = eng.KindString
	TokenNumber      = eng.KindNumber
	TokenBool        = eng.KindBool
	TokenNull        = eng.KindNull
)

// Source is a token stream. Every surface syntax reader implements it, and
// callers may supply their own to ReadFrom.
type Source = eng.TokenSource

// JSONDriver turns strict JSON input into a Source. The default is backed by
// goccy/go-json and may be swapped with SetJSONDriver.
type JSONDriver interface {
	NewReader(r io.Reader) Source
	NewBytes(b []byte) Source
	Name() string
}

var (
	jsonDriverMu      sync.RWMutex
	currentJSONDriver JSONDriver = goJSONDriver{}
)

// SetJSONDriver replaces the global JSON driver; nil values are ignored.
func SetJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	currentJSONDriver = d
	jsonDriverMu.Unlock()
}

// UseDefaultJSONDriver restores the go-json backed driver.
func UseDefaultJSONDriver() {
	jsonDriverMu.Lock()
	currentJSONDriver = goJSONDriver{}
	jsonDriverMu.Unlock()
}

func getJSONDriver() JSONDriver {
	jsonDriverMu.RLock()
	d := currentJSONDriver
	jsonDriverMu.RUnlock()
	return d
}

type goJSONDriver struct{}

func (goJSONDriver) NewReader(r io.Reader) Source { return gojsonsrc.NewReader(r) }
func (goJSONDriver) NewBytes(b []byte) Source     { return gojsonsrc.NewBytes(b) }
func (goJSONDriver) Name() string                 { return "goccy/go-json" }

// StdlibJSONDriver returns a driver backed by encoding/json.
func StdlibJSONDriver() JSONDriver { return stdJSONDriver{} }

type stdJSONDriver struct{}

func (stdJSONDriver) NewReader(r io.Reader) Source { return jsonsrc.NewReader(r) }
func (stdJSONDriver) NewBytes(b []byte) Source     { return jsonsrc.NewBytes(b) }
func (stdJSONDriver) Name() string                 { return "encoding/json" }

// JSONReader wraps an io.Reader as a strict JSON Source.
func JSONReader(r io.Reader) Source { return getJSONDriver().NewReader(r) }

// JSONBytes wraps a byte slice as a strict JSON Source.
func JSONBytes(b []byte) Source { return getJSONDriver().NewBytes(b) }

// RelaxedBytes wraps a byte slice as a relaxed-syntax Source.
func RelaxedBytes(b []byte) Source { return relaxedsrc.NewBytes(b) }

// YAMLBytes wraps a byte slice as a YAML Source.
func YAMLBytes(b []byte) Source { return yamlsrc.NewBytes(b) }

// EnforceSource wraps a Source with duplicate key, depth and size enforcement.
// It returns s unchanged when the options enforce nothing.
func EnforceSource(s Source, opt ReadOpt) Source {
	var sink func(*issue.Error)
	if opt.Strictness.OnDuplicateKey == SeverityWarn && opt.Logger != nil {
		sink = func(e *issue.Error) { opt.Logger.Warn("duplicate key", "path", e.Path, "offset", e.Offset) }
	}
	return eng.WrapWithEnforcement(s, eng.EnforceOptions{
		OnDuplicate: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
		IssueSink:   sink,
	})
}

// sourceFor picks the token source for syn. SyntaxAuto starts strict.
func sourceFor(data []byte, syn Syntax) Source {
	switch syn {
	case SyntaxRelaxed:
		return relaxedsrc.NewBytes(data)
	case SyntaxYAML:
		return yamlsrc.NewBytes(data)
	default:
		return getJSONDriver().NewBytes(data)
	}
}

// DetectSyntax guesses the syntax of data: a document whose first
// significant byte opens an object, array or string is JSON (strict first,
// relaxed on failure); anything else is treated as YAML only when it holds a
// "key:" line.
func DetectSyntax(data []byte) Syntax {
	t := bytes.TrimLeft(data, " \t\r\n\uFEFF")
	if len(t) == 0 {
		return SyntaxAuto
	}
	switch t[0] {
	case '{', '[', '"', '/':
		return SyntaxAuto
	}
	if line, _, _ := bytes.Cut(t, []byte("\n")); bytes.Contains(line, []byte(": ")) || bytes.HasSuffix(bytes.TrimSpace(line), []byte(":")) {
		return SyntaxYAML
	}
	return SyntaxAuto
}
