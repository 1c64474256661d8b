// Package relaxed tokenizes the relaxed JSON dialect: unquoted identifier
// keys (including the $-prefixed meta keys), single-quoted strings, line and
// block comments, trailing commas, hexadecimal integers, leading '+' and '.'
// on numbers, and the NaN/Infinity literals. Strict JSON is a subset, so this
// source reads both.
package relaxed

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	eng "github.com/reoring/jsongraph/internal/engine"
	"github.com/reoring/jsongraph/internal/issue"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type state int

const (
	stKey   state = iota // object: key or '}'
	stColon              // object: ':'
	stValue              // value (or ']' in arrays)
	stComma              // ',' or closing bracket
)

type frame struct {
	kind  containerKind
	state state
}

type source struct {
	data     []byte
	pos      int
	stack    []frame
	rootDone bool
	last     int64
}

// NewBytes returns a relaxed-syntax token source over b.
func NewBytes(b []byte) eng.TokenSource { return &source{data: b, last: -1} }

// NewReader reads r fully and tokenizes it.
func NewReader(r io.Reader) eng.TokenSource {
	b, err := io.ReadAll(r)
	if err != nil {
		return &failing{err: err}
	}
	return NewBytes(b)
}

type failing struct{ err error }

func (f *failing) NextToken() (eng.Token, error) { return eng.Token{}, f.err }
func (f *failing) Location() int64               { return -1 }

func (s *source) Location() int64 { return s.last }

func (s *source) errorf(format string, args ...any) error {
	e := issue.New(issue.KindParse, "", format, args...)
	e.Offset = int64(s.pos)
	return e
}

func (s *source) NextToken() (eng.Token, error) {
	if err := s.skipSpace(); err != nil {
		return eng.Token{}, err
	}
	if len(s.stack) == 0 {
		if s.rootDone {
			if s.pos < len(s.data) {
				return eng.Token{}, s.errorf("unexpected trailing data %q", s.peekSnippet())
			}
			return eng.Token{}, io.EOF
		}
		return s.value()
	}
	top := &s.stack[len(s.stack)-1]
	if s.pos >= len(s.data) {
		return eng.Token{}, s.errorf("unexpected end of input")
	}
	c := s.data[s.pos]
	switch top.state {
	case stComma:
		if s.closes(top.kind, c) {
			return s.end(top.kind)
		}
		if c != ',' {
			return eng.Token{}, s.errorf("expected ',' but found %q", c)
		}
		s.pos++
		if top.kind == kindObject {
			top.state = stKey
		} else {
			top.state = stValue
		}
		return s.NextToken()
	case stKey:
		if c == '}' {
			return s.end(kindObject)
		}
		k, err := s.key()
		if err != nil {
			return eng.Token{}, err
		}
		top.state = stColon
		return k, nil
	case stColon:
		if c != ':' {
			return eng.Token{}, s.errorf("expected ':' but found %q", c)
		}
		s.pos++
		top.state = stValue
		if err := s.skipSpace(); err != nil {
			return eng.Token{}, err
		}
		return s.value()
	default:
		if top.kind == kindArray && c == ']' {
			return s.end(kindArray)
		}
		return s.value()
	}
}

func (s *source) closes(k containerKind, c byte) bool {
	return (k == kindObject && c == '}') || (k == kindArray && c == ']')
}

func (s *source) end(k containerKind) (eng.Token, error) {
	s.last = int64(s.pos)
	s.pos++
	s.stack = s.stack[:len(s.stack)-1]
	s.valueDone()
	if k == kindObject {
		return eng.Token{Kind: eng.KindEndObject, Offset: s.last}, nil
	}
	return eng.Token{Kind: eng.KindEndArray, Offset: s.last}, nil
}

func (s *source) valueDone() {
	if n := len(s.stack); n > 0 {
		s.stack[n-1].state = stComma
		return
	}
	s.rootDone = true
}

func (s *source) value() (eng.Token, error) {
	if s.pos >= len(s.data) {
		return eng.Token{}, s.errorf("unexpected end of input")
	}
	s.last = int64(s.pos)
	c := s.data[s.pos]
	switch {
	case c == '{':
		s.pos++
		s.stack = append(s.stack, frame{kind: kindObject, state: stKey})
		return eng.Token{Kind: eng.KindBeginObject, Offset: s.last}, nil
	case c == '[':
		s.pos++
		s.stack = append(s.stack, frame{kind: kindArray, state: stValue})
		return eng.Token{Kind: eng.KindBeginArray, Offset: s.last}, nil
	case c == '"' || c == '\'':
		str, err := s.quoted()
		if err != nil {
			return eng.Token{}, err
		}
		s.valueDone()
		return eng.Token{Kind: eng.KindString, String: str, Offset: s.last}, nil
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		num, err := s.number()
		if err != nil {
			return eng.Token{}, err
		}
		s.valueDone()
		return eng.Token{Kind: eng.KindNumber, Number: num, Offset: s.last}, nil
	case isIdentStart(c):
		word := s.ident()
		tok := eng.Token{Offset: s.last}
		switch word {
		case "true", "false":
			tok.Kind, tok.Bool = eng.KindBool, word == "true"
		case "null":
			tok.Kind = eng.KindNull
		case "NaN", "Infinity":
			tok.Kind, tok.Number = eng.KindNumber, word
		default:
			return eng.Token{}, s.errorf("unexpected identifier %q", word)
		}
		s.valueDone()
		return tok, nil
	}
	return eng.Token{}, s.errorf("unexpected character %q", c)
}

func (s *source) key() (eng.Token, error) {
	s.last = int64(s.pos)
	c := s.data[s.pos]
	if c == '"' || c == '\'' {
		str, err := s.quoted()
		if err != nil {
			return eng.Token{}, err
		}
		return eng.Token{Kind: eng.KindKey, String: str, Offset: s.last}, nil
	}
	if isIdentStart(c) {
		return eng.Token{Kind: eng.KindKey, String: s.ident(), Offset: s.last}, nil
	}
	return eng.Token{}, s.errorf("expected object key but found %q", c)
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c == '@' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isIdentPart(c byte) bool { return isIdentStart(c) || (c >= '0' && c <= '9') }

func (s *source) ident() string {
	start := s.pos
	for s.pos < len(s.data) && isIdentPart(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func (s *source) number() (string, error) {
	start := s.pos
	sign := ""
	if c := s.data[s.pos]; c == '+' || c == '-' {
		if c == '-' {
			sign = "-"
		}
		s.pos++
	}
	if s.pos < len(s.data) && isIdentStart(s.data[s.pos]) {
		word := s.ident()
		switch word {
		case "Infinity":
			if sign == "" {
				return "+Infinity", nil
			}
			return "-Infinity", nil
		case "NaN":
			return "NaN", nil
		}
		return "", s.errorf("invalid number %q", string(s.data[start:s.pos]))
	}
	if s.pos+1 < len(s.data) && s.data[s.pos] == '0' && (s.data[s.pos+1] == 'x' || s.data[s.pos+1] == 'X') {
		s.pos += 2
		hs := s.pos
		for s.pos < len(s.data) && isHex(s.data[s.pos]) {
			s.pos++
		}
		u, err := strconv.ParseUint(string(s.data[hs:s.pos]), 16, 64)
		if err != nil {
			return "", s.errorf("invalid hex number %q", string(s.data[start:s.pos]))
		}
		return sign + strconv.FormatUint(u, 10), nil
	}
	ds := s.pos
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' {
			s.pos++
			continue
		}
		if (c == '+' || c == '-') && (s.data[s.pos-1] == 'e' || s.data[s.pos-1] == 'E') {
			s.pos++
			continue
		}
		break
	}
	lit := string(s.data[ds:s.pos])
	if strings.HasPrefix(lit, ".") {
		lit = "0" + lit
	}
	if strings.HasSuffix(lit, ".") {
		lit += "0"
	}
	if _, err := strconv.ParseFloat(lit, 64); err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return "", s.errorf("invalid number %q", string(s.data[start:s.pos]))
		}
	}
	return sign + lit, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (s *source) quoted() (string, error) {
	q := s.data[s.pos]
	s.pos++
	var b strings.Builder
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case c == q:
			s.pos++
			return b.String(), nil
		case c == '\\':
			s.pos++
			if s.pos >= len(s.data) {
				return "", s.errorf("unterminated escape")
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '0':
				b.WriteByte(0)
			case '\n':
				// line continuation
			case 'u':
				r, err := s.unicodeEscape()
				if err != nil {
					return "", err
				}
				b.WriteRune(r)
			default:
				b.WriteByte(e)
			}
		case c == '\n' && q == '\'':
			return "", s.errorf("newline in string")
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return "", s.errorf("unterminated string")
}

func (s *source) unicodeEscape() (rune, error) {
	r1, err := s.hex4()
	if err != nil {
		return 0, err
	}
	if utf16.IsSurrogate(r1) && s.pos+1 < len(s.data) && s.data[s.pos] == '\\' && s.data[s.pos+1] == 'u' {
		s.pos += 2
		r2, err := s.hex4()
		if err != nil {
			return 0, err
		}
		return utf16.DecodeRune(r1, r2), nil
	}
	return r1, nil
}

func (s *source) hex4() (rune, error) {
	if s.pos+4 > len(s.data) {
		return 0, s.errorf("short unicode escape")
	}
	v, err := strconv.ParseUint(string(s.data[s.pos:s.pos+4]), 16, 32)
	if err != nil {
		return 0, s.errorf("invalid unicode escape %q", string(s.data[s.pos:s.pos+4]))
	}
	s.pos += 4
	return rune(v), nil
}

func (s *source) skipSpace() error {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			s.pos++
		case c == 0xEF && bytes.HasPrefix(s.data[s.pos:], []byte{0xEF, 0xBB, 0xBF}):
			s.pos += 3
		case c == '/' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '/':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '*':
			end := bytes.Index(s.data[s.pos+2:], []byte("*/"))
			if end < 0 {
				return s.errorf("unterminated comment")
			}
			s.pos += end + 4
		default:
			return nil
		}
	}
	return nil
}

func (s *source) peekSnippet() string {
	end := s.pos + 16
	if end > len(s.data) {
		end = len(s.data)
	}
	return string(s.data[s.pos:end])
}
