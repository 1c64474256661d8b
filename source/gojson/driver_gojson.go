// Package gojson is the goccy/go-json-backed strict JSON token source. It is
// the default driver for strict reads.
package gojson

import (
	"bytes"
	"errors"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	eng "github.com/reoring/jsongraph/internal/engine"
	"github.com/reoring/jsongraph/internal/issue"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

// source splits the input into top-level values, validates each one with
// j.Valid and then tokenizes it. Decoder.Token alone does not check the ':'
// and ',' separators.
type source struct {
	docs  *j.Decoder
	cur   *j.Decoder
	stack []frame
}

// NewReader wraps an io.Reader into an engine.TokenSource for JSON using go-json.
func NewReader(r io.Reader) eng.TokenSource {
	return &source{docs: j.NewDecoder(r)}
}

// NewBytes wraps a byte slice into an engine.TokenSource for JSON using go-json.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func invalid(err error) error {
	e := issue.New(issue.KindParse, "", "invalid JSON")
	e.Cause = err
	return e
}

// next loads the following top-level value.
func (s *source) next() error {
	var raw j.RawMessage
	if err := s.docs.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return invalid(err)
	}
	if !j.Valid(raw) {
		return invalid(errors.New("malformed value"))
	}
	s.cur = j.NewDecoder(bytes.NewReader(raw))
	s.cur.UseNumber()
	return nil
}

func (s *source) NextToken() (eng.Token, error) {
	if s.cur == nil {
		if err := s.next(); err != nil {
			return eng.Token{}, err
		}
	}
	tok, err := s.cur.Token()
	if errors.Is(err, io.EOF) {
		s.cur = nil
		return s.NextToken()
	}
	if err != nil {
		return eng.Token{}, invalid(err)
	}
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return eng.Token{Kind: eng.KindBeginObject, Offset: -1}, nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return eng.Token{Kind: eng.KindBeginArray, Offset: -1}, nil
		case '}':
			s.pop()
			return eng.Token{Kind: eng.KindEndObject, Offset: -1}, nil
		default:
			s.pop()
			return eng.Token{Kind: eng.KindEndArray, Offset: -1}, nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			top := &s.stack[n-1]
			if top.kind == kindObject && top.expectingKey {
				top.expectingKey = false
				return eng.Token{Kind: eng.KindKey, String: v, Offset: -1}, nil
			}
		}
		s.valueDone()
		return eng.Token{Kind: eng.KindString, String: v, Offset: -1}, nil
	case bool:
		s.valueDone()
		return eng.Token{Kind: eng.KindBool, Bool: v, Offset: -1}, nil
	case j.Number:
		s.valueDone()
		return eng.Token{Kind: eng.KindNumber, Number: string(v), Offset: -1}, nil
	case float64:
		s.valueDone()
		return eng.Token{Kind: eng.KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64), Offset: -1}, nil
	}
	s.valueDone()
	return eng.Token{Kind: eng.KindNull, Offset: -1}, nil
}

func (s *source) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

func (s *source) valueDone() {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.kind == kindObject && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

func (s *source) Location() int64 { return -1 }
