// Package stream splits one token stream into consecutive top-level
// documents so each can be built and resolved on its own.
package stream

import (
	"io"

	eng "github.com/reoring/jsongraph/internal/engine"
)

// Subtree exposes exactly one value of inner, starting with a token already
// read from it. It reports io.EOF once the value's closing token is served.
type Subtree struct {
	inner  eng.TokenSource
	first  eng.Token
	served bool
	depth  int
	done   bool
}

// NewSubtree returns the value of inner that begins with first.
func NewSubtree(inner eng.TokenSource, first eng.Token) *Subtree {
	return &Subtree{inner: inner, first: first}
}

func (s *Subtree) NextToken() (eng.Token, error) {
	if s.done {
		return eng.Token{}, io.EOF
	}
	tok := s.first
	if s.served {
		var err error
		if tok, err = s.inner.NextToken(); err != nil {
			return eng.Token{}, err
		}
	}
	s.served = true
	switch tok.Kind {
	case eng.KindBeginObject, eng.KindBeginArray:
		s.depth++
	case eng.KindEndObject, eng.KindEndArray:
		s.depth--
	}
	if s.depth <= 0 {
		s.done = true
	}
	return tok, nil
}

func (s *Subtree) Location() int64 { return s.inner.Location() }

// Done reports whether the whole value has been served.
func (s *Subtree) Done() bool { return s.done }

// skip consumes what is left of the value.
func (s *Subtree) skip() error {
	for !s.done {
		if _, err := s.NextToken(); err != nil {
			return err
		}
	}
	return nil
}
