package json

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	eng "github.com/reoring/jsongraph/internal/engine"
	"github.com/reoring/jsongraph/internal/issue"
)

func TestTokens(t *testing.T) {
	src := NewBytes([]byte(`{"@id":1,"a":["x",2.50,true,null],"b":{}}`))
	want := []eng.Token{
		{Kind: eng.KindBeginObject},
		{Kind: eng.KindKey, String: "@id"},
		{Kind: eng.KindNumber, Number: "1"},
		{Kind: eng.KindKey, String: "a"},
		{Kind: eng.KindBeginArray},
		{Kind: eng.KindString, String: "x"},
		{Kind: eng.KindNumber, Number: "2.50"},
		{Kind: eng.KindBool, Bool: true},
		{Kind: eng.KindNull},
		{Kind: eng.KindEndArray},
		{Kind: eng.KindKey, String: "b"},
		{Kind: eng.KindBeginObject},
		{Kind: eng.KindEndObject},
		{Kind: eng.KindEndObject},
	}
	var got []eng.Token
	for {
		tok, err := src.NextToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("NextToken error: %v", err)
		}
		got = append(got, tok)
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(eng.Token{}, "Offset")); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalid(t *testing.T) {
	src := NewBytes([]byte(`{"a" 1}`))
	var err error
	for err == nil {
		_, err = src.NextToken()
	}
	e, ok := issue.As(err)
	if !ok || e.Kind != issue.KindParse {
		t.Fatalf("expected parse issue, got %v", err)
	}
}
