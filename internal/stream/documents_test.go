package stream

import (
	"errors"
	"io"
	"testing"

	eng "github.com/reoring/jsongraph/internal/engine"
)

func kinds(t *testing.T, src eng.TokenSource) []eng.Kind {
	t.Helper()
	var out []eng.Kind
	for {
		tok, err := src.NextToken()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, tok.Kind)
	}
}

func equalKinds(a, b []eng.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// {"a":[1]} 2 [] as one token stream.
func threeDocs() *eng.SliceSource {
	return eng.NewSliceSource([]eng.Token{
		{Kind: eng.KindBeginObject},
		{Kind: eng.KindKey, String: "a"},
		{Kind: eng.KindBeginArray},
		{Kind: eng.KindNumber, Number: "1"},
		{Kind: eng.KindEndArray},
		{Kind: eng.KindEndObject},
		{Kind: eng.KindNumber, Number: "2"},
		{Kind: eng.KindBeginArray},
		{Kind: eng.KindEndArray},
	})
}

func TestDocuments_Split(t *testing.T) {
	docs := NewDocuments(threeDocs())
	want := [][]eng.Kind{
		{eng.KindBeginObject, eng.KindKey, eng.KindBeginArray, eng.KindNumber, eng.KindEndArray, eng.KindEndObject},
		{eng.KindNumber},
		{eng.KindBeginArray, eng.KindEndArray},
	}
	for i, w := range want {
		sub, err := docs.Next()
		if err != nil {
			t.Fatalf("doc %d: %v", i, err)
		}
		if got := kinds(t, sub); !equalKinds(got, w) {
			t.Fatalf("doc %d: got %v want %v", i, got, w)
		}
		if !sub.Done() {
			t.Fatalf("doc %d: expected Done after draining", i)
		}
	}
	if _, err := docs.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if docs.Count() != 3 {
		t.Fatalf("count: got %d want 3", docs.Count())
	}
}

func TestDocuments_SkipsUnreadRest(t *testing.T) {
	docs := NewDocuments(threeDocs())
	first, err := docs.Next()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.NextToken(); err != nil {
		t.Fatal(err)
	}
	second, err := docs.Next()
	if err != nil {
		t.Fatal(err)
	}
	tok, err := second.NextToken()
	if err != nil {
		t.Fatal(err)
	}
	if tok.Kind != eng.KindNumber || tok.Number != "2" {
		t.Fatalf("expected the second document, got %+v", tok)
	}
}
