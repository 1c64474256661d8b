// Package yaml reads the indentation-significant surface syntax. A YAML
// document is decoded with gopkg.in/yaml.v3 and flattened into the same token
// stream the JSON sources produce, so the wire builder does not know which
// syntax it is reading.
package yaml

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	eng "github.com/reoring/jsongraph/internal/engine"
	"github.com/reoring/jsongraph/internal/issue"
)

// NewBytes decodes b as a single YAML document.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

// NewReader decodes the first YAML document from r.
func NewReader(r io.Reader) eng.TokenSource {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return eng.NewSliceSource(nil)
		}
		e := issue.New(issue.KindParse, "", "invalid YAML")
		e.Cause = err
		return &failing{err: e}
	}
	var toks []eng.Token
	if err := flatten(&doc, &toks, 0); err != nil {
		return &failing{err: err}
	}
	return eng.NewSliceSource(toks)
}

// NewStream reads every document of r in turn. Each document is decoded
// when the previous one has been fully consumed.
func NewStream(r io.Reader) eng.TokenSource { return &docStream{dec: yaml.NewDecoder(r)} }

type docStream struct {
	dec *yaml.Decoder
	cur eng.TokenSource
	err error
}

func (s *docStream) NextToken() (eng.Token, error) {
	for s.err == nil {
		if s.cur != nil {
			tok, err := s.cur.NextToken()
			if !errors.Is(err, io.EOF) {
				return tok, err
			}
		}
		s.cur, s.err = s.decode()
	}
	return eng.Token{}, s.err
}

func (s *docStream) decode() (eng.TokenSource, error) {
	var doc yaml.Node
	if err := s.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		e := issue.New(issue.KindParse, "", "invalid YAML")
		e.Cause = err
		return nil, e
	}
	var toks []eng.Token
	if err := flatten(&doc, &toks, 0); err != nil {
		return nil, err
	}
	return eng.NewSliceSource(toks), nil
}

func (s *docStream) Location() int64 { return -1 }

type failing struct{ err error }

func (f *failing) NextToken() (eng.Token, error) { return eng.Token{}, f.err }
func (f *failing) Location() int64               { return -1 }

// maxAliasDepth bounds alias expansion so recursive anchors cannot loop.
const maxAliasDepth = 10000

func flatten(n *yaml.Node, out *[]eng.Token, depth int) error {
	if depth > maxAliasDepth {
		return issue.New(issue.KindDepthExceeded, "", "yaml nesting too deep")
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			*out = append(*out, eng.Token{Kind: eng.KindNull, Offset: -1})
			return nil
		}
		return flatten(n.Content[0], out, depth+1)
	case yaml.AliasNode:
		return flatten(n.Alias, out, depth+1)
	case yaml.MappingNode:
		*out = append(*out, eng.Token{Kind: eng.KindBeginObject, Offset: -1})
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind == yaml.AliasNode {
				k = k.Alias
			}
			if k.Kind != yaml.ScalarNode {
				return issue.New(issue.KindParse, "", "yaml mapping key at line %d must be a scalar", k.Line)
			}
			*out = append(*out, eng.Token{Kind: eng.KindKey, String: k.Value, Offset: -1})
			if err := flatten(n.Content[i+1], out, depth+1); err != nil {
				return err
			}
		}
		*out = append(*out, eng.Token{Kind: eng.KindEndObject, Offset: -1})
		return nil
	case yaml.SequenceNode:
		*out = append(*out, eng.Token{Kind: eng.KindBeginArray, Offset: -1})
		for _, c := range n.Content {
			if err := flatten(c, out, depth+1); err != nil {
				return err
			}
		}
		*out = append(*out, eng.Token{Kind: eng.KindEndArray, Offset: -1})
		return nil
	case yaml.ScalarNode:
		tok, err := scalar(n)
		if err != nil {
			return err
		}
		*out = append(*out, tok)
		return nil
	}
	return issue.New(issue.KindParse, "", "unsupported yaml node at line %d", n.Line)
}

func scalar(n *yaml.Node) (eng.Token, error) {
	switch n.ShortTag() {
	case "!!null":
		return eng.Token{Kind: eng.KindNull, Offset: -1}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return eng.Token{}, issue.New(issue.KindParse, "", "invalid yaml bool %q", n.Value)
		}
		return eng.Token{Kind: eng.KindBool, Bool: b, Offset: -1}, nil
	case "!!int":
		return eng.Token{Kind: eng.KindNumber, Number: normalizeInt(n.Value), Offset: -1}, nil
	case "!!float":
		return eng.Token{Kind: eng.KindNumber, Number: normalizeFloat(n.Value), Offset: -1}, nil
	default:
		return eng.Token{Kind: eng.KindString, String: n.Value, Offset: -1}, nil
	}
}

// normalizeInt rewrites YAML integer spellings (0x1F, 0o17, 1_000) as decimal.
func normalizeInt(v string) string {
	clean := strings.ReplaceAll(v, "_", "")
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if u, err := strconv.ParseUint(clean, 0, 64); err == nil {
		return strconv.FormatUint(u, 10)
	}
	return clean
}

func normalizeFloat(v string) string {
	switch strings.ToLower(v) {
	case ".inf", "+.inf":
		return "+Infinity"
	case "-.inf":
		return "-Infinity"
	case ".nan":
		return "NaN"
	}
	return strings.ReplaceAll(v, "_", "")
}
