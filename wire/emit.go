package wire

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Syntax selects the surface syntax of emitted text.
type Syntax int

const (
	SyntaxJSON    Syntax = iota // strict, fully quoted keys, '@' meta prefix
	SyntaxRelaxed               // unquoted identifier keys, '$' meta prefix
	SyntaxYAML                  // indentation-significant
)

// EmitOptions controls text emission.
type EmitOptions struct {
	Syntax   Syntax
	Spelling Spelling
	// Indent enables pretty output with the given indent unit. YAML always
	// indents (two spaces when empty).
	Indent string
}

// Encode writes v in the configured syntax.
func Encode(w io.Writer, v any, opt EmitOptions) error {
	if opt.Syntax == SyntaxYAML {
		return EncodeYAML(w, v, opt.Spelling)
	}
	var buf bytes.Buffer
	e := &jsonEmitter{buf: &buf, opt: opt, prefix: '@'}
	if opt.Syntax == SyntaxRelaxed {
		e.prefix = '$'
	}
	if err := e.value(v, 0); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Marshal is Encode into a byte slice.
func Marshal(v any, opt EmitOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v, opt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type jsonEmitter struct {
	buf    *bytes.Buffer
	opt    EmitOptions
	prefix byte
}

func (e *jsonEmitter) newline(depth int) {
	if e.opt.Indent == "" {
		return
	}
	e.buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		e.buf.WriteString(e.opt.Indent)
	}
}

func (e *jsonEmitter) value(v any, depth int) error {
	switch t := v.(type) {
	case nil:
		e.buf.WriteString("null")
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case Number:
		e.number(t)
	case string:
		return e.str(t)
	case *Node:
		if t == nil {
			e.buf.WriteString("null")
			return nil
		}
		return e.node(t, depth)
	default:
		b, err := j.Marshal(t)
		if err != nil {
			return err
		}
		e.buf.Write(b)
	}
	return nil
}

func (e *jsonEmitter) number(n Number) {
	s := string(n)
	if !validJSONNumber(s) {
		if e.opt.Syntax == SyntaxRelaxed && isNonFinite(s) {
			e.buf.WriteString(strings.TrimPrefix(s, "+"))
			return
		}
		e.buf.WriteString(strconv.Quote(s))
		return
	}
	e.buf.WriteString(s)
}

// validJSONNumber checks the RFC 8259 number grammar.
func validJSONNumber(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	digits := func() int {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		return i - start
	}
	if i < len(s) && s[i] == '0' {
		i++
	} else if digits() == 0 {
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if digits() == 0 {
			return false
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if digits() == 0 {
			return false
		}
	}
	return i == len(s)
}

func isNonFinite(s string) bool {
	switch s {
	case "NaN", "Infinity", "+Infinity", "-Infinity":
		return true
	}
	return false
}

func (e *jsonEmitter) str(s string) error {
	b, err := j.MarshalWithOption(s, j.DisableHTMLEscape())
	if err != nil {
		return err
	}
	e.buf.Write(b)
	return nil
}

func (e *jsonEmitter) key(k string) error {
	if e.opt.Syntax == SyntaxRelaxed && isIdentifier(k) {
		e.buf.WriteString(k)
	} else if err := e.str(k); err != nil {
		return err
	}
	e.buf.WriteByte(':')
	if e.opt.Indent != "" {
		e.buf.WriteByte(' ')
	}
	return nil
}

func isIdentifier(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		alpha := c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !alpha && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	switch k {
	case "true", "false", "null", "NaN", "Infinity":
		return false
	}
	return true
}

func (e *jsonEmitter) seq(items []any, depth int) error {
	if len(items) == 0 {
		e.buf.WriteString("[]")
		return nil
	}
	e.buf.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.newline(depth + 1)
		if err := e.value(it, depth+1); err != nil {
			return err
		}
	}
	e.newline(depth)
	e.buf.WriteByte(']')
	return nil
}

func (e *jsonEmitter) node(n *Node, depth int) error {
	if n.Array && !n.HasID && n.Type == "" {
		return e.seq(n.Items, depth)
	}
	first := true
	member := func(k string) error {
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		e.newline(depth + 1)
		return e.key(k)
	}
	e.buf.WriteByte('{')
	if n.HasRef {
		if err := member(MetaRef.Key(e.opt.Spelling, e.prefix)); err != nil {
			return err
		}
		e.buf.WriteString(strconv.FormatInt(n.Ref, 10))
	}
	if n.HasID {
		if err := member(MetaID.Key(e.opt.Spelling, e.prefix)); err != nil {
			return err
		}
		e.buf.WriteString(strconv.FormatInt(n.ID, 10))
	}
	if n.Type != "" {
		if err := member(MetaType.Key(e.opt.Spelling, e.prefix)); err != nil {
			return err
		}
		if err := e.str(n.Type); err != nil {
			return err
		}
	}
	if n.Keys != nil {
		if err := member(MetaKeys.Key(e.opt.Spelling, e.prefix)); err != nil {
			return err
		}
		if err := e.seq(n.Keys, depth+1); err != nil {
			return err
		}
	}
	if n.Items != nil {
		if err := member(MetaItems.Key(e.opt.Spelling, e.prefix)); err != nil {
			return err
		}
		if err := e.seq(n.Items, depth+1); err != nil {
			return err
		}
	}
	for _, f := range n.Fields {
		if err := member(f.Name); err != nil {
			return err
		}
		if err := e.value(f.Value, depth+1); err != nil {
			return err
		}
	}
	if !first {
		e.newline(depth)
	}
	e.buf.WriteByte('}')
	return nil
}

// EncodeYAML writes v as a YAML document using '@' meta keys.
func EncodeYAML(w io.Writer, v any, sp Spelling) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toYAML(v, sp)); err != nil {
		return err
	}
	return enc.Close()
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func toYAML(v any, sp Spelling) *yaml.Node {
	switch t := v.(type) {
	case nil:
		return yamlScalar("!!null", "null")
	case bool:
		return yamlScalar("!!bool", strconv.FormatBool(t))
	case Number:
		s := string(t)
		switch s {
		case "NaN":
			return yamlScalar("!!float", ".nan")
		case "Infinity", "+Infinity":
			return yamlScalar("!!float", ".inf")
		case "-Infinity":
			return yamlScalar("!!float", "-.inf")
		}
		if t.IsInteger() {
			return yamlScalar("!!int", s)
		}
		return yamlScalar("!!float", s)
	case string:
		return yamlScalar("!!str", t)
	case *Node:
		if t == nil {
			return yamlScalar("!!null", "null")
		}
		return nodeToYAML(t, sp)
	}
	return yamlScalar("!!null", "null")
}

func yamlSeq(items []any, sp Spelling) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(items) == 0 {
		seq.Style = yaml.FlowStyle
	}
	for _, it := range items {
		seq.Content = append(seq.Content, toYAML(it, sp))
	}
	return seq
}

func nodeToYAML(n *Node, sp Spelling) *yaml.Node {
	if n.Array && !n.HasID && n.Type == "" {
		return yamlSeq(n.Items, sp)
	}
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(k string, v *yaml.Node) {
		m.Content = append(m.Content, yamlScalar("!!str", k), v)
	}
	if n.HasRef {
		add(MetaRef.Key(sp, '@'), yamlScalar("!!int", strconv.FormatInt(n.Ref, 10)))
	}
	if n.HasID {
		add(MetaID.Key(sp, '@'), yamlScalar("!!int", strconv.FormatInt(n.ID, 10)))
	}
	if n.Type != "" {
		add(MetaType.Key(sp, '@'), yamlScalar("!!str", n.Type))
	}
	if n.Keys != nil {
		add(MetaKeys.Key(sp, '@'), yamlSeq(n.Keys, sp))
	}
	if n.Items != nil {
		add(MetaItems.Key(sp, '@'), yamlSeq(n.Items, sp))
	}
	for _, f := range n.Fields {
		add(f.Name, toYAML(f.Value, sp))
	}
	if len(m.Content) == 0 {
		m.Style = yaml.FlowStyle
	}
	return m
}
