package jsongraph

import (
	"errors"
	"io"

	"github.com/reoring/jsongraph/internal/stream"
	relaxedsrc "github.com/reoring/jsongraph/source/relaxed"
	yamlsrc "github.com/reoring/jsongraph/source/yaml"
	"github.com/reoring/jsongraph/wire"
)

// Decoder reads consecutive documents from one input. Every document has its
// own id space: a ref never reaches into another document.
type Decoder struct {
	docs *stream.Documents
	opt  ReadOpt
	err  error
}

// NewDecoder reads documents from r. Strict JSON input (SyntaxAuto or
// SyntaxJSON) may hold any number of whitespace-separated documents, YAML
// input any number of "---" separated ones. Relaxed input holds one document.
func NewDecoder(r io.Reader, opts ...ReadOpt) *Decoder {
	opt := lastReadOpt(opts)
	var src Source
	switch opt.Syntax {
	case SyntaxRelaxed:
		src = relaxedsrc.NewReader(r)
	case SyntaxYAML:
		src = yamlsrc.NewStream(r)
	default:
		src = JSONReader(r)
	}
	return NewSourceDecoder(src, opt)
}

// NewSourceDecoder reads documents from src. The syntax option is ignored;
// MaxBytes bounds the whole stream.
func NewSourceDecoder(src Source, opts ...ReadOpt) *Decoder {
	opt := withReadDefaults(lastReadOpt(opts))
	return &Decoder{docs: stream.NewDocuments(EnforceSource(src, opt)), opt: opt}
}

// Decode reads the next document into v. It returns io.EOF when the input is
// exhausted. A malformed document stops the decoder; a document that fails
// to resolve does not.
func (d *Decoder) Decode(v any) error {
	dst, err := target(v)
	if err != nil {
		return err
	}
	root, err := d.next()
	if err != nil {
		return err
	}
	return resolveInto(root, dst, d.opt)
}

// DecodeNodes returns the wire tree of the next document.
func (d *Decoder) DecodeNodes() (any, error) { return d.next() }

// Count is the number of documents read so far.
func (d *Decoder) Count() int { return d.docs.Count() }

func (d *Decoder) next() (any, error) {
	if d.err != nil {
		return nil, d.err
	}
	doc, err := d.docs.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			err = toError(err)
		}
		d.err = err
		return nil, err
	}
	root, err := wire.Build(doc)
	if err != nil {
		d.err = toError(err)
		return nil, d.err
	}
	if d.opt.Logger != nil {
		d.opt.Logger.Debug("document read", "n", d.docs.Count())
	}
	return root, nil
}
