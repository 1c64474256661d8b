package stream

import (
	eng "github.com/reoring/jsongraph/internal/engine"
)

// Documents yields the top-level values of a token stream in order.
type Documents struct {
	inner eng.TokenSource
	cur   *Subtree
	count int
}

func NewDocuments(inner eng.TokenSource) *Documents { return &Documents{inner: inner} }

// Next returns the next document. Tokens the caller left unread in the
// previous document are skipped first. At the end of input Next returns the
// inner source's io.EOF.
func (d *Documents) Next() (*Subtree, error) {
	if d.cur != nil {
		if err := d.cur.skip(); err != nil {
			return nil, err
		}
	}
	tok, err := d.inner.NextToken()
	if err != nil {
		return nil, err
	}
	d.cur = NewSubtree(d.inner, tok)
	d.count++
	return d.cur, nil
}

// Count is the number of documents started so far.
func (d *Documents) Count() int { return d.count }
