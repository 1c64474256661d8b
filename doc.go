// Package jsongraph reads and writes Go object graphs as JSON documents that
// keep their shape: shared pointers stay shared, cycles survive, and values
// stored behind interfaces come back as their concrete types.
//
// A document is ordinary JSON plus a handful of meta keys:
//
//	@type  (@t)  the Go type of the value, when the slot cannot tell
//	@id    (@i)  marks a value that is referenced elsewhere
//	@ref   (@r)  stands in for the value with that id
//	@items (@e)  the elements of an array, or the values of a map
//	@keys  (@k)  the keys of a map whose keys are not plain strings
//
// The relaxed syntax spells the prefix '$' and may leave keys unquoted; YAML
// is accepted as a third surface syntax.
//
// Typical usage:
//
//	data, err := jsongraph.Marshal(graph)
//	g, err := jsongraph.Read[*Graph](data)
//	copy, err := jsongraph.Clone(graph)
//
// Named types are written under their package-qualified name unless a
// shorter one is bound with Register. Every failure is an *Error whose Kind
// matches one of the Err sentinels with errors.Is.
package jsongraph
