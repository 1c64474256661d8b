// Package intern folds equal logical-primitive values decoded from text into
// one shared instance. Folding is best-effort: eviction only costs sharing.
package intern

import (
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the capacity of a per-call cache.
const DefaultSize = 1024

type key struct {
	typ  reflect.Type
	text string
}

// Cache is safe for concurrent use. A nil *Cache folds nothing.
type Cache struct {
	entries *lru.Cache[key, reflect.Value]
}

// New returns a cache holding at most size values.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[key, reflect.Value](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: c}, nil
}

// Fold returns the cached value for (t, text) or builds, stores and returns
// a fresh one. Only immutable kinds are stored; others pass through build.
func (c *Cache) Fold(t reflect.Type, text string, build func() (reflect.Value, error)) (reflect.Value, error) {
	if c == nil || !foldable(t) {
		return build()
	}
	k := key{typ: t, text: text}
	if v, ok := c.entries.Get(k); ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return v, err
	}
	c.entries.Add(k, v)
	return v, nil
}

// String folds a text value.
func (c *Cache) String(s string) string {
	if c == nil {
		return s
	}
	k := key{typ: stringType, text: s}
	if v, ok := c.entries.Get(k); ok {
		return v.String()
	}
	c.entries.Add(k, reflect.ValueOf(s))
	return s
}

// Len is the number of cached values.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

var stringType = reflect.TypeOf("")

func foldable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return false
	}
	return true
}
