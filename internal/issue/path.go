package issue

import (
	"strconv"
	"strings"
)

// Path builds JSON Pointer paths in a chain-safe way. The zero value is the root.
type Path struct {
	parts []string
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Field returns a child path for an object member.
func (p Path) Field(name string) Path {
	return Path{parts: append(append(make([]string, 0, len(p.parts)+1), p.parts...), pointerEscaper.Replace(name))}
}

// Index returns a child path for an array element.
func (p Path) Index(i int) Path {
	return Path{parts: append(append(make([]string, 0, len(p.parts)+1), p.parts...), strconv.Itoa(i))}
}

// Depth is the number of segments below the root.
func (p Path) Depth() int { return len(p.parts) }

// Pointer renders the path ("/" for the root).
func (p Path) Pointer() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

func (p Path) String() string { return p.Pointer() }
