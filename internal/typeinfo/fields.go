package typeinfo

import (
	"reflect"
	"strings"
	"sync"
)

// FieldInfo describes one serializable struct field.
type FieldInfo struct {
	Name      string // wire name
	GoName    string
	Index     []int
	Type      reflect.Type
	OmitEmpty bool
}

// StructInfo is the cached field list of a struct type, in declaration order.
type StructInfo struct {
	Type   reflect.Type
	Fields []FieldInfo
	byName map[string]int
}

// Lookup returns the field with the given wire name.
func (s *StructInfo) Lookup(name string) (FieldInfo, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldInfo{}, false
	}
	return s.Fields[i], true
}

var structCache sync.Map // reflect.Type -> *StructInfo

// Struct returns the field metadata of struct type t.
func Struct(t reflect.Type) *StructInfo {
	if v, ok := structCache.Load(t); ok {
		return v.(*StructInfo)
	}
	info := buildStruct(t)
	v, _ := structCache.LoadOrStore(t, info)
	return v.(*StructInfo)
}

func buildStruct(t reflect.Type) *StructInfo {
	info := &StructInfo{Type: t, byName: map[string]int{}}
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			// promoted fields follow
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if throughPointer(t, sf.Index) {
			continue
		}
		name, omit := ResolveStructKey(sf)
		if name == "-" {
			continue
		}
		if _, dup := info.byName[name]; dup {
			continue
		}
		info.byName[name] = len(info.Fields)
		info.Fields = append(info.Fields, FieldInfo{Name: name, GoName: sf.Name, Index: sf.Index, Type: sf.Type, OmitEmpty: omit})
	}
	return info
}

// throughPointer reports whether a promoted field is reached via an embedded
// pointer; such fields are skipped because the embedding may be nil.
func throughPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		t = f.Type
	}
	return false
}

// ResolveStructKey resolves a struct field's wire name.
// Priority: jsongraph:"name=..." > json tag name > field name; "-" disables the field.
func ResolveStructKey(sf reflect.StructField) (name string, omitEmpty bool) {
	name = sf.Name
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-", false
		}
		parts := strings.Split(jt, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitEmpty = true
			}
		}
	}
	if gt := sf.Tag.Get("jsongraph"); gt != "" {
		for _, p := range strings.Split(gt, ",") {
			p = strings.TrimSpace(p)
			switch {
			case p == "-":
				return "-", false
			case strings.HasPrefix(p, "name="):
				name = strings.TrimPrefix(p, "name=")
			case p == "omitempty":
				omitEmpty = true
			}
		}
	}
	return name, omitEmpty
}

// FieldFilter applies per-type include/exclude lists keyed by type name.
type FieldFilter struct {
	Include map[string][]string
	Exclude map[string][]string
}

// Allowed reports whether the wire field name of type typeName is written.
func (f FieldFilter) Allowed(typeName, field string) bool {
	if inc, ok := f.Include[typeName]; ok && len(inc) > 0 {
		found := false
		for _, n := range inc {
			if n == field {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, n := range f.Exclude[typeName] {
		if n == field {
			return false
		}
	}
	return true
}
