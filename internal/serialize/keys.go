package serialize

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// sortKeys orders map keys so output does not depend on map iteration order.
// Scalars compare natively; composite keys compare by their canonical text.
func sortKeys(keys []reflect.Value) {
	sort.SliceStable(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
}

func keyLess(a, b reflect.Value) bool {
	a, b = derefInterface(a), derefInterface(b)
	if !a.IsValid() || !b.IsValid() {
		return !a.IsValid() && b.IsValid()
	}
	if a.Type() != b.Type() {
		return a.Type().String() < b.Type().String()
	}
	switch a.Kind() {
	case reflect.String:
		return a.String() < b.String()
	case reflect.Bool:
		return !a.Bool() && b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() < b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() < b.Float()
	}
	return canonicalKey(a, 0) < canonicalKey(b, 0)
}

// canonicalKey renders a key by content. Pointers render their target, so
// the order survives a round trip that allocates fresh instances.
func canonicalKey(v reflect.Value, depth int) string {
	if depth > 32 {
		return "..."
	}
	switch v.Kind() {
	case reflect.Invalid:
		return "nil"
	case reflect.Interface:
		if v.IsNil() {
			return "nil"
		}
		return v.Elem().Type().String() + ":" + canonicalKey(v.Elem(), depth+1)
	case reflect.Pointer:
		if v.IsNil() {
			return "nil"
		}
		return "&" + canonicalKey(v.Elem(), depth+1)
	case reflect.Struct:
		parts := make([]string, v.NumField())
		for i := range parts {
			parts[i] = canonicalKey(v.Field(i), depth+1)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case reflect.Array, reflect.Slice:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = canonicalKey(v.Index(i), depth+1)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case reflect.Map:
		return "map#" + strconv.Itoa(v.Len())
	case reflect.String:
		return strconv.Quote(v.String())
	}
	return fmt.Sprint(v)
}
