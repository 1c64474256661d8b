package wire

// Meta identifies one of the structural keys.
type Meta int

const (
	MetaNone Meta = iota
	MetaType
	MetaID
	MetaRef
	MetaItems
	MetaKeys
)

// Spelling selects how meta keys are written.
type Spelling int

const (
	SpellLong  Spelling = iota // @type @id @ref @items @keys
	SpellShort                 // @t @i @r @e @k
)

var (
	longNames  = [...]string{MetaType: "type", MetaID: "id", MetaRef: "ref", MetaItems: "items", MetaKeys: "keys"}
	shortNames = [...]string{MetaType: "t", MetaID: "i", MetaRef: "r", MetaItems: "e", MetaKeys: "k"}
)

// Key renders the meta key with the given prefix ('@' strict, '$' relaxed).
func (m Meta) Key(sp Spelling, prefix byte) string {
	if m == MetaNone {
		return ""
	}
	if sp == SpellShort {
		return string(prefix) + shortNames[m]
	}
	return string(prefix) + longNames[m]
}

// ParseMeta classifies an object key; every prefix and spelling is accepted.
func ParseMeta(key string) Meta {
	if len(key) < 2 || (key[0] != '@' && key[0] != '$') {
		return MetaNone
	}
	switch key[1:] {
	case "type", "t":
		return MetaType
	case "id", "i":
		return MetaID
	case "ref", "r":
		return MetaRef
	case "items", "e":
		return MetaItems
	case "keys", "k":
		return MetaKeys
	}
	return MetaNone
}

// IsMetaKey reports whether a map key would be mistaken for a meta key.
func IsMetaKey(key string) bool { return ParseMeta(key) != MetaNone }
