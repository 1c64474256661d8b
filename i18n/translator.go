// Package i18n supplies short human-readable titles for issue codes.
package i18n

import "strings"

// Translator returns the title of an issue code. Unknown codes come back
// unchanged.
type Translator interface {
	Message(code string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dict = map[string]map[string]string{
	"en": {
		"parse_error":          "not valid in the chosen syntax",
		"malformed_wire":       "meta keys used inconsistently",
		"unknown_type":         "no Go type registered for the type tag",
		"unresolved_reference": "reference to an id no node carries",
		"coercion":             "value does not fit its declared type",
		"depth_exceeded":       "nesting deeper than the configured limit",
		"unsupported":          "value cannot be represented",
	},
	"ja": {
		"parse_error":          "構文として解析できません",
		"malformed_wire":       "メタキーの使い方が不正です",
		"unknown_type":         "型タグに対応する型が登録されていません",
		"unresolved_reference": "参照先の id を持つノードがありません",
		"coercion":             "値を宣言された型に変換できません",
		"depth_exceeded":       "入れ子が上限を超えています",
		"unsupported":          "この値は表現できません",
	},
}

func (t dictTranslator) Message(code string) string {
	if m, ok := dict[t.lang][code]; ok {
		return m
	}
	return code
}

// Supported reports whether lang has a built-in dictionary.
func Supported(lang string) bool {
	_, ok := dict[normalize(lang)]
	return ok
}

// New returns the built-in Translator for lang ("en" or "ja", region
// suffixes such as "ja_JP.UTF-8" allowed). Other languages fall back to
// English.
func New(lang string) Translator {
	lang = normalize(lang)
	if _, ok := dict[lang]; !ok {
		lang = "en"
	}
	return dictTranslator{lang: lang}
}

func normalize(lang string) string {
	lang = strings.ToLower(lang)
	if i := strings.IndexAny(lang, "_-."); i >= 0 {
		lang = lang[:i]
	}
	return lang
}
