package entity

import "strings"

// Language is the ISO 639-1 code of a text stream.
type Language string

const (
	LanguageUnspecified Language = ""
	LanguageEnglish     Language = "en"
	LanguageUkrainian   Language = "uk"
	LanguageRussian     Language = "ru"
	LanguageSanskrit    Language = "sa"
	LanguageBengali     Language = "bn"
)

// ParseLanguage maps a configured code onto a Language; unknown codes are
// unspecified. "ua" is accepted for Ukrainian.
func ParseLanguage(code string) Language {
	switch l := Language(strings.ToLower(strings.TrimSpace(code))); l {
	case LanguageEnglish, LanguageUkrainian, LanguageRussian, LanguageSanskrit, LanguageBengali:
		return l
	case "ua":
		return LanguageUkrainian
	default:
		return LanguageUnspecified
	}
}

// CodeOr returns the code, or def when unspecified.
func (l Language) CodeOr(def string) string {
	if l == LanguageUnspecified {
		return def
	}
	return string(l)
}
