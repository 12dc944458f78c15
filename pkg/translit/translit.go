// Package translit converts IAST romanized Sanskrit into Devanagari.
//
// The converter is a single left-to-right scan that tracks one bit of state:
// whether the last emitted rune was a bare consonant still carrying its
// inherent vowel. Everything the tables do not know is copied through.
package translit

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Virama suppresses the inherent vowel of the preceding consonant.
const Virama = "्"

const viramaRune = '्'

// ScriptString is Devanagari text produced by Transliterate.
type ScriptString string

func (s ScriptString) String() string { return string(s) }

// ViramaCount reports how many virama signs the string carries.
func (s ScriptString) ViramaCount() int {
	return strings.Count(string(s), Virama)
}

// Clusters splits the string into orthographic clusters: a base letter with its
// dependent signs, with consonants joined through a virama kept together.
func (s ScriptString) Clusters() []string {
	var (
		clusters []string
		current  []rune
		prev     rune
	)
	for _, r := range string(s) {
		joinsPrev := isCombining(r) || (prev == viramaRune && isConsonantRune(r))
		if !joinsPrev && len(current) > 0 {
			clusters = append(clusters, string(current))
			current = current[:0]
		}
		current = append(current, r)
		prev = r
	}
	if len(current) > 0 {
		clusters = append(clusters, string(current))
	}
	return clusters
}

type tokenKind int

const (
	kindNone tokenKind = iota
	kindConsonant
	kindVowel
	kindMark
)

// Transliterate converts romanized input to Devanagari. Input is NFC-composed
// before scanning so decomposed diacritics match the tables.
func Transliterate(romanized string) ScriptString {
	if romanized == "" {
		return ""
	}
	src := []rune(norm.NFC.String(romanized))

	var (
		out     strings.Builder
		pending bool
	)
	closePending := func() {
		if pending {
			out.WriteString(Virama)
			pending = false
		}
	}

	for i := 0; i < len(src); {
		kind, key, width := lookup(src, i)
		switch kind {
		case kindConsonant:
			closePending()
			out.WriteString(consonants[key])
			pending = true
		case kindVowel:
			if pending {
				out.WriteString(vowelSigns[key])
				pending = false
			} else {
				out.WriteString(vowels[key])
			}
		case kindMark:
			closePending()
			out.WriteString(marks[key])
		default:
			closePending()
			out.WriteRune(src[i])
			width = 1
		}
		i += width
	}
	closePending()
	return ScriptString(out.String())
}

// ContainsScript reports whether s carries any Devanagari or Bengali rune,
// dandas included.
func ContainsScript(s string) bool {
	for _, r := range s {
		if (r >= 0x0900 && r <= 0x097F) || (r >= 0x0980 && r <= 0x09FF) {
			return true
		}
	}
	return false
}

// lookup finds the longest token starting at src[i]. Every two-rune token is
// tried before any single rune, whatever table it lives in.
func lookup(src []rune, i int) (tokenKind, string, int) {
	if i+1 < len(src) {
		pair := string([]rune{unicode.ToLower(src[i]), unicode.ToLower(src[i+1])})
		if kind := classify(pair); kind != kindNone {
			return kind, pair, 2
		}
	}
	single := string(unicode.ToLower(src[i]))
	if kind := classify(single); kind != kindNone {
		return kind, single, 1
	}
	return kindNone, "", 0
}

func classify(key string) tokenKind {
	if _, ok := consonants[key]; ok {
		return kindConsonant
	}
	if _, ok := vowels[key]; ok {
		return kindVowel
	}
	if _, ok := marks[key]; ok {
		return kindMark
	}
	return kindNone
}

func isCombining(r rune) bool {
	return unicode.In(r, unicode.Mn, unicode.Mc)
}

func isConsonantRune(r rune) bool {
	_, ok := consonantRunes[r]
	return ok
}
