// Package normalize folds romanized and Cyrillic headwords into plain
// lower-case ASCII-ish search keys. The output is for lookup only.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folds maps letters whose plain form is not reachable by stripping marks.
// Cyrillic letters with a decomposition (й, ї, ё) reach their base letter first.
var folds = map[rune]string{
	// Cyrillic
	'а': "a", 'б': "b", 'в': "v", 'г': "h", 'ґ': "g", 'д': "d", 'е': "e",
	'є': "ie", 'ж': "zh", 'з': "z", 'и': "y", 'і': "i",
	'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "shch", 'ь': "", 'ю': "iu", 'я': "ia",
	'ы': "y", 'э': "e", 'ъ': "",
	// apostrophes used inside Ukrainian words
	'\'': "", '’': "", 'ʼ': "",
	// Latin letters without a decomposition
	'ł': "l", 'ø': "o", 'đ': "d", 'ß': "ss", 'æ': "ae", 'œ': "oe",
}

// stripMarks returns a fresh chain per call; transformers carry state.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize lower-cases s, strips every combining mark and folds the letters in
// the substitution table. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	stripped, _, err := transform.String(stripMarks(), strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if repl, ok := folds[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Key normalizes s and collapses whitespace runs so it can be used as an
// index key.
func Key(s string) string {
	return strings.Join(strings.Fields(Normalize(s)), " ")
}
