// Package ordinal resolves Ukrainian feminine ordinal chapter titles
// ("Глава двадцять перша") to chapter numbers.
package ordinal

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

type entry struct {
	name   string
	number int
}

var (
	units = []string{"перша", "друга", "третя", "четверта", "п'ята", "шоста", "сьома", "восьма", "дев'ята"}
	teens = []string{
		"десята", "одинадцята", "дванадцята", "тринадцята", "чотирнадцята",
		"п'ятнадцята", "шістнадцята", "сімнадцята", "вісімнадцята", "дев'ятнадцята",
	}
	// tens[i] describes 10*(i+2): the ordinal itself, then every prefix used
	// in compounds. Sources spell compounds both with the cardinal
	// ("двадцять перша") and with the ordinal ("двадцята перша").
	tens = [][]string{
		{"двадцята", "двадцять", "двадцята"},
		{"тридцята", "тридцять", "тридцята"},
		{"сорокова", "сорок", "сорокова"},
		{"п'ятдесята", "п'ятдесят", "п'ятдесята"},
		{"шістдесята", "шістдесят", "шістдесята"},
		{"сімдесята", "сімдесят", "сімдесята"},
		{"вісімдесята", "вісімдесят", "вісімдесята"},
		{"дев'яноста", "дев'яносто", "дев'яноста"},
	}
)

// names is sorted longest first: "вісімнадцята" must win over "сімнадцята".
var names = buildNames()

var (
	apostrophes = strings.NewReplacer("’", "'", "ʼ", "'", "‘", "'", "`", "'", "´", "'")
	digitRun    = regexp.MustCompile(`\d+`)
)

func buildNames() []entry {
	var out []entry
	for i, name := range units {
		out = append(out, entry{name, i + 1})
	}
	for i, name := range teens {
		out = append(out, entry{name, i + 10})
	}
	for i, forms := range tens {
		base := (i + 2) * 10
		out = append(out, entry{forms[0], base})
		for _, prefix := range forms[1:] {
			for u, unit := range units {
				out = append(out, entry{prefix + " " + unit, base + u + 1})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(out[i].name), utf8.RuneCountInString(out[j].name)
		if li != lj {
			return li > lj
		}
		return out[i].name < out[j].name
	})
	return out
}

// Resolve returns the chapter number named by fragment. When no ordinal name
// is present it falls back to the first run of digits, and returns 0 when
// there is none.
func Resolve(fragment string) int {
	if n, ok := ResolveName(fragment); ok {
		return n
	}
	if m := digitRun.FindString(fragment); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return 0
}

// ResolveName matches ordinal names only.
func ResolveName(fragment string) (int, bool) {
	_, n, ok := Match(fragment)
	return n, ok
}

// Match returns the longest ordinal name found in fragment, in its cleaned
// form, together with its number.
func Match(fragment string) (string, int, bool) {
	text := Clean(fragment)
	if text == "" {
		return "", 0, false
	}
	for _, e := range names {
		if strings.Contains(text, e.name) {
			return e.name, e.number, true
		}
	}
	return "", 0, false
}

// Clean lower-cases fragment, folds apostrophe variants to U+0027 and
// collapses whitespace.
func Clean(fragment string) string {
	text := apostrophes.Replace(strings.ToLower(fragment))
	return strings.Join(strings.Fields(text), " ")
}
