package translit

var consonants = map[string]string{
	"k": "क", "kh": "ख", "g": "ग", "gh": "घ", "ṅ": "ङ",
	"c": "च", "ch": "छ", "j": "ज", "jh": "झ", "ñ": "ञ",
	"ṭ": "ट", "ṭh": "ठ", "ḍ": "ड", "ḍh": "ढ", "ṇ": "ण",
	"t": "त", "th": "थ", "d": "द", "dh": "ध", "n": "न",
	"p": "प", "ph": "फ", "b": "ब", "bh": "भ", "m": "म",
	"y": "य", "r": "र", "l": "ल", "v": "व",
	"ś": "श", "ṣ": "ष", "s": "स", "h": "ह",
}

var vowels = map[string]string{
	"a": "अ", "ā": "आ", "i": "इ", "ī": "ई", "u": "उ", "ū": "ऊ",
	"ṛ": "ऋ", "ṝ": "ॠ", "ḷ": "ऌ", "ḹ": "ॡ",
	"e": "ए", "ai": "ऐ", "o": "ओ", "au": "औ",
}

// vowelSigns holds the dependent forms; the inherent a has none.
var vowelSigns = map[string]string{
	"a": "", "ā": "ा", "i": "ि", "ī": "ी", "u": "ु", "ū": "ू",
	"ṛ": "ृ", "ṝ": "ॄ", "ḷ": "ॢ", "ḹ": "ॣ",
	"e": "े", "ai": "ै", "o": "ो", "au": "ौ",
}

var marks = map[string]string{
	"ṃ": "ं", "ṁ": "ं", "ḥ": "ः",
	"m\u0310": "ँ",
	"'":       "ऽ",
}

var consonantRunes = func() map[rune]struct{} {
	set := make(map[rune]struct{}, len(consonants))
	for _, script := range consonants {
		for _, r := range script {
			set[r] = struct{}{}
		}
	}
	return set
}()
