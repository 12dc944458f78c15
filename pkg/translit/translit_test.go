package translit

import (
	"math/rand"
	"sort"
	"strings"
	"testing"
)

func TestTransliterate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"kṛṣṇa", "कृष्ण"},
		{"bhagavad", "भगवद्"},
		{"gītā", "गीता"},
		{"dharma", "धर्म"},
		{"saṅga", "सङ्ग"},
		{"kha", "ख"},
		{"aiśvarya", "ऐश्वर्य"},
		{"kaurava", "कौरव"},
		{"rāmaḥ", "रामः"},
		{"saṃsāra", "संसार"},
		{"om", "ओम्"},
		{"te'pi", "तेऽपि"},
		{"oṁ namo", "ओं नमो"},
		{"KṚṢṆA", "कृष्ण"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Transliterate(c.in); string(got) != c.want {
			t.Fatalf("%q -> got %q want %q", c.in, got, c.want)
		}
	}
}

func TestTransliterate_DecomposedInput(t *testing.T) {
	// a + combining macron
	if got := Transliterate("ga\u0304"); got != "गा" {
		t.Fatalf("expected decomposed macron to match, got %q", got)
	}
}

func TestTransliterate_UnmappedPassThrough(t *testing.T) {
	for _, in := range []string{"", "xqz fw!", "123 - 456", "Привіт, світе", "()[]{}"} {
		if got := Transliterate(in); string(got) != in {
			t.Fatalf("%q changed to %q", in, got)
		}
	}
}

func TestTransliterate_ConsonantOnlyViramas(t *testing.T) {
	for _, in := range []string{"k", "kt", "ktp", "bhkhṣ", "ndrm"} {
		got := Transliterate(in)
		n := consonantCount(in)
		if got.ViramaCount() != n {
			t.Fatalf("%q -> %q: want %d viramas got %d", in, got, n, got.ViramaCount())
		}
		if !strings.HasSuffix(string(got), Virama) {
			t.Fatalf("%q -> %q: expected trailing virama", in, got)
		}
	}
}

func TestTransliterate_RandomConsonantRuns(t *testing.T) {
	keys := make([]string, 0, len(consonants))
	for k := range consonants {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		var b strings.Builder
		for j := rng.Intn(8) + 1; j > 0; j-- {
			b.WriteString(keys[rng.Intn(len(keys))])
		}
		in := b.String()
		got := Transliterate(in)
		if n := consonantCount(in); got.ViramaCount() != n {
			t.Fatalf("%q -> %q: want %d viramas got %d", in, got, n, got.ViramaCount())
		}
		if !strings.HasSuffix(string(got), Virama) {
			t.Fatalf("%q -> %q: expected trailing virama", in, got)
		}
	}
}

func consonantCount(s string) int {
	src := []rune(s)
	n := 0
	for i := 0; i < len(src); {
		kind, _, width := lookup(src, i)
		if kind == kindConsonant {
			n++
		}
		if width == 0 {
			width = 1
		}
		i += width
	}
	return n
}

func TestTransliterate_DigraphPrecedence(t *testing.T) {
	for _, in := range []string{"kha", "gha", "cha", "jha", "ṭha", "ḍha", "tha", "dha", "pha", "bha"} {
		got := Transliterate(in)
		if got.ViramaCount() != 0 {
			t.Fatalf("%q -> %q: digraph split into a conjunct", in, got)
		}
		if n := len([]rune(string(got))); n != 1 {
			t.Fatalf("%q -> %q: expected a single letter, got %d runes", in, got, n)
		}
	}
}

func TestTransliterate_MarksCancelPendingConsonant(t *testing.T) {
	got := Transliterate("kṃ")
	if got != "क्ं" {
		t.Fatalf("got %q", got)
	}
	got = Transliterate("k.")
	if got != "क्." {
		t.Fatalf("got %q", got)
	}
}

func TestTransliterate_Bhagavad(t *testing.T) {
	got := Transliterate("bhagavad")
	clusters := got.Clusters()
	if len(clusters) != 4 {
		t.Fatalf("expected 4 clusters, got %q", clusters)
	}
	if clusters[0] != "भ" {
		t.Fatalf("bh digraph must map to a single letter, got %q", clusters[0])
	}
	if got.ViramaCount() != 1 || !strings.HasSuffix(string(got), Virama) {
		t.Fatalf("expected only the closing virama, got %q", got)
	}
}

func TestScriptString_Clusters(t *testing.T) {
	got := ScriptString("कृष्ण धर्म").Clusters()
	want := []string{"कृ", "ष्ण", " ", "ध", "र्म"}
	if len(got) != len(want) {
		t.Fatalf("got %q want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cluster %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestContainsScript(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"धर्मक्षेत्रे कुरुक्षेत्रे", true},
		{"।", true},
		{"আমার", true},
		{"dharma-kṣetre", false},
		{"Послівний переклад", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ContainsScript(c.in); got != c.want {
			t.Fatalf("%q -> got %v want %v", c.in, got, c.want)
		}
	}
}
