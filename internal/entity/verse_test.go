package entity

import (
	"errors"
	"sort"
	"testing"
)

func TestParseVerseKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"7", "7"},
		{" 12 ", "12"},
		{"22-23", "22-23"},
		{"22 – 23", "22-23"},
		{"22—24", "22-24"},
		{"5-5", "5"},
	}
	for _, c := range cases {
		got, err := ParseVerseKey(c.in)
		if err != nil {
			t.Fatalf("%q: unexpected err: %v", c.in, err)
		}
		if string(got) != c.want {
			t.Fatalf("%q -> got %q want %q", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"", "abc", "7a", "9-3"} {
		if _, err := ParseVerseKey(bad); !errors.Is(err, ErrInvalidVerseKey) {
			t.Fatalf("%q: expected ErrInvalidVerseKey, got %v", bad, err)
		}
	}
}

func TestVerseKeyRange(t *testing.T) {
	k := VerseKey("10-12")
	if !k.IsRange() || k.Start() != 10 || k.End() != 12 {
		t.Fatalf("bad range parsing: %v %d %d", k.IsRange(), k.Start(), k.End())
	}
	if nums := k.Numbers(); len(nums) != 3 || nums[0] != 10 || nums[2] != 12 {
		t.Fatalf("unexpected numbers %v", nums)
	}
	if !k.Contains("11") || k.Contains("13") || k.Contains("12-13") {
		t.Fatal("unexpected containment result")
	}
}

func TestVerseKeyLess(t *testing.T) {
	keys := []VerseKey{"9", "10-11", "2", "10"}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	want := []VerseKey{"2", "9", "10", "10-11"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", keys, want)
		}
	}
}

func TestFieldSetAbsence(t *testing.T) {
	fs := FieldSet{}
	fs.Set(FieldGloss, "")
	if fs.Has(FieldGloss) {
		t.Fatal("empty value must not be stored")
	}
	fs.Set(FieldTranslation, "text")
	if v, ok := fs.Get(FieldTranslation); !ok || v != "text" {
		t.Fatalf("got (%q,%v)", v, ok)
	}
	rec := NewVerseRecord("3", fs, StreamTarget)
	if rec.Translation != "text" || rec.Sources[FieldTranslation] != StreamTarget {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.IsEmpty() {
		t.Fatal("record should not be empty")
	}
}

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{
		"uk":  LanguageUkrainian,
		" UA": LanguageUkrainian,
		"en":  LanguageEnglish,
		"sa":  LanguageSanskrit,
		"xx":  LanguageUnspecified,
		"":    LanguageUnspecified,
	}
	for in, want := range cases {
		if got := ParseLanguage(in); got != want {
			t.Fatalf("ParseLanguage(%q) = %q want %q", in, got, want)
		}
	}
	if LanguageUnspecified.CodeOr("-") != "-" || LanguageRussian.CodeOr("-") != "ru" {
		t.Fatal("CodeOr fallback")
	}
}
