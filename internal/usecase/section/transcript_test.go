package section

import (
	"strings"
	"testing"
	"time"
)

const lectureDoc = `~~Title: Lecture on Bhagavad-gita 4.1~~
~~NOTOC~~

---- dataentry ----
Type_spoken : Bhagavad-gita
Place_spoken : New York
listdate_hidden : 1966-07-13
----

{{https://example.org/audio/660713bg.ny.mp3|Listen}}

Prabhupāda: So, this is the science of [[books:bg:4:1|Bhagavad-gītā]].
It was spoken long ago.

Second paragraph with a line\\ break.

Place_spoken : Somewhere else
`

func TestParseTranscript(t *testing.T) {
	tr := NewParser().ParseTranscript(lectureDoc)

	if tr.Title != "Lecture on Bhagavad-gita 4.1" {
		t.Fatalf("title %q", tr.Title)
	}
	if tr.Meta.Category == nil || *tr.Meta.Category != "Bhagavad-gita" {
		t.Fatalf("category %v", tr.Meta.Category)
	}
	if tr.Meta.Location == nil || *tr.Meta.Location != "New York" {
		t.Fatalf("location %v", tr.Meta.Location)
	}
	want := time.Date(1966, 7, 13, 0, 0, 0, 0, time.UTC)
	if tr.Meta.Date == nil || !tr.Meta.Date.Equal(want) {
		t.Fatalf("date %v", tr.Meta.Date)
	}
	if tr.Meta.AudioURL == nil || *tr.Meta.AudioURL != "https://example.org/audio/660713bg.ny.mp3" {
		t.Fatalf("audio %v", tr.Meta.AudioURL)
	}
	if len(tr.Paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d: %q", len(tr.Paragraphs), tr.Paragraphs)
	}
	if !strings.HasPrefix(tr.Paragraphs[0], "Prabhupāda: So, this is the science of Bhagavad-gītā.") {
		t.Fatalf("first paragraph %q", tr.Paragraphs[0])
	}
	if tr.Paragraphs[1] != "Second paragraph with a line\nbreak." {
		t.Fatalf("second paragraph %q", tr.Paragraphs[1])
	}
	// a header-like line after the body started is body text
	if tr.Paragraphs[2] != "Place_spoken : Somewhere else" {
		t.Fatalf("third paragraph %q", tr.Paragraphs[2])
	}
	for _, marker := range []string{"~~", "dataentry", "{{", "[["} {
		if strings.Contains(tr.Body, marker) {
			t.Fatalf("body still carries %q: %q", marker, tr.Body)
		}
	}
}

func TestParse_NoVerseMarkerIsTranscript(t *testing.T) {
	doc := NewParser().Parse("To_letters : John Smith\n\nMy dear John,\nPlease accept my blessings.")
	if !doc.IsTranscript() {
		t.Fatal("expected transcript")
	}
	if doc.Transcript.Meta.Recipient == nil || *doc.Transcript.Meta.Recipient != "John Smith" {
		t.Fatalf("recipient %v", doc.Transcript.Meta.Recipient)
	}
	if doc.Transcript.Body != "My dear John,\nPlease accept my blessings." {
		t.Fatalf("body %q", doc.Transcript.Body)
	}
}

func TestHintsFromFilename(t *testing.T) {
	cases := []struct {
		name     string
		slug     string
		date     string
		location string
	}{
		{"660713bg.ny.txt", "660713bg.ny", "1966-07-13", "ny"},
		{"spoken/750101sb.may.txt", "750101sb.may", "1975-01-01", "may"},
		{"010203conv.txt", "010203conv", "2001-02-03", ""},
		{"Letter to John.txt", "letter_to_john", "", ""},
		{"661399bg.txt", "661399bg", "", ""},
	}
	for _, c := range cases {
		h := HintsFromFilename(c.name)
		if h.Slug != c.slug {
			t.Fatalf("%s: slug %q want %q", c.name, h.Slug, c.slug)
		}
		if c.date == "" {
			if h.Date != nil {
				t.Fatalf("%s: expected no date, got %v", c.name, h.Date)
			}
		} else if h.Date == nil || h.Date.Format(time.DateOnly) != c.date {
			t.Fatalf("%s: date %v want %s", c.name, h.Date, c.date)
		}
		if h.LocationCode != c.location {
			t.Fatalf("%s: location %q want %q", c.name, h.LocationCode, c.location)
		}
	}
}

func TestCleanMarkup(t *testing.T) {
	in := "====== Heading ======\n<audio>x</audio>\n[[books:sb:1|SB 1]] and [[plain]]%%--%% end\n\n\n\nnext"
	got := CleanMarkup(in)
	want := "Heading\n\nSB 1 and end\n\nnext"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
