package ingest

import (
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/internal/usecase/section"
)

// locationCodes maps the location suffix of transcript file names.
var locationCodes = map[string]string{
	"ny": "New York", "la": "Los Angeles", "sf": "San Francisco", "lon": "London",
	"par": "Paris", "bom": "Bombay", "mum": "Mumbai", "cal": "Calcutta",
	"kol": "Kolkata", "vri": "Vrindavan", "vrn": "Vrindavan", "may": "Mayapur",
	"del": "Delhi", "hon": "Honolulu", "tok": "Tokyo", "mel": "Melbourne",
	"syd": "Sydney", "mon": "Montreal", "tor": "Toronto", "bos": "Boston",
	"chi": "Chicago", "det": "Detroit", "sea": "Seattle", "dal": "Dallas",
	"atl": "Atlanta", "hyd": "Hyderabad", "gor": "Gorakhpur", "aha": "Ahmedabad",
	"jai": "Jaipur", "nai": "Nairobi", "joh": "Johannesburg",
}

type categoryCode struct {
	code string
	name string
}

// categoryCodes is searched in order; the first code found in the header
// category or the file name wins.
var categoryCodes = []categoryCode{
	{"bg", "Bhagavad-gita"},
	{"sb", "Srimad-Bhagavatam"},
	{"cc", "Sri Caitanya-caritamrta"},
	{"nod", "Nectar of Devotion"},
	{"iso", "Sri Isopanisad"},
	{"conv", "Conversation"},
	{"rc", "Room Conversation"},
	{"mw", "Morning Walk"},
	{"int", "Interview"},
	{"ini", "Initiation"},
	{"arr", "Arrival"},
	{"dep", "Departure"},
	{"fest", "Festival"},
	{"lec", "Lecture"},
	{"pu", "Lecture"},
}

// bookSlugs are the scripture codes a lecture file name may carry, searched
// in order.
var bookSlugs = []string{"bg", "sb", "cc", "nod", "iso"}

var titleVerseRef = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?(?:-\d+)?)`)

// ContentHash is the hex blake3 digest of a transcript body.
func ContentHash(body string) string {
	sum := blake3.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// enrichTranscript fills what the header left out from the file name and the
// code tables. A known location code in the file name overrides the header.
func enrichTranscript(t *entity.Transcript, kind entity.TranscriptKind, item string) {
	hints := section.HintsFromFilename(item)
	t.Kind = kind
	t.Slug = hints.Slug
	if t.Meta.Date == nil {
		t.Meta.Date = hints.Date
	}
	if loc, ok := locationCodes[hints.LocationCode]; ok {
		t.Meta.Location = &loc
	}
	if kind == entity.TranscriptKindLecture {
		t.Meta.Category = lectureCategory(t.Meta.Category, hints.Slug)
		linkScripture(t, hints.Slug)
	}
	if t.Title == "" {
		t.Title = hints.Slug
	}
	t.ContentHash = ContentHash(t.Body)
}

func lectureCategory(header *string, slug string) *string {
	raw := ""
	if header != nil {
		raw = strings.ToLower(*header)
	}
	for _, c := range categoryCodes {
		if strings.Contains(raw, c.code) || strings.Contains(slug, c.code) {
			name := c.name
			return &name
		}
	}
	return header
}

// linkScripture sets the book from the file name and the verse from the title,
// e.g. "660713bg.ny" titled "Lecture on Bhagavad-gita 4.1" is bg 4.1.
func linkScripture(t *entity.Transcript, slug string) {
	for _, code := range bookSlugs {
		if strings.Contains(slug, code) {
			book := code
			t.Meta.BookSlug = &book
			break
		}
	}
	if m := titleVerseRef.FindStringSubmatch(t.Title); m != nil {
		ref := m[1]
		t.Meta.VerseRef = &ref
	}
}
