// Package section turns raw scripture text into per-verse field sets and
// non-verse documents into transcripts.
package section

import (
	"regexp"
	"strings"

	"github.com/eslsoft/vidya/internal/entity"
	"github.com/eslsoft/vidya/pkg/translit"
)

const (
	defaultVerseMarker       = `(?im)^[ \t=*#]*(?:Вірш|Текст|TEXT|Verse)[ \t]+(\d+(?:[ \t]*[-–—][ \t]*\d+)?)[ \t=*#.:]*$`
	defaultGlossMarker       = `(?i)^(?:послівний переклад|синоніми|synonyms|word for word)` + markerTail
	defaultTranslationMarker = `(?i)^(?:переклад|translation)` + markerTail
	defaultCommentaryMarker  = `(?i)^(?:пояснення|коментарій|коментар|purport|commentary)` + markerTail

	// markerTail lets a keyword line end in "." or ":"; text on the same line
	// is only taken after a colon.
	markerTail = `[ \t]*(?:\.|:[ \t]*(.*?))?[ \t]*$`
)

var (
	spaceRun         = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,;:!?])`)
)

// Span is the raw text that follows one verse marker.
type Span struct {
	Key  entity.VerseKey
	Text string
}

// Document is the result of parsing one source file.
type Document struct {
	// Preamble is the text before the first verse marker.
	Preamble string
	Verses   map[entity.VerseKey]entity.FieldSet
	Order    []entity.VerseKey
	// Transcript is set instead of Verses when the text has no verse marker.
	Transcript *entity.Transcript
}

// IsTranscript reports whether the document took the non-verse path.
func (d Document) IsTranscript() bool { return d.Transcript != nil }

type marker struct {
	pattern *regexp.Regexp
	state   State
}

// Parser holds the compiled patterns. It is safe for concurrent use.
type Parser struct {
	verseMarker *regexp.Regexp
	markers     []marker
	header      headerPatterns
}

type Option func(*Parser)

// WithVerseMarker replaces the verse marker pattern. The first capture group
// must hold the verse number or range.
func WithVerseMarker(pattern *regexp.Regexp) Option {
	return func(p *Parser) {
		if pattern != nil {
			p.verseMarker = pattern
		}
	}
}

// WithSectionMarker adds a pattern that switches the scanner into state.
// Added markers are tried before the defaults.
func WithSectionMarker(state State, pattern *regexp.Regexp) Option {
	return func(p *Parser) {
		if pattern != nil {
			p.markers = append([]marker{{pattern: pattern, state: state}}, p.markers...)
		}
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{
		verseMarker: regexp.MustCompile(defaultVerseMarker),
		markers: []marker{
			{pattern: regexp.MustCompile(defaultGlossMarker), state: StateGloss},
			{pattern: regexp.MustCompile(defaultTranslationMarker), state: StateTranslation},
			{pattern: regexp.MustCompile(defaultCommentaryMarker), state: StateCommentary},
		},
		header: newHeaderPatterns(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse splits raw into verses. Text without any verse marker is parsed as a
// transcript instead.
func (p *Parser) Parse(raw string) Document {
	preamble, spans := p.Split(raw)
	if len(spans) == 0 {
		t := p.ParseTranscript(raw)
		return Document{Preamble: preamble, Transcript: &t}
	}

	doc := Document{
		Preamble: preamble,
		Verses:   make(map[entity.VerseKey]entity.FieldSet, len(spans)),
		Order:    make([]entity.VerseKey, 0, len(spans)),
	}
	for _, span := range spans {
		fields := p.ParseFields(span.Text)
		existing, seen := doc.Verses[span.Key]
		if !seen {
			doc.Verses[span.Key] = fields
			doc.Order = append(doc.Order, span.Key)
			continue
		}
		for f, v := range fields {
			if !existing.Has(f) {
				existing.Set(f, v)
			}
		}
	}
	return doc
}

// Split cuts raw at every verse marker line. Markers whose number cannot be
// parsed are treated as plain text of the preceding span.
func (p *Parser) Split(raw string) (string, []Span) {
	raw = normalizeNewlines(raw)

	type keyed struct {
		key        entity.VerseKey
		start, end int
	}
	var valid []keyed
	for _, m := range p.verseMarker.FindAllStringSubmatchIndex(raw, -1) {
		if len(m) < 4 || m[2] < 0 {
			continue
		}
		key, err := entity.ParseVerseKey(raw[m[2]:m[3]])
		if err != nil {
			continue
		}
		valid = append(valid, keyed{key: key, start: m[0], end: m[1]})
	}
	if len(valid) == 0 {
		return strings.TrimSpace(raw), nil
	}

	spans := make([]Span, 0, len(valid))
	for i, v := range valid {
		end := len(raw)
		if i+1 < len(valid) {
			end = valid[i+1].start
		}
		spans = append(spans, Span{Key: v.key, Text: raw[v.end:end]})
	}
	return strings.TrimSpace(raw[:valid[0].start]), spans
}

// ParseFields runs the section state machine over one verse's text.
func (p *Parser) ParseFields(text string) entity.FieldSet {
	var (
		state = StateScript
		parts = make(map[State][]string, len(States))
	)
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || p.verseMarker.MatchString(line) {
			continue
		}
		if next, rest, ok := p.matchMarker(line); ok {
			state = next
			if rest != "" {
				parts[state] = append(parts[state], rest)
			}
			continue
		}
		if state == StateScript && !translit.ContainsScript(line) {
			state = StateRomanized
		}
		parts[state] = append(parts[state], line)
	}

	fields := make(entity.FieldSet, len(parts))
	for _, s := range States {
		fields.Set(s.Field(), CleanText(strings.Join(parts[s], " ")))
	}
	return fields
}

// matchMarker reports whether line is a section marker. Inline text is the
// first capture group of the pattern, when it has one.
func (p *Parser) matchMarker(line string) (State, string, bool) {
	for _, m := range p.markers {
		loc := m.pattern.FindStringSubmatchIndex(line)
		if loc == nil || loc[0] != 0 {
			continue
		}
		var rest string
		if len(loc) >= 4 && loc[2] >= 0 {
			rest = strings.TrimSpace(line[loc[2]:loc[3]])
		}
		return m.state, rest, true
	}
	return StateScript, "", false
}

// CleanText collapses whitespace and drops spaces before punctuation.
func CleanText(s string) string {
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	return spaceBeforePunct.ReplaceAllString(s, "$1")
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}
