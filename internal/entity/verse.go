package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Field names one textual section of a verse.
type Field int

const (
	FieldUnspecified Field = iota
	FieldScript
	FieldRomanized
	FieldGloss
	FieldTranslation
	FieldCommentary
)

// Fields lists every verse field in document order.
var Fields = []Field{FieldScript, FieldRomanized, FieldGloss, FieldTranslation, FieldCommentary}

func (f Field) String() string {
	switch f {
	case FieldScript:
		return "script"
	case FieldRomanized:
		return "romanized"
	case FieldGloss:
		return "gloss"
	case FieldTranslation:
		return "translation"
	case FieldCommentary:
		return "commentary"
	default:
		return "unspecified"
	}
}

// FieldSet holds the sections found for one verse. A section that was not
// found has no key; empty strings are never stored.
type FieldSet map[Field]string

// Get returns the field value and whether the field is present.
func (s FieldSet) Get(f Field) (string, bool) {
	v, ok := s[f]
	return v, ok
}

// Has reports whether the field is present.
func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

// Set stores v under f. Empty values remove the field.
func (s FieldSet) Set(f Field, v string) {
	if v == "" {
		delete(s, f)
		return
	}
	s[f] = v
}

// Stream identifies which of the two parallel sources supplied a field.
type Stream int

const (
	StreamUnknown Stream = iota
	// StreamSource carries the structural, source-language text.
	StreamSource
	// StreamTarget carries the target-language translation text.
	StreamTarget
)

func (s Stream) String() string {
	switch s {
	case StreamSource:
		return "source"
	case StreamTarget:
		return "target"
	default:
		return "unknown"
	}
}

// VerseKey identifies a verse within a chapter: "7" or a range such as "22-23".
type VerseKey string

var verseKeyPattern = regexp.MustCompile(`^(\d+)(?:\s*[-–—]\s*(\d+))?$`)

// ParseVerseKey validates raw and canonicalizes range dashes to "-".
func ParseVerseKey(raw string) (VerseKey, error) {
	m := verseKeyPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidVerseKey, raw)
	}
	if m[2] == "" {
		return VerseKey(m[1]), nil
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end < start {
		return "", fmt.Errorf("%w: %q ends before it starts", ErrInvalidVerseKey, raw)
	}
	if start == end {
		return VerseKey(m[1]), nil
	}
	return VerseKey(m[1] + "-" + m[2]), nil
}

func (k VerseKey) String() string { return string(k) }

// IsRange reports whether the key spans more than one verse.
func (k VerseKey) IsRange() bool {
	return strings.Contains(string(k), "-")
}

// Start returns the leading verse number, or 0 when the key is malformed.
func (k VerseKey) Start() int {
	head, _, _ := strings.Cut(string(k), "-")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0
	}
	return n
}

// End returns the last verse number covered by the key.
func (k VerseKey) End() int {
	_, tail, ok := strings.Cut(string(k), "-")
	if !ok {
		return k.Start()
	}
	n, err := strconv.Atoi(strings.TrimSpace(tail))
	if err != nil {
		return k.Start()
	}
	return n
}

// Numbers expands the key into every verse number it covers.
func (k VerseKey) Numbers() []int {
	start, end := k.Start(), k.End()
	if end < start {
		return []int{start}
	}
	out := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		out = append(out, n)
	}
	return out
}

// Contains reports whether other lies entirely inside k.
func (k VerseKey) Contains(other VerseKey) bool {
	return other.Start() >= k.Start() && other.End() <= k.End()
}

// Less orders keys by leading number, then by end, then lexically.
func (k VerseKey) Less(other VerseKey) bool {
	if a, b := k.Start(), other.Start(); a != b {
		return a < b
	}
	if a, b := k.End(), other.End(); a != b {
		return a < b
	}
	return k < other
}

// VerseRecord is the merged, persisted form of one verse.
type VerseRecord struct {
	Key         VerseKey
	Script      string
	Romanized   string
	Gloss       string
	Translation string
	Commentary  string
	// Sources records which stream supplied each populated field.
	Sources map[Field]Stream
	// Covers lists single keys folded into a range record.
	Covers []VerseKey
}

// Field returns the value of f.
func (r VerseRecord) Field(f Field) string {
	switch f {
	case FieldScript:
		return r.Script
	case FieldRomanized:
		return r.Romanized
	case FieldGloss:
		return r.Gloss
	case FieldTranslation:
		return r.Translation
	case FieldCommentary:
		return r.Commentary
	default:
		return ""
	}
}

// SetField assigns v to f.
func (r *VerseRecord) SetField(f Field, v string) {
	switch f {
	case FieldScript:
		r.Script = v
	case FieldRomanized:
		r.Romanized = v
	case FieldGloss:
		r.Gloss = v
	case FieldTranslation:
		r.Translation = v
	case FieldCommentary:
		r.Commentary = v
	}
}

// FieldSet returns the populated fields of the record.
func (r VerseRecord) FieldSet() FieldSet {
	fs := make(FieldSet, len(Fields))
	for _, f := range Fields {
		fs.Set(f, r.Field(f))
	}
	return fs
}

// IsEmpty reports whether no field carries text.
func (r VerseRecord) IsEmpty() bool {
	for _, f := range Fields {
		if r.Field(f) != "" {
			return false
		}
	}
	return true
}

// NewVerseRecord builds a record from a single stream's fields.
func NewVerseRecord(key VerseKey, fields FieldSet, stream Stream) VerseRecord {
	rec := VerseRecord{Key: key}
	for f, v := range fields {
		rec.SetField(f, v)
		if rec.Sources == nil {
			rec.Sources = make(map[Field]Stream, len(fields))
		}
		rec.Sources[f] = stream
	}
	return rec
}

// ChapterBlock owns the verses of one chapter. Number is resolved once when the
// block is built.
type ChapterBlock struct {
	Number int
	Title  string
	Verses []VerseRecord
}

// Chapter is the persisted identity of a chapter. Part is the canto or lila
// number for multi-part books and 0 otherwise.
type Chapter struct {
	ID     int64
	Book   string
	Part   int
	Number int
	Title  string
}

// Validate rejects chapters that cannot be keyed.
func (c Chapter) Validate() error {
	if c.Book == "" {
		return fmt.Errorf("%w: book is required", ErrInvalidChapter)
	}
	if c.Number <= 0 {
		return fmt.Errorf("%w: %s chapter number %d", ErrInvalidChapter, c.Book, c.Number)
	}
	return nil
}
