package entity

import "time"

// TranscriptKind separates lecture transcripts from letters.
type TranscriptKind string

const (
	TranscriptKindLecture TranscriptKind = "lecture"
	TranscriptKindLetter  TranscriptKind = "letter"
)

// ParseTranscriptKind maps config values onto a kind, defaulting to lecture.
func ParseTranscriptKind(s string) TranscriptKind {
	switch TranscriptKind(s) {
	case TranscriptKindLetter:
		return TranscriptKindLetter
	default:
		return TranscriptKindLecture
	}
}

// TranscriptMeta holds header fields lifted from a non-verse document. Nil
// means the header was not present.
type TranscriptMeta struct {
	Date      *time.Time
	Location  *string
	AudioURL  *string
	Category  *string
	Recipient *string
	// BookSlug and VerseRef link a lecture to the scripture it comments on.
	BookSlug *string
	VerseRef *string
}

// Transcript is a lecture or letter whose body is stored as the translation
// equivalent of a verse.
type Transcript struct {
	ID          int64
	Slug        string
	Kind        TranscriptKind
	Title       string
	Meta        TranscriptMeta
	Body        string
	Paragraphs  []string
	ContentHash string
}
