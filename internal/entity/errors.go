package entity

import "errors"

// Domain errors shared by the ingestion pipeline and its adapters.
var (
	ErrMissingCredentials = errors.New("missing store credentials")
	ErrDictionaryNotFound = errors.New("dictionary file not found")
	ErrSourceNotFound     = errors.New("source document not found")
	ErrInvalidVerseKey    = errors.New("invalid verse key")
	ErrInvalidLexiconRow  = errors.New("invalid lexicon row")
	ErrInvalidChapter     = errors.New("invalid chapter")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrLexiconNotFound    = errors.New("lexicon entry not found")
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrUnsupportedDriver  = errors.New("unsupported store driver")
)
