package entity

import "strings"

// CollectionKind selects how the items of a collection are parsed.
type CollectionKind string

const (
	CollectionVerses   CollectionKind = "verses"
	CollectionLectures CollectionKind = "lectures"
	CollectionLetters  CollectionKind = "letters"
)

const (
	defaultItemExtension = ".txt"
	defaultCollectionRef = "HEAD"
)

// ParseCollectionKind defaults to verses.
func ParseCollectionKind(s string) CollectionKind {
	switch CollectionKind(strings.ToLower(strings.TrimSpace(s))) {
	case CollectionLectures:
		return CollectionLectures
	case CollectionLetters:
		return CollectionLetters
	default:
		return CollectionVerses
	}
}

// IsTranscript reports whether items are lectures or letters.
func (k CollectionKind) IsTranscript() bool {
	return k == CollectionLectures || k == CollectionLetters
}

// TranscriptKind maps the collection onto the transcript it produces.
func (k CollectionKind) TranscriptKind() TranscriptKind {
	if k == CollectionLetters {
		return TranscriptKindLetter
	}
	return TranscriptKindLecture
}

// Collection locates one ingestible set of items. Repo is "owner/name" for
// remote sources and a directory relative to the source root otherwise.
type Collection struct {
	Name      string
	Kind      CollectionKind
	Book      string
	Part      int
	Repo      string
	Ref       string
	Path      string
	Extension string
	Language  Language
	// SecondaryRepo and SecondaryPath locate the target-language stream.
	// Items are matched by file name.
	SecondaryRepo     string
	SecondaryPath     string
	SecondaryLanguage Language
}

// ItemExtension returns the file suffix items must carry.
func (c Collection) ItemExtension() string {
	if c.Extension == "" {
		return defaultItemExtension
	}
	if !strings.HasPrefix(c.Extension, ".") {
		return "." + c.Extension
	}
	return c.Extension
}

// RefOrDefault returns the git ref used for raw fetches.
func (c Collection) RefOrDefault() string {
	if c.Ref == "" {
		return defaultCollectionRef
	}
	return c.Ref
}

// Secondary returns the view of the collection that points at the
// target-language stream.
func (c Collection) Secondary() (Collection, bool) {
	if c.SecondaryRepo == "" && c.SecondaryPath == "" {
		return Collection{}, false
	}
	out := c
	if c.SecondaryRepo != "" {
		out.Repo = c.SecondaryRepo
	}
	out.Path = c.SecondaryPath
	out.Language = c.SecondaryLanguage
	out.SecondaryRepo, out.SecondaryPath, out.SecondaryLanguage = "", "", LanguageUnspecified
	return out, true
}
