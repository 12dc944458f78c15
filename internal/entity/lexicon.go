package entity

// LexiconEntry is one dictionary headword. ScriptForm and NormalizedHeadword
// are derived from Headword and never edited independently.
type LexiconEntry struct {
	ID                 int64
	Headword           string
	ScriptForm         string
	GrammarTag         *string
	Preverbs           *string
	Gloss              *string
	NormalizedHeadword string
}
