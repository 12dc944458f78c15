package database

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const textSize = 2147483647

var (
	// ChaptersColumns holds the columns for the "chapters" table.
	ChaptersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "book", Type: field.TypeString, Size: 64},
		{Name: "part", Type: field.TypeInt, Default: 0},
		{Name: "number", Type: field.TypeInt},
		{Name: "title", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ChaptersTable holds the schema information for the "chapters" table.
	ChaptersTable = &schema.Table{
		Name:       "chapters",
		Columns:    ChaptersColumns,
		PrimaryKey: []*schema.Column{ChaptersColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "chapter_book_part_number",
				Unique:  true,
				Columns: []*schema.Column{ChaptersColumns[1], ChaptersColumns[2], ChaptersColumns[3]},
			},
		},
	}
	// VersesColumns holds the columns for the "verses" table.
	VersesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "verse_number", Type: field.TypeString, Size: 32},
		{Name: "position", Type: field.TypeInt, Default: 0},
		{Name: "script", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "romanized", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "gloss", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "translation", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "commentary", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "covers", Type: field.TypeString, Size: 255, Default: ""},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "chapter_id", Type: field.TypeInt64},
	}
	// VersesTable holds the schema information for the "verses" table.
	VersesTable = &schema.Table{
		Name:       "verses",
		Columns:    VersesColumns,
		PrimaryKey: []*schema.Column{VersesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "verses_chapters_verses",
				Columns:    []*schema.Column{VersesColumns[10]},
				RefColumns: []*schema.Column{ChaptersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "verse_chapter_id_verse_number",
				Unique:  true,
				Columns: []*schema.Column{VersesColumns[10], VersesColumns[1]},
			},
		},
	}
	// LexiconEntriesColumns holds the columns for the "lexicon_entries" table.
	LexiconEntriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64},
		{Name: "headword", Type: field.TypeString, Size: 255},
		{Name: "script_form", Type: field.TypeString, Size: 255, Default: ""},
		{Name: "grammar_tag", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "preverbs", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "gloss", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "normalized_headword", Type: field.TypeString, Size: 255, Default: ""},
	}
	// LexiconEntriesTable holds the schema information for the "lexicon_entries" table.
	LexiconEntriesTable = &schema.Table{
		Name:       "lexicon_entries",
		Columns:    LexiconEntriesColumns,
		PrimaryKey: []*schema.Column{LexiconEntriesColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "lexiconentry_normalized_headword",
				Unique:  false,
				Columns: []*schema.Column{LexiconEntriesColumns[6]},
			},
		},
	}
	// TranscriptsColumns holds the columns for the "transcripts" table.
	TranscriptsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "slug", Type: field.TypeString, Size: 255},
		{Name: "kind", Type: field.TypeString, Size: 16, Default: "lecture"},
		{Name: "title", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "date", Type: field.TypeTime, Nullable: true},
		{Name: "location", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "audio_url", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "category", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "recipient", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "book_slug", Type: field.TypeString, Nullable: true, Size: 16},
		{Name: "verse_ref", Type: field.TypeString, Nullable: true, Size: 32},
		{Name: "body", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "content_hash", Type: field.TypeString, Size: 64, Default: ""},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// TranscriptsTable holds the schema information for the "transcripts" table.
	TranscriptsTable = &schema.Table{
		Name:       "transcripts",
		Columns:    TranscriptsColumns,
		PrimaryKey: []*schema.Column{TranscriptsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "transcript_slug",
				Unique:  true,
				Columns: []*schema.Column{TranscriptsColumns[1]},
			},
		},
	}
	// TranscriptParagraphsColumns holds the columns for the "transcript_paragraphs" table.
	TranscriptParagraphsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "position", Type: field.TypeInt},
		{Name: "text", Type: field.TypeString, Size: textSize},
		{Name: "transcript_id", Type: field.TypeInt64},
	}
	// TranscriptParagraphsTable holds the schema information for the "transcript_paragraphs" table.
	TranscriptParagraphsTable = &schema.Table{
		Name:       "transcript_paragraphs",
		Columns:    TranscriptParagraphsColumns,
		PrimaryKey: []*schema.Column{TranscriptParagraphsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "transcript_paragraphs_transcripts_paragraphs",
				Columns:    []*schema.Column{TranscriptParagraphsColumns[3]},
				RefColumns: []*schema.Column{TranscriptsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "transcriptparagraph_transcript_id_position",
				Unique:  true,
				Columns: []*schema.Column{TranscriptParagraphsColumns[3], TranscriptParagraphsColumns[1]},
			},
		},
	}
	// Tables holds all the tables in the schema, parents before children.
	Tables = []*schema.Table{
		ChaptersTable,
		VersesTable,
		LexiconEntriesTable,
		TranscriptsTable,
		TranscriptParagraphsTable,
	}
)

func init() {
	VersesTable.ForeignKeys[0].RefTable = ChaptersTable
	TranscriptParagraphsTable.ForeignKeys[0].RefTable = TranscriptsTable
}

// TableNames lists the table names in creation order.
func TableNames() []string {
	names := make([]string, len(Tables))
	for i, t := range Tables {
		names[i] = t.Name
	}
	return names
}
