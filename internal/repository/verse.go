package repository

import (
	"context"

	"github.com/eslsoft/vidya/internal/entity"
)

// VerseRepository persists chapters and their verses. Verses are keyed by
// (chapter_id, verse_number) so re-running an ingestion overwrites in place.
type VerseRepository interface {
	UpsertChapter(ctx context.Context, chapter *entity.Chapter) (int64, error)
	FindChapter(ctx context.Context, book string, part, number int) (*entity.Chapter, error)
	UpsertVerses(ctx context.Context, chapterID int64, records []entity.VerseRecord) error
	GetVerses(ctx context.Context, chapterID int64) ([]entity.VerseRecord, error)
}
